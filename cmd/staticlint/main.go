// Command staticlint is the bookstore static analysis tool. It combines
// analyzers from the Go toolchain, staticcheck, third-party analyzers and the
// project analyzer nostdlog into a single multichecker.Main invocation.
//
// Optional config.json next to the binary narrows the staticcheck family:
//
//	{"Staticcheck": ["SA1000", "SA4006", "S1002", "ST1005"]}
//
// Names may come from the staticcheck (SA), simple (S) and stylecheck (ST)
// sets. Without the file every SA analyzer is enabled.
package main

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gordonklaus/ineffassign/pkg/ineffassign"
	"github.com/gostaticanalysis/nilerr"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/errorsas"
	"golang.org/x/tools/go/analysis/passes/httpresponse"
	"golang.org/x/tools/go/analysis/passes/loopclosure"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/shadow"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"golang.org/x/tools/go/analysis/passes/unmarshal"
	"golang.org/x/tools/go/analysis/passes/unreachable"
	"honnef.co/go/tools/analysis/lint"
	"honnef.co/go/tools/simple"
	"honnef.co/go/tools/staticcheck"
	"honnef.co/go/tools/stylecheck"

	"github.com/patric-chuzhbe/bookstore/cmd/staticlint/nostdlog"
)

// Config is the name of the optional configuration file.
const Config = `config.json`

// ConfigData describes the configuration file.
type ConfigData struct {
	Staticcheck []string
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}

	checks := []*analysis.Analyzer{
		copylock.Analyzer,
		errorsas.Analyzer,
		httpresponse.Analyzer,
		loopclosure.Analyzer,
		lostcancel.Analyzer,
		printf.Analyzer,
		shadow.Analyzer,
		structtag.Analyzer,
		unmarshal.Analyzer,
		unreachable.Analyzer,

		ineffassign.Analyzer,
		nilerr.Analyzer,

		nostdlog.Analyzer,
	}

	checks = append(checks, selectStaticcheck(cfg)...)

	multichecker.Main(checks...)
}

func loadConfig() (*ConfigData, error) {
	appfile, err := os.Executable()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(filepath.Dir(appfile), Config))
	if errors.Is(err, fs.ErrNotExist) {
		return &ConfigData{}, nil
	}
	if err != nil {
		return nil, err
	}

	var cfg ConfigData
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// selectStaticcheck returns the enabled analyzers of the staticcheck family.
func selectStaticcheck(cfg *ConfigData) []*analysis.Analyzer {
	all := make([]*lint.Analyzer, 0, len(staticcheck.Analyzers)+len(simple.Analyzers)+len(stylecheck.Analyzers))
	all = append(all, staticcheck.Analyzers...)
	all = append(all, simple.Analyzers...)
	all = append(all, stylecheck.Analyzers...)

	enabled := make(map[string]bool, len(cfg.Staticcheck))
	for _, name := range cfg.Staticcheck {
		enabled[name] = true
	}

	var result []*analysis.Analyzer
	for _, v := range all {
		name := v.Analyzer.Name
		if enabled[name] || (len(enabled) == 0 && strings.HasPrefix(name, "SA")) {
			result = append(result, v.Analyzer)
		}
	}

	return result
}
