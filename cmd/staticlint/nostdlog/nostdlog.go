// Package nostdlog defines an analyzer that keeps library packages from
// writing to the process output or terminating it on their own.
package nostdlog

import (
	"go/ast"
	"go/types"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/analysis"
)

// Analyzer reports, outside package main:
//   - any call into the standard log package (logging goes through zap);
//   - fmt.Print, fmt.Printf and fmt.Println;
//   - os.Exit.
var Analyzer = &analysis.Analyzer{
	Name: "nostdlog",
	Doc:  "prohibits std log, fmt.Print* and os.Exit outside package main",
	Run:  run,
}

var forbiddenFmt = map[string]bool{
	"Print":   true,
	"Printf":  true,
	"Println": true,
}

func run(pass *analysis.Pass) (interface{}, error) {
	if pass.Pkg.Name() == "main" {
		return nil, nil
	}

	for _, file := range pass.Files {
		filename := pass.Fset.File(file.Pos()).Name()
		if strings.HasSuffix(filename, "_test.go") || isGoBuildCacheFile(filename) {
			continue
		}

		ast.Inspect(file, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}

			sel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok {
				return true
			}

			ident, ok := sel.X.(*ast.Ident)
			if !ok {
				return true
			}

			pkgName, ok := pass.TypesInfo.Uses[ident].(*types.PkgName)
			if !ok {
				return true
			}

			switch path := pkgName.Imported().Path(); {
			case path == "log":
				pass.Reportf(call.Pos(), "use the zap logger instead of log.%s", sel.Sel.Name)
			case path == "fmt" && forbiddenFmt[sel.Sel.Name]:
				pass.Reportf(call.Pos(), "avoid fmt.%s outside package main", sel.Sel.Name)
			case path == "os" && sel.Sel.Name == "Exit":
				pass.Reportf(call.Pos(), "avoid os.Exit outside package main")
			}

			return true
		})
	}

	return nil, nil
}

func isGoBuildCacheFile(path string) bool {
	path = filepath.ToSlash(path)
	return strings.Contains(path, "/go-build/")
}
