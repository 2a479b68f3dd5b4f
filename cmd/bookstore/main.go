// Command bookstore runs the bookstore HTTP (and optionally gRPC) server.
package main

import (
	"fmt"
	"os"

	"github.com/patric-chuzhbe/bookstore/internal/app"
	"github.com/patric-chuzhbe/bookstore/internal/logger"
)

var (
	buildVersion = "N/A"
	buildDate    = "N/A"
	buildCommit  = "N/A"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	theApp, err := app.New()
	if err != nil {
		return err
	}
	defer theApp.Close()

	logger.Log.Infoln(
		"starting bookstore",
		"version", buildVersion,
		"date", buildDate,
		"commit", buildCommit,
	)

	return theApp.Run()
}
