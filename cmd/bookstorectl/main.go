// Command bookstorectl is a command line client of the bookstore HTTP API.
//
// The server address and the access token are taken from the --server and
// --token flags or from the BOOKSTORE_SERVER and BOOKSTORE_TOKEN variables:
//
//	export BOOKSTORE_TOKEN=$(bookstorectl login --email me@example.com)
//	bookstorectl books create --name Dune --author Herbert --year 1965 --summary Spice
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
