package a

import (
	"fmt"
	"log"
	"os"
)

func storeBook(name string) error {
	log.Printf("storing %s", name) // want `use the zap logger instead of log.Printf`
	log.Println("stored")          // want `use the zap logger instead of log.Println`
	fmt.Println(name)              // want `avoid fmt.Println outside package main`
	fmt.Print(name)                // want `avoid fmt.Print outside package main`

	if name == "" {
		os.Exit(2) // want `avoid os.Exit outside package main`
	}

	_, err := fmt.Fprintln(os.Stderr, name)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}

	return nil
}
