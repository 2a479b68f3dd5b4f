package main

import (
	"fmt"
	"log"
	"os"
)

func main() {
	fmt.Println("bookstore")
	log.Print("starting")
	os.Exit(0)
}
