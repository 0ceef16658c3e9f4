package main

import (
	"fmt"
	"os"

	"stocksearch/cmd/stocksearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
