package main

import (
	"os"

	"github.com/solatis/treelint/cmd/treelint/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
