package main

import (
	"os"

	"github.com/mkrogh/nightcharge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
