package main

import (
	"os"

	"github.com/psantana5/execreaper/cmd/execreaper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
