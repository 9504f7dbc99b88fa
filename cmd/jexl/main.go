package main

import (
	"os"

	"github.com/jexl-go/jexl/cmd/jexl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
