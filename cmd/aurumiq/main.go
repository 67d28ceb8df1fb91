package main

import (
	"os"

	"github.com/aurumiq/aurumiq/cmd/aurumiq/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
