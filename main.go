package main

import (
	"os"

	"github.com/linesmerrill/sos-dispatch-api/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
