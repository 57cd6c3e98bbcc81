package main

import (
	"os"

	"github.com/kweiss/healthrag/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
