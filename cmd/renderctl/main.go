package main

import (
	"os"

	"github.com/bobarin/reelsmith/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
