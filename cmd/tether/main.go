package main

import (
	"os"

	"github.com/lazypower/tether/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
