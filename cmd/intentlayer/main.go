package main

import (
	"os"

	"github.com/intentlayer/intentlayer/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
