// Package main is the entry point for the docsuite CLI.
package main

import (
	"os"

	"github.com/AndreyAkinshin/docsuite/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
