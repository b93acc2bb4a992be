// Package main is the entry point for mssdemux.
package main

import (
	"os"

	"github.com/go-webdl/mssclient/cmd/mssdemux/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
