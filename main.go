package main

import (
	"os"

	"github.com/fieldsync/fieldsync/cli"
)

func main() {
	if err := cli.RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
