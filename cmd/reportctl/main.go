// Package main is the entry point for the reportctl binary.
package main

import (
	"os"

	cli "github.com/Mahaan-Amr/servaan-sub004/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
