// Package main is the single-binary entrypoint for pobal.
package main

import "github.com/pobal-network/pobal/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
