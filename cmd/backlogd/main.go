// Package main is the single-binary entrypoint for backlogd.
package main

import "github.com/backlogd/backlogd/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
