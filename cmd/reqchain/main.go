package main

import "reqchain/internal/cli"

// version is stamped by the linker: -ldflags "-X main.version=v1.2.3".
var version = "dev"

func main() {
	cli.Execute(version)
}
