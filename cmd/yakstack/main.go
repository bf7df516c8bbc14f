package main

import (
	"os"

	"yakstack/cmd/yakstack/cmd"
)

func main() {
	os.Exit(cmd.Execute(os.Args[1:], os.Stdout, os.Stderr, &cmd.Config{}))
}
