// Package main is the entry point for the genprog CLI.
package main

import "github.com/whr0724/genprog-code/cmd"

func main() {
	cmd.Execute()
}
