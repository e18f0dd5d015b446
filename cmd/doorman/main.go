package main

import "github.com/dverhagen/doorman/cmd/doorman/cmd"

func main() {
	cmd.Execute()
}
