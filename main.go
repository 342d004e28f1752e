package main

import "loopbuilder/internal/cli"

func main() {
	cli.Execute()
}
