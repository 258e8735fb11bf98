package main

import "github.com/clwen/ilearning-ics/internal/cli"

func main() {
	cli.Execute()
}
