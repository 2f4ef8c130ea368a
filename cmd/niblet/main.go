package main

import "niblet/internal/cli"

func main() {
	cli.Execute()
}
