package main

import "github.com/berth-dev/docchat/internal/cli"

func main() {
	cli.Execute()
}
