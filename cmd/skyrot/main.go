package main

import "github.com/star/skyrot/internal/cli"

func main() {
	cli.Execute()
}
