package main

import "github.com/ppf/cryptowatcher/internal/cli"

func main() {
	cli.Execute()
}
