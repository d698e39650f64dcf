package main

import "github.com/ppiankov/secretguard/internal/cli"

func main() {
	cli.Execute()
}
