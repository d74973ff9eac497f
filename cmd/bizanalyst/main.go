package main

import "github.com/comigor/bizanalyst/internal/cli"

func main() {
	cli.Execute()
}
