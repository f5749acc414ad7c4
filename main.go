package main

import "dwd-connect/internal/cli"

func main() {
	cli.Execute()
}
