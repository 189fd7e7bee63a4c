package main

import "github.com/xiaot623/solace/internal/cli"

func main() {
	cli.Execute()
}
