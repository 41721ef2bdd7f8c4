package main

import "github.com/MyNameIsWhaaat/commentthread/internal/cli"

func main() {
	cli.Execute()
}
