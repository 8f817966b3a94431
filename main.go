package main

import "strikebot/cli"

func main() {
	cli.Execute()
}
