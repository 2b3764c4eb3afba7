package main

import "github.com/modeltap/modeltap/cmd"

func main() {
	cmd.Execute()
}
