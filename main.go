package main

import "github.com/pandaai/panda/cmd"

func main() {
	cmd.Execute()
}
