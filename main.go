package main

import "github.com/jjbbllkk/acidgen/cmd"

func main() {
	cmd.Execute()
}
