package main

import "github.com/naka-gawa/ctrl/cmd"

func main() {
	cmd.Execute()
}
