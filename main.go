package main

import cmd "github.com/moffa90/go-appk/cmd/appk"

func main() {
	cmd.Execute()
}
