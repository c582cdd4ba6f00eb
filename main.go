package main

import "relsave/cmd"

func main() {
	cmd.Execute()
}
