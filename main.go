package main

import "github.com/notargets/fekernel/cmd"

func main() {
	cmd.Execute()
}
