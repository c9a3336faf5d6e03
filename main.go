package main

import "github.com/notargets/gosfc/cmd"

func main() {
	cmd.Execute()
}
