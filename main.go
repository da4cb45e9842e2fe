package main

import "github.com/wkalt/lazytree/cli/cmd"

func main() {
	cmd.Execute()
}
