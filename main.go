package main

import "github.com/KaramelBytes/tabstat-cli/cmd"

func main() {
	cmd.Execute()
}
