package main

import "github.com/ntBre/psqs/cmd"

func main() {
	cmd.Execute()
}
