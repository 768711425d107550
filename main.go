package main

import "github.com/gaurav-prasanna/trailpipe/cmd"

func main() {
	cmd.Execute()
}
