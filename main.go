package main

import "github.com/dataviz-ai/dataviz-go/cmd"

func main() {
	cmd.Execute()
}
