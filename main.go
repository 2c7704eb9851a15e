package main

import "github.com/moghouse/gearsweep/cmd"

func main() {
	cmd.Execute()
}
