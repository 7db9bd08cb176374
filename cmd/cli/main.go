package main

import "tsa-volume-tracker/cmd/cli/cmd"

func main() {
	cmd.Execute()
}
