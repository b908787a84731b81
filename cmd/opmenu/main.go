package main

import (
	"os"

	"opmenu/cmd/opmenu/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
