package main

import (
	"os"

	"github.com/VanshAg283/FCS-Project/cmd/fcschat/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
