package main

import (
	"fmt"
	"os"

	"github.com/MrSnakeDoc/lbsync/cmd/lbsync/commands"
)

func main() {
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ lbsync: %v\n", err)
		os.Exit(1)
	}
}
