package main

import (
	"os"

	"structmap/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
