package main

import (
	"os"

	"github.com/Clark-Hu/movie-scores/cmd/moviectl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
