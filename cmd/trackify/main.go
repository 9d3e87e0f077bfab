package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/dukerupert/trackify/internal/cli"
)

var version = "dev"

func main() {
	// A .env file is optional; real environment variables take precedence.
	_ = godotenv.Load()

	var c cli.CLI
	ctx := kong.Parse(&c,
		kong.Name("trackify"),
		kong.Description("Habit tracking API with streaks, heatmaps and a social feed."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	if err := ctx.Run(&c.Config); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
