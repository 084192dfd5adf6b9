package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/piolet-labs/piolet-cli/internal/adapters/driving/cli"
)

func main() {
	// A local .env is optional; secrets can come from the environment.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
