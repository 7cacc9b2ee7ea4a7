package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/venkat7568/tradego/cmd/tradego/cmd"
)

func main() {
	// Local overrides for credentials and paths; missing file is fine.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
