package main

import (
	"os"

	"github.com/wonny/fibivi/cmd/fibivi/commands"
)

// main is the entry point for the fibivi CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/fibivi [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
