package main

import (
	"os"

	"github.com/wonny/carteira/cmd/carteira/commands"
)

// main is the entry point for the carteira CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/carteira [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
