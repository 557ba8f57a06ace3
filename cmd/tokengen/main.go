package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/finwise/advisor/internal/auth"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run cmd/tokengen/main.go <user-id>")
		fmt.Println("Generates a fresh bearer token for the user and the SHA-256 hash to put in config.yaml")
		os.Exit(1)
	}

	userID := os.Args[1]
	token := "fin_" + uuid.New().String()
	hash := auth.HashToken(token)

	fmt.Printf("Token (give to the client, shown once): %s\n", token)
	fmt.Println("\nAdd this to your config.yaml:")
	fmt.Printf("  auth:\n")
	fmt.Printf("    tokens:\n")
	fmt.Printf("      - user_id: %q\n", userID)
	fmt.Printf("        token_hash: %q\n", hash)
}
