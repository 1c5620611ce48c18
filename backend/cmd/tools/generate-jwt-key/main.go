package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/threed-dev/threed/shared/crypto"
)

func main() {
	size := flag.Int("bytes", 32, "secret length in bytes")
	flag.Parse()

	key, err := crypto.GenerateSecret(*size)
	if err != nil {
		log.Fatalf("Failed to generate jwt key: %v", err)
	}

	fmt.Println("=================================================")
	fmt.Println("  JWT signing key (HS256)")
	fmt.Println("=================================================")
	fmt.Println()
	fmt.Println("Add this to your config/private.yaml:")
	fmt.Printf("jwt_key: \"%s\"\n", key)
	fmt.Println()
	fmt.Println("or export it:")
	fmt.Printf("JWT_SECRET=%s\n", key)
	fmt.Println()
	fmt.Println("Rotating the key signs every user out.")
	fmt.Println("=================================================")
}
