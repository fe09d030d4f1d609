//go:build ignore

// Prints the stored digest for a password, e.g. to seed a user by hand:
// go run scripts/genhash.go <password>
package main

import (
	"fmt"
	"os"

	"todoweb/internal/service"
)

func main() {
	password := "admin"
	if len(os.Args) > 1 {
		password = os.Args[1]
	}
	h, err := service.HashPassword(password)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Print(h)
}
