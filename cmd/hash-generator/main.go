// Command hash-generator prints the bcrypt hash of a password, which is
// useful when seeding user rows by hand during development.
package main

import (
	"fmt"
	"os"

	"github.com/phrazzld/tactics-api/internal/service/auth"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: hash-generator <password>")
		os.Exit(1)
	}

	hasher := auth.NewBcryptHasher(bcrypt.DefaultCost)
	hash, err := hasher.Hash(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hash)
}
