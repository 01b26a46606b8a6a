// Package id generates random identifiers for sandboxes, commands and
// other API-visible resources.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Generate returns prefix followed by 16 hex characters sourced from
// crypto/rand, e.g. Generate("sbx-") -> "sbx-1a2b3c4d5e6f7089".
func Generate(prefix string) (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return prefix + hex.EncodeToString(buf), nil
}

// MustGenerate is Generate but panics when the system randomness source
// fails. Only appropriate where an id failure is unrecoverable anyway.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(err)
	}
	return id
}
