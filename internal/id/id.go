// Package id generates prefixed identifiers for connections and other runtime entities.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// PrefixConnection marks websocket connection IDs.
const PrefixConnection = "conn"

// Generate creates a prefixed NanoID, e.g. "conn-V1StGXR8_Z5jdHi6B-myT".
// Fails only when the system cannot supply secure randomness.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}
