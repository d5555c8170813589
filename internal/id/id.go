// Package id generates the prefixed identifiers used for saved items, tags and subscriptions.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for the record kinds linkstash creates.
const (
	PrefixItem         = "itm"
	PrefixTag          = "tag"
	PrefixSubscription = "sub"
)

// Generate creates a prefixed NanoID, e.g. "itm-V1StGXR8_Z5jdHi6B-myT".
// Fails only when the system cannot supply secure randomness.
func Generate(prefix string) (string, error) {
	nid, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + nid, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	v, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return v
}

// Item returns a new saved item ID.
func Item() (string, error) { return Generate(PrefixItem) }

// Tag returns a new tag ID.
func Tag() (string, error) { return Generate(PrefixTag) }
