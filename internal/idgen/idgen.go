// Package idgen provides short, URL-safe identifiers backed by nanoid. They
// tag pulls and token requests in logs and name a dashboard instance on
// shared transports.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

const (
	PrefixInstance = "lw-"
	PrefixPull     = "pull-"
	PrefixToken    = "tok-"
)

// Alphabet defines the character set used for the random portion of the ID.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
var Length = 10

// Generate returns a new instance ID.
func Generate() (string, error) {
	return GenerateWithPrefix(PrefixInstance)
}

// GenerateWithPrefix returns a new unique ID with the given prefix.
func GenerateWithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// Tag returns an ID with the given prefix for log correlation. If the
// random source fails it falls back to the bare prefix.
func Tag(prefix string) string {
	id, err := GenerateWithPrefix(prefix)
	if err != nil {
		return prefix + "unknown"
	}
	return id
}
