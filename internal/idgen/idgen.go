// Package idgen provides short, URL-safe unique ID generation backed by nanoid.
// It covers auth challenge nonces, CSRF tokens, session tokens, and handshake
// attempt IDs.
package idgen

import (
	nanoid "github.com/matoous/go-nanoid/v2"
)

// alphabet is the character set used for the random portion of an ID.
const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// length is the number of random characters generated (excluding any prefix).
const length = 21

// Generate returns a new unprefixed random ID.
func Generate() string {
	return GenerateWithPrefix("")
}

// GenerateWithPrefix returns a new random ID with the given prefix.
func GenerateWithPrefix(prefix string) string {
	return prefix + nanoid.MustGenerate(alphabet, length)
}

// Challenge returns a nonce suitable for a single auth handshake.
func Challenge() string {
	return GenerateWithPrefix("chal-")
}

// Attempt returns an ID identifying one handshake or signing attempt, used to
// discard results from superseded attempts.
func Attempt() string {
	return GenerateWithPrefix("att-")
}
