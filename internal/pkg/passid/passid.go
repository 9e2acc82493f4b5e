// Package passid mints the external identifiers printed on issued passes.
//
// Every issuance path must go through New. An identifier is 16 bytes read
// from crypto/rand, hex encoded (32 characters). With n identifiers issued
// the probability that any two collide is bounded by n*n / 2^129, which is
// below 1e-18 for n = 10^10. The store still enforces uniqueness with an
// index; a collision surfaces as a duplicate error and the caller mints
// once more.
package passid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
)

const (
	// ByteLen is the number of random bytes in an identifier.
	ByteLen = 16
	// Len is the length of the encoded identifier.
	Len = ByteLen * 2
)

var pattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// Source is where randomness is read from. Tests may replace it.
var Source io.Reader = rand.Reader

// New returns a fresh identifier.
func New() (string, error) {
	b := make([]byte, ByteLen)
	if _, err := io.ReadFull(Source, b); err != nil {
		return "", fmt.Errorf("passid: read random bytes -> %w", err)
	}

	return hex.EncodeToString(b), nil
}

// Valid reports whether s has the shape of an identifier produced by New.
func Valid(s string) bool {
	return pattern.MatchString(s)
}
