package store

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
)

var idPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// NewID returns a 24-character hex identifier built from 12 random
// bytes.
func NewID() string {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

// ValidID reports whether s has the 24-hex-character shape of a widget
// id. Callers check this before touching the database.
func ValidID(s string) bool {
	return idPattern.MatchString(s)
}
