// Package id generates identifiers for connections and pushed documents.
package id

import (
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// pushAlphabet is in ASCII order so push keys sort by creation time.
const pushAlphabet = "-0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz"

const (
	pushTimeChars   = 8
	pushRandomChars = 12
)

// Generate creates a prefixed unique ID using NanoID.
// Format: prefix-nanoid (e.g., "sse-V1StGXR8_Z5jdHi6B-myT").
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// PushKey creates a 20 character key for a document appended to a collection.
// The first 8 characters encode the millisecond timestamp, so keys created later sort later.
func PushKey(now time.Time) (string, error) {
	ms := now.UnixMilli()

	var prefix [pushTimeChars]byte
	for i := pushTimeChars - 1; i >= 0; i-- {
		prefix[i] = pushAlphabet[ms%int64(len(pushAlphabet))]
		ms /= int64(len(pushAlphabet))
	}

	suffix, err := gonanoid.Generate(pushAlphabet, pushRandomChars)
	if err != nil {
		return "", fmt.Errorf("generate push key: %w", err)
	}
	return string(prefix[:]) + suffix, nil
}
