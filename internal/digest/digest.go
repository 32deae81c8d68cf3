// Package digest computes the content fingerprints used across the system.
// The same primitive backs submission deduplication and stored credentials.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// PrefixLen is the number of hex characters used when a digest is
// shortened for display or audit detail.
const PrefixLen = 12

// Bytes returns the hex-encoded SHA-256 digest of b.
func Bytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// File streams the file at path through SHA-256 and returns the
// hex-encoded digest along with the number of bytes read. The file is
// never buffered whole in memory.
func File(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open file for hashing: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("failed to hash file contents: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// Password returns the digest stored for a credential. This is the same
// unsalted content hash, not a key derivation function; credential records
// inherit the fingerprinting primitive rather than a dedicated KDF.
func Password(pw string) string {
	return Bytes([]byte(pw))
}

// Prefix shortens a digest to PrefixLen characters for human-readable
// output. Digests shorter than PrefixLen are returned unchanged.
func Prefix(digest string) string {
	if len(digest) <= PrefixLen {
		return digest
	}
	return digest[:PrefixLen]
}
