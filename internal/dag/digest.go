package dag

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// DigestAlgorithm is the algorithm tag carried by every digest string.
// Future algorithm migrations introduce a new tag; old digests keep
// theirs, so the two can never silently collide.
const DigestAlgorithm = "sha256"

// DigestBytes computes the content address of the given bytes.
// Format: "<algorithm>:<lowercase-hex>". Pure, deterministic, total.
func DigestBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return DigestAlgorithm + ":" + hex.EncodeToString(sum[:])
}

// DigestValue canonicalizes a value and digests the canonical bytes.
// Returns an error only when the value cannot be canonicalized.
func DigestValue(v Value) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("digest value: %w", err)
	}
	return DigestBytes(canonical), nil
}

// MustDigestValue is like DigestValue but panics on error. Use only when
// the value shape is known valid (e.g., values the builder itself
// constructed from strings).
func MustDigestValue(v Value) string {
	digest, err := DigestValue(v)
	if err != nil {
		panic(err)
	}
	return digest
}

// ValidDigest reports whether s has the "<algorithm>:<hex>" shape.
func ValidDigest(s string) bool {
	algo, hexPart, ok := strings.Cut(s, ":")
	if !ok || algo == "" || hexPart == "" {
		return false
	}
	_, err := hex.DecodeString(hexPart)
	return err == nil
}
