package record

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainExperiment prefixes every experiment hash. The version suffix is the
// identity encoding version.
const DomainExperiment = "electrolyte/experiment/v1"

// IDLength is the length of an experiment ID: a hex-encoded SHA-256 digest.
const IDLength = 64

// hashWithDomain computes SHA256(domain || 0x00 || data), hex encoded.
// The null separator keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DeriveID computes the content-addressed ID of an experiment from its scalar
// fields. It is a pure function: the same logical fields always produce the
// same ID regardless of map insertion order.
func DeriveID(fields Fields) (string, error) {
	canonical, err := MarshalCanonical(fields)
	if err != nil {
		return "", fmt.Errorf("DeriveID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainExperiment, canonical), nil
}

// MustDeriveID is like DeriveID but panics on error.
// Use only in tests or when fields are known to be finite.
func MustDeriveID(fields Fields) string {
	id, err := DeriveID(fields)
	if err != nil {
		panic(err)
	}
	return id
}

// ValidID reports whether s has the shape of an experiment ID.
func ValidID(s string) bool {
	if len(s) != IDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f') {
			return false
		}
	}
	return true
}
