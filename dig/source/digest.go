package source

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Digest is a 32-byte BLAKE3 hash of an artifact's content. Two artifacts
// with the same digest are the same artifact.
type Digest [32]byte

// shortDigestLen is the number of hex characters in the short form.
const shortDigestLen = 12

// String returns the hex-encoded digest.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Short returns the first 12 hex characters, used in listings and logs.
func (d Digest) Short() string {
	return d.String()[:shortDigestLen]
}

// IsZero reports whether d is the zero value.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// ParseDigest parses a 64-character hex string into a Digest.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("parsing digest: %w", err)
	}
	if len(decoded) != len(d) {
		return d, fmt.Errorf("digest is %d bytes, want %d", len(decoded), len(d))
	}
	copy(d[:], decoded)
	return d, nil
}

// MarshalText encodes the digest as hex.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses a hex digest.
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := ParseDigest(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Sum computes the digest of a single buffer.
func Sum(b []byte) Digest {
	return Digest(blake3.Sum256(b))
}

// sumFragments streams every fragment through one hasher so scatter-gather
// sources never need a merged copy just to be hashed.
func sumFragments(frags []Fragment) Digest {
	h := blake3.New()
	for _, f := range frags {
		_, _ = h.Write(f.Data)
	}
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}
