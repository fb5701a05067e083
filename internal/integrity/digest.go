package integrity

import (
	"encoding/hex"
	"fmt"
	"strings"

	kerrors "github.com/PolarWolf314/buildseal/internal/errors"
)

// Digest is a SHA-256 value over the contents of a tree.
type Digest [32]byte

// String returns the lowercase hex encoding used in provenance records,
// build events and command output.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// IsZero reports whether d is the zero value (no digest computed).
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// ParseDigest parses a 64-character hex digest. Surrounding whitespace is
// ignored and either case is accepted.
func ParseDigest(s string) (Digest, error) {
	var digest Digest
	s = strings.TrimSpace(s)
	if len(s) != hex.EncodedLen(len(digest)) {
		return digest, fmt.Errorf("%w: got %d characters, want 64", kerrors.ErrInvalidDigest, len(s))
	}
	decoded, err := hex.DecodeString(strings.ToLower(s))
	if err != nil {
		return digest, fmt.Errorf("%w: %v", kerrors.ErrInvalidDigest, err)
	}
	copy(digest[:], decoded)
	return digest, nil
}
