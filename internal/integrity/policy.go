package integrity

import (
	"fmt"
	"strings"

	kerrors "github.com/PolarWolf314/buildseal/internal/errors"
)

// Policy decides what happens when a regular file or directory under the
// root cannot be read.
type Policy int

const (
	// PolicyAbort fails the whole traversal with ErrIOFailure.
	PolicyAbort Policy = iota

	// PolicySkip leaves the unreadable entry out of the digest and reports
	// it in Result.Skipped.
	PolicySkip
)

func (p Policy) String() string {
	switch p {
	case PolicyAbort:
		return "abort"
	case PolicySkip:
		return "skip"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy maps "abort" and "skip" to a Policy. An empty string selects
// PolicyAbort.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "abort":
		return PolicyAbort, nil
	case "skip":
		return PolicySkip, nil
	default:
		return PolicyAbort, fmt.Errorf("%w: %q (want abort or skip)", kerrors.ErrInvalidPolicy, s)
	}
}
