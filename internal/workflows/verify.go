package workflows

import (
	"context"
	"errors"
	"fmt"

	"github.com/PolarWolf314/buildseal/internal/audit"
	kerrors "github.com/PolarWolf314/buildseal/internal/errors"
	"github.com/PolarWolf314/buildseal/internal/integrity"
	"github.com/PolarWolf314/buildseal/internal/notify"
	"github.com/PolarWolf314/buildseal/internal/provenance"
)

// Verifier re-hashes a tree and compares it with the recorded provenance.
type Verifier struct {
	Hasher    *integrity.Hasher
	Log       *audit.Log
	Recorder  *provenance.Recorder
	Announcer notify.Announcer

	// Exclude lists extra paths kept out of the hash, such as the work dir.
	Exclude []string
}

// VerifyResult contains the outcome of a verification.
type VerifyResult struct {
	Root     string
	Recorded provenance.Record
	Actual   *integrity.Result
	Match    bool
}

// Verify hashes root the same way a build does and compares the digest with
// project_hash.txt.
//
// Returns ErrProvenanceNotFound if no build has been recorded.
// Returns ErrDigestMismatch when the digests differ; a security alert
// "Tamper detected: ..." is appended first and joined to the error if it
// cannot be written.
func (v *Verifier) Verify(ctx context.Context, root string) (*VerifyResult, error) {
	recorded, err := v.Recorder.Read()
	if err != nil {
		return nil, err
	}

	hasher := v.hasher()
	actual, err := hasher.Hash(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("hashing %s: %w", root, err)
	}

	result := &VerifyResult{
		Root:     root,
		Recorded: recorded,
		Actual:   actual,
		Match:    actual.Digest == recorded.Digest,
	}
	if result.Match {
		return result, nil
	}

	message := fmt.Sprintf("Tamper detected: %s hashes to %s, recorded %s", root, actual.Digest, recorded.Digest)
	mismatch := fmt.Errorf("%w: %s", kerrors.ErrDigestMismatch, root)

	if v.Announcer != nil {
		v.Announcer.Announce(ctx, notify.MsgTampered)
	}
	if _, err := v.Log.AppendAlert(audit.AlertSecurity, message); err != nil {
		return result, errors.Join(mismatch, fmt.Errorf("recording alert: %w", err))
	}
	return result, mismatch
}

// LastBuiltRoot returns the tree hashed by the most recent successful build,
// which is the tree project_hash.txt describes. It returns "." when no
// successful build is recorded or the latest one predates root tracking.
func (v *Verifier) LastBuiltRoot() (string, error) {
	doc, err := v.Log.Read()
	if err != nil {
		return "", err
	}
	for i := len(doc.Builds) - 1; i >= 0; i-- {
		if doc.Builds[i].Status != audit.BuildSucceeded {
			continue
		}
		if doc.Builds[i].Root == "" {
			break
		}
		return doc.Builds[i].Root, nil
	}
	return ".", nil
}

func (v *Verifier) hasher() *integrity.Hasher {
	h := integrity.Hasher{}
	if v.Hasher != nil {
		h = *v.Hasher
	}
	exclude := append([]string{}, h.Exclude...)
	exclude = append(exclude, v.Exclude...)
	exclude = append(exclude, v.Log.Files()...)
	exclude = append(exclude, v.Recorder.Files()...)
	h.Exclude = exclude
	return &h
}
