package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/PolarWolf314/buildseal/internal/audit"
	kerrors "github.com/PolarWolf314/buildseal/internal/errors"
	"github.com/PolarWolf314/buildseal/internal/notify"
)

// UnauthorizedAlert is the alert text recorded on every failed attempt.
const UnauthorizedAlert = "Unauthorized access attempt"

// AlertRecorder persists alerts. *audit.Log satisfies it.
type AlertRecorder interface {
	AppendAlert(kind audit.AlertType, message string) (audit.Alert, error)
}

// Gate checks a presented credential against the configured one.
type Gate struct {
	expected  [sha256.Size]byte
	alerts    AlertRecorder
	announcer notify.Announcer
}

// NewGate returns a Gate for credential. An empty credential is rejected
// with ErrMissingCredential rather than accepting an empty presentation.
func NewGate(credential string, alerts AlertRecorder, announcer notify.Announcer) (*Gate, error) {
	if credential == "" {
		return nil, kerrors.ErrMissingCredential
	}
	if announcer == nil {
		announcer = notify.Nop{}
	}
	return &Gate{
		expected:  sha256.Sum256([]byte(credential)),
		alerts:    alerts,
		announcer: announcer,
	}, nil
}

// Authenticate returns nil when presented equals the configured credential
// exactly. Otherwise it records one UnauthorizedAlert, announces the denial
// and returns ErrUnauthorized. If the alert cannot be written that failure is
// joined to ErrUnauthorized, never substituted for it.
func (g *Gate) Authenticate(ctx context.Context, presented []byte) error {
	got := sha256.Sum256(presented)
	if subtle.ConstantTimeCompare(got[:], g.expected[:]) == 1 {
		return nil
	}

	var alertErr error
	if g.alerts != nil {
		if _, err := g.alerts.AppendAlert(audit.AlertSecurity, UnauthorizedAlert); err != nil {
			alertErr = fmt.Errorf("recording alert: %w", err)
		}
	}
	g.announcer.Announce(ctx, notify.MsgDenied)

	return errors.Join(kerrors.ErrUnauthorized, alertErr)
}
