package workflows

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PolarWolf314/buildseal/internal/audit"
	kerrors "github.com/PolarWolf314/buildseal/internal/errors"
)

// LogOptions configures the log workflow.
type LogOptions struct {
	// Alerts and Builds select which sequences to return. When both are
	// false, both are returned.
	Alerts bool
	Builds bool

	// Limit is the maximum number of entries per sequence. 0 means no limit.
	Limit int

	// Reverse orders entries from most recent to oldest when true.
	Reverse bool

	// Type filters alerts by type (security, build, system).
	Type string

	// Status filters builds by status (success, failed).
	Status string

	// Since filters entries after this date (YYYY-MM-DD format).
	Since string

	// Until filters entries before this date (YYYY-MM-DD format).
	Until string
}

// LogResult contains the outcome of a log operation.
type LogResult struct {
	Alerts []audit.Alert      `json:"alerts,omitempty" yaml:"alerts,omitempty"`
	Builds []audit.BuildEvent `json:"builds,omitempty" yaml:"builds,omitempty"`

	// TotalAlerts and TotalBuilds count entries before filtering.
	TotalAlerts int `json:"-" yaml:"-"`
	TotalBuilds int `json:"-" yaml:"-"`
}

// Log reads and filters the audit log. A missing log reads as empty.
//
// Returns ErrCorruptedLog if the log cannot be parsed.
// Returns ErrInvalidDateFormat if a date filter is malformed.
func Log(ctx context.Context, log *audit.Log, opts LogOptions) (*LogResult, error) {
	doc, err := log.Read()
	if err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}

	var since, until time.Time
	if opts.Since != "" {
		since, err = time.Parse("2006-01-02", opts.Since)
		if err != nil {
			return nil, fmt.Errorf("%w: --since date format invalid, use YYYY-MM-DD", kerrors.ErrInvalidDateFormat)
		}
	}
	if opts.Until != "" {
		until, err = time.Parse("2006-01-02", opts.Until)
		if err != nil {
			return nil, fmt.Errorf("%w: --until date format invalid, use YYYY-MM-DD", kerrors.ErrInvalidDateFormat)
		}
		// Include the entire day by setting to end of day.
		until = until.Add(24*time.Hour - time.Nanosecond)
	}
	inRange := func(ts string) bool {
		if since.IsZero() && until.IsZero() {
			return true
		}
		t, ok := parseTimestamp(ts)
		if !ok {
			return false
		}
		return (since.IsZero() || !t.Before(since)) && (until.IsZero() || !t.After(until))
	}

	both := !opts.Alerts && !opts.Builds
	result := &LogResult{
		TotalAlerts: len(doc.Alerts),
		TotalBuilds: len(doc.Builds),
	}

	if both || opts.Alerts {
		var alerts []audit.Alert
		for _, a := range doc.Alerts {
			if opts.Type != "" && !strings.EqualFold(string(a.Type), opts.Type) {
				continue
			}
			if inRange(a.Timestamp) {
				alerts = append(alerts, a)
			}
		}
		result.Alerts = window(alerts, opts.Limit, opts.Reverse)
	}

	if both || opts.Builds {
		var builds []audit.BuildEvent
		for _, b := range doc.Builds {
			if opts.Status != "" && !strings.EqualFold(string(b.Status), opts.Status) {
				continue
			}
			if inRange(b.Timestamp) {
				builds = append(builds, b)
			}
		}
		result.Builds = window(builds, opts.Limit, opts.Reverse)
	}

	return result, nil
}

// window applies ordering and limit. The limit always keeps the most recent
// entries.
func window[T any](entries []T, limit int, reverse bool) []T {
	if reverse {
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	}

	if limit > 0 && len(entries) > limit {
		if reverse {
			// When reversed, limit takes first N (most recent).
			entries = entries[:limit]
		} else {
			// When not reversed, limit takes last N (most recent).
			entries = entries[len(entries)-limit:]
		}
	}
	return entries
}

// parseTimestamp accepts the log's own format and the plain ISO timestamps
// written by older tools.
func parseTimestamp(ts string) (time.Time, bool) {
	for _, layout := range []string{audit.TimestampFormat, time.RFC3339Nano, "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDateTime formats a timestamp string to YYYY-MM-DD HH:MM:SS format.
func FormatDateTime(ts string) string {
	t, ok := parseTimestamp(ts)
	if !ok {
		if len(ts) >= 19 {
			return ts[:19]
		}
		return ts
	}
	return t.Format("2006-01-02 15:04:05")
}

// FormatBuildDetails summarizes a build event on one line.
func FormatBuildDetails(b audit.BuildEvent) string {
	if b.Status == audit.BuildFailed {
		return b.ErrorMessage
	}
	details := fmt.Sprintf("%d files", b.FileCount)
	if len(b.Skipped) > 0 {
		details += fmt.Sprintf(", %d skipped", len(b.Skipped))
	}
	return details
}
