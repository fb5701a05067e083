package audit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	kerrors "github.com/PolarWolf314/buildseal/internal/errors"
)

const (
	// DocumentFileName is the structured audit log.
	DocumentFileName = "quantum_memory.json"

	// AlertFileName holds only the most recent alert, as plain text.
	AlertFileName = "tamper_alert.txt"

	// TimestampFormat is RFC3339 with microseconds, always UTC.
	TimestampFormat = "2006-01-02T15:04:05.000000Z"
)

// Log is the durable audit store. Every mutation takes an exclusive lock on
// a sidecar lock file, reads the whole document, applies the change and
// atomically replaces the document, so concurrent processes never lose each
// other's records.
type Log struct {
	// Path is the JSON document.
	Path string

	// AlertPath is the plain-text last-alert marker.
	AlertPath string

	// Now supplies timestamps; defaults to time.Now.
	Now func() time.Time
}

// NewLog returns a Log storing its files in dir.
func NewLog(dir string) *Log {
	return &Log{
		Path:      filepath.Join(dir, DocumentFileName),
		AlertPath: filepath.Join(dir, AlertFileName),
		Now:       time.Now,
	}
}

// Files returns the paths owned by the log, including the lock file.
func (l *Log) Files() []string {
	return []string{l.Path, l.lockPath(), l.AlertPath}
}

// EnsureInitialized creates the document with empty sequences if it does not
// exist. An existing document is parsed but left untouched; if it cannot be
// parsed ErrCorruptedLog is returned.
func (l *Log) EnsureInitialized() error {
	release, err := acquire(l.lockPath())
	if err != nil {
		return err
	}
	defer release()

	_, exists, err := l.load()
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return l.store(emptyDocument())
}

// AppendAlert records an alert and overwrites the last-alert marker with
// "[ALERT] <message> at <timestamp>".
func (l *Log) AppendAlert(kind AlertType, message string) (Alert, error) {
	alert := Alert{
		Timestamp: l.timestamp(),
		Message:   message,
		Type:      kind,
	}

	err := l.update(func(doc *Document) error {
		doc.Alerts = append(doc.Alerts, alert)
		return nil
	}, func() error {
		marker := fmt.Sprintf("[ALERT] %s at %s\n", alert.Message, alert.Timestamp)
		return writeAtomic(l.AlertPath, []byte(marker))
	})
	if err != nil {
		return Alert{}, err
	}
	return alert, nil
}

// AppendBuild records a build event. ID and Timestamp are filled in when
// empty. The stored event is returned.
func (l *Log) AppendBuild(event BuildEvent) (BuildEvent, error) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp == "" {
		event.Timestamp = l.timestamp()
	}

	err := l.update(func(doc *Document) error {
		doc.Builds = append(doc.Builds, event)
		return nil
	}, nil)
	if err != nil {
		return BuildEvent{}, err
	}
	return event, nil
}

// Read returns the current document. A missing document reads as empty and
// is not created.
func (l *Log) Read() (*Document, error) {
	doc, _, err := l.load()
	return doc, err
}

// update runs mutate against the locked document and persists the result.
// after, if set, runs once the document is stored, still under the lock.
func (l *Log) update(mutate func(*Document) error, after func() error) error {
	release, err := acquire(l.lockPath())
	if err != nil {
		return err
	}
	defer release()

	doc, _, err := l.load()
	if err != nil {
		return err
	}
	if err := mutate(doc); err != nil {
		return err
	}
	if err := l.store(doc); err != nil {
		return err
	}
	if after != nil {
		if err := after(); err != nil {
			return fmt.Errorf("%w: writing %s: %v", kerrors.ErrIOFailure, l.AlertPath, err)
		}
	}
	return nil
}

func (l *Log) load() (*Document, bool, error) {
	data, err := os.ReadFile(l.Path)
	if errors.Is(err, os.ErrNotExist) {
		return emptyDocument(), false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: reading %s: %v", kerrors.ErrIOFailure, l.Path, err)
	}

	doc, err := ParseDocument(data)
	if err != nil {
		return nil, true, fmt.Errorf("%s: %w", l.Path, err)
	}
	return doc, true, nil
}

func (l *Log) store(doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling audit log: %w", err)
	}
	if err := writeAtomic(l.Path, append(data, '\n')); err != nil {
		return fmt.Errorf("%w: writing %s: %v", kerrors.ErrIOFailure, l.Path, err)
	}
	return nil
}

func (l *Log) timestamp() string {
	now := l.Now
	if now == nil {
		now = time.Now
	}
	return now().UTC().Format(TimestampFormat)
}

func (l *Log) lockPath() string {
	return l.Path + ".lock"
}

// ParseDocument decodes an audit document. Anything other than a single JSON
// object whose "builds" and "alerts" members are arrays of objects is
// reported as ErrCorruptedLog. Members this package does not know are kept
// in the Extra maps and written back unchanged.
func ParseDocument(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: not a JSON object", kerrors.ErrCorruptedLog)
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))

	var doc Document
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrCorruptedLog, err)
	}
	if _, err := decoder.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after document", kerrors.ErrCorruptedLog)
	}

	if doc.Builds == nil {
		doc.Builds = []BuildEvent{}
	}
	if doc.Alerts == nil {
		doc.Alerts = []Alert{}
	}
	return &doc, nil
}

// writeAtomic replaces path with data via a synced temp file and rename, so
// readers see either the old or the new content, never a torn write.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	// #nosec G302 -- the audit trail is meant to be readable by the team.
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
