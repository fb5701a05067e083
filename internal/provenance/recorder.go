package provenance

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	kerrors "github.com/PolarWolf314/buildseal/internal/errors"
	"github.com/PolarWolf314/buildseal/internal/integrity"
)

const (
	// HashFileName records who built what, when, and its digest.
	HashFileName = "project_hash.txt"

	// LicenseFileName holds the ownership notice.
	LicenseFileName = "LICENSE.txt"

	// TimestampFormat matches the audit log timestamps.
	TimestampFormat = "2006-01-02T15:04:05.000000Z"
)

// Record is the content of a provenance file.
type Record struct {
	Owner     string
	Timestamp string
	Digest    integrity.Digest
}

// Recorder writes provenance artifacts into Dir.
type Recorder struct {
	Dir string
}

// NewRecorder returns a Recorder for dir.
func NewRecorder(dir string) *Recorder {
	return &Recorder{Dir: dir}
}

// HashPath returns the location of the provenance file.
func (r *Recorder) HashPath() string {
	return filepath.Join(r.Dir, HashFileName)
}

// LicensePath returns the location of the license notice.
func (r *Recorder) LicensePath() string {
	return filepath.Join(r.Dir, LicenseFileName)
}

// Files returns the paths written by Record.
func (r *Recorder) Files() []string {
	return []string{r.HashPath(), r.LicensePath()}
}

// Record overwrites the provenance file and the license notice. Each file is
// replaced atomically; a failure leaves the previous content in place and
// returns ErrIOFailure.
func (r *Recorder) Record(owner string, digest integrity.Digest, ts time.Time) (Record, error) {
	rec := Record{
		Owner:     owner,
		Timestamp: ts.UTC().Format(TimestampFormat),
		Digest:    digest,
	}

	if err := writeAtomic(r.HashPath(), []byte(rec.String())); err != nil {
		return Record{}, fmt.Errorf("%w: writing %s: %v", kerrors.ErrIOFailure, r.HashPath(), err)
	}
	if err := writeAtomic(r.LicensePath(), []byte(LicenseNotice(owner))); err != nil {
		return Record{}, fmt.Errorf("%w: writing %s: %v", kerrors.ErrIOFailure, r.LicensePath(), err)
	}
	return rec, nil
}

// Read parses the provenance file. ErrProvenanceNotFound is returned when it
// does not exist.
func (r *Recorder) Read() (Record, error) {
	data, err := os.ReadFile(r.HashPath())
	if errors.Is(err, os.ErrNotExist) {
		return Record{}, fmt.Errorf("%w: %s", kerrors.ErrProvenanceNotFound, r.HashPath())
	}
	if err != nil {
		return Record{}, fmt.Errorf("%w: reading %s: %v", kerrors.ErrIOFailure, r.HashPath(), err)
	}
	return Parse(data)
}

// String renders the record in the provenance file format.
func (r Record) String() string {
	return fmt.Sprintf("Author: %s\nTimestamp: %s\nSHA256: %s\n", r.Owner, r.Timestamp, r.Digest)
}

// Parse reads a provenance file. Lines are "Key: value"; unknown keys are
// ignored. The SHA256 line is required.
func Parse(data []byte) (Record, error) {
	var rec Record
	var sawDigest bool

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.TrimSpace(key) {
		case "Author":
			rec.Owner = value
		case "Timestamp":
			rec.Timestamp = value
		case "SHA256":
			digest, err := integrity.ParseDigest(value)
			if err != nil {
				return Record{}, err
			}
			rec.Digest = digest
			sawDigest = true
		}
	}
	if err := scanner.Err(); err != nil {
		return Record{}, fmt.Errorf("%w: %v", kerrors.ErrIOFailure, err)
	}
	if !sawDigest {
		return Record{}, fmt.Errorf("%w: no SHA256 line", kerrors.ErrInvalidDigest)
	}
	return rec, nil
}

// LicenseNotice returns the static ownership notice for owner.
func LicenseNotice(owner string) string {
	return "This software is protected by international copyright law.\nCreated by " + owner + "\n"
}

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
	// #nosec G302 -- provenance is published alongside the artifact.
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
