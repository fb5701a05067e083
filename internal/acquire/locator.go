package acquire

import (
	"fmt"
	"os"
	"strings"

	kerrors "github.com/PolarWolf314/buildseal/internal/errors"
)

// Kind classifies a build locator.
type Kind int

const (
	Invalid Kind = iota
	Remote
	LocalFile
)

func (k Kind) String() string {
	switch k {
	case Remote:
		return "remote"
	case LocalFile:
		return "local-file"
	default:
		return "invalid"
	}
}

// Classify decides how a locator is acquired. URLs with an http or https
// scheme are Remote; anything ending in sourceSuffix is LocalFile. Everything
// else is Invalid.
func Classify(locator, sourceSuffix string) Kind {
	lower := strings.ToLower(strings.TrimSpace(locator))
	switch {
	case strings.HasPrefix(lower, "https://"), strings.HasPrefix(lower, "http://"):
		return Remote
	case sourceSuffix != "" && strings.HasSuffix(locator, sourceSuffix):
		return LocalFile
	default:
		return Invalid
	}
}

// ArchiveURL returns the snapshot URL for a repository locator. A locator
// that already names a .zip is used unchanged; otherwise suffix is appended.
func ArchiveURL(locator, suffix string) string {
	locator = strings.TrimSpace(locator)
	if strings.HasSuffix(strings.ToLower(locator), ".zip") {
		return locator
	}
	return strings.TrimSuffix(locator, "/") + suffix
}

// CheckSourceFile returns ErrSourceNotFound unless path is an existing
// regular file.
func CheckSourceFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s", kerrors.ErrSourceNotFound, path)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", kerrors.ErrSourceNotFound, path)
	}
	return nil
}
