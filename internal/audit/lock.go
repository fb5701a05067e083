package audit

import (
	"fmt"
	"os"
	"path/filepath"

	kerrors "github.com/PolarWolf314/buildseal/internal/errors"
)

// acquire blocks until it holds an exclusive lock on path, creating the file
// if needed. The returned function releases the lock.
func acquire(path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("%w: creating %s: %v", kerrors.ErrIOFailure, filepath.Dir(path), err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("%w: opening lock %s: %v", kerrors.ErrIOFailure, path, err)
	}

	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: locking %s: %v", kerrors.ErrIOFailure, path, err)
	}

	return func() {
		_ = unlockFile(f)
		_ = f.Close()
	}, nil
}
