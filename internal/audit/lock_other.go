//go:build !unix && !windows

package audit

import "os"

// No advisory locking on this platform; only one writer process is safe.
func lockFile(f *os.File) error { return nil }

func unlockFile(f *os.File) error { return nil }
