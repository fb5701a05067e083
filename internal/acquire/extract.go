package acquire

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	kerrors "github.com/PolarWolf314/buildseal/internal/errors"
)

// Limits applied to every archive Extract unpacks.
var (
	maxEntryBytes int64 = 256 << 20
	maxTotalBytes int64 = 2 << 30
	maxEntries          = 50000
)

// Extract unpacks the zip archive at src into dest and returns the number of
// regular files written. Entries that would land outside dest and symlinks
// are rejected with ErrInvalidArchive, as are archives that exceed the
// per-entry size, total size or entry count limits.
func Extract(src, dest string) (int, error) {
	reader, err := zip.OpenReader(src)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", kerrors.ErrInvalidArchive, err)
	}
	defer func() {
		_ = reader.Close()
	}()

	if len(reader.File) > maxEntries {
		return 0, fmt.Errorf("%w: %d entries exceeds limit of %d", kerrors.ErrInvalidArchive, len(reader.File), maxEntries)
	}

	if err := os.MkdirAll(dest, 0755); err != nil {
		return 0, fmt.Errorf("%w: %v", kerrors.ErrIOFailure, err)
	}

	files := 0
	var total int64
	for _, file := range reader.File {
		target, err := entryPath(dest, file.Name)
		if err != nil {
			return files, err
		}

		mode := file.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0755); err != nil {
				return files, fmt.Errorf("%w: %v", kerrors.ErrIOFailure, err)
			}
		case mode.IsRegular():
			n, err := writeEntry(file, target, maxTotalBytes-total)
			if err != nil {
				return files, err
			}
			total += n
			files++
		default:
			return files, fmt.Errorf("%w: %s has unsupported type %s", kerrors.ErrInvalidArchive, file.Name, mode.Type())
		}
	}
	return files, nil
}

func entryPath(dest, name string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	if clean == "." || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") || filepath.VolumeName(clean) != "" {
		return "", fmt.Errorf("%w: unsafe entry %q", kerrors.ErrInvalidArchive, name)
	}
	return filepath.Join(dest, filepath.FromSlash(clean)), nil
}

// writeEntry copies one regular file to target, reading at most the entry
// limit or the remaining total budget, whichever is smaller.
func writeEntry(file *zip.File, target string, remaining int64) (int64, error) {
	if err := checkEntrySize(file.Name, file.UncompressedSize64, remaining); err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return 0, fmt.Errorf("%w: %v", kerrors.ErrIOFailure, err)
	}

	reader, err := file.Open()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", kerrors.ErrInvalidArchive, file.Name, err)
	}
	defer func() {
		_ = reader.Close()
	}()

	// #nosec G304 -- target is confined to dest by entryPath.
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, file.Mode().Perm()|0600)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", kerrors.ErrIOFailure, err)
	}

	// Declared sizes can lie; the copy itself is bounded too.
	limit := min(maxEntryBytes, remaining)
	n, err := io.Copy(out, io.LimitReader(reader, limit+1))
	closeErr := out.Close()
	if err != nil {
		return n, fmt.Errorf("%w: %s: %v", kerrors.ErrInvalidArchive, file.Name, err)
	}
	if closeErr != nil {
		return n, fmt.Errorf("%w: %v", kerrors.ErrIOFailure, closeErr)
	}
	if n > limit {
		return n, checkEntrySize(file.Name, uint64(n), remaining)
	}
	return n, nil
}

func checkEntrySize(name string, size uint64, remaining int64) error {
	if size > uint64(maxEntryBytes) {
		return fmt.Errorf("%w: %s exceeds %d bytes", kerrors.ErrInvalidArchive, name, maxEntryBytes)
	}
	if remaining < 0 || size > uint64(remaining) {
		return fmt.Errorf("%w: archive expands beyond %d bytes", kerrors.ErrInvalidArchive, maxTotalBytes)
	}
	return nil
}
