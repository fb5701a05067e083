package integrity

import (
	"context"
	"crypto/sha256"
	"encoding"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	kerrors "github.com/PolarWolf314/buildseal/internal/errors"
)

// ChunkSize is the read size used when folding file contents into the hash.
const ChunkSize = 8192

// Hasher computes a Digest over every regular file under a root directory.
//
// Files are visited in filepath.WalkDir order: entries of each directory
// sorted by name, subdirectories descended in place. Each file's bytes are
// folded into one running SHA-256 in ChunkSize reads. Paths, names and
// metadata are not part of the digest, so a tree holding a single file
// hashes to the SHA-256 of that file. Symbolic links are neither followed
// nor read, and neither are devices, sockets or pipes.
type Hasher struct {
	// Policy selects abort or skip for unreadable entries.
	Policy Policy

	// Exclude lists paths left out of the walk. A directory excludes its
	// whole subtree. Paths outside the root are ignored.
	Exclude []string

	// open is replaced in tests to simulate read failures.
	open func(path string) (io.ReadCloser, error)
}

// SkippedEntry is a file or directory left out under PolicySkip.
type SkippedEntry struct {
	// Path is relative to the hashed root, slash separated.
	Path string
	Err  error
}

// Result is the outcome of hashing one tree.
type Result struct {
	Digest  Digest
	Files   int
	Bytes   int64
	Skipped []SkippedEntry
}

// HashTree hashes root with PolicyAbort and no exclusions.
func HashTree(root string) (Digest, error) {
	result, err := (&Hasher{}).Hash(context.Background(), root)
	if err != nil {
		return Digest{}, err
	}
	return result.Digest, nil
}

// Hash walks root and returns its digest. The root itself must exist and be
// readable regardless of policy. ctx is checked between files.
func (h *Hasher) Hash(ctx context.Context, root string) (*Result, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving %s: %v", kerrors.ErrIOFailure, root, err)
	}

	// A symlinked root is resolved once so the walk descends into it.
	walkRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrIOFailure, err)
	}

	excluded := h.relativeExclusions(absRoot)

	open := h.open
	if open == nil {
		open = func(path string) (io.ReadCloser, error) { return os.Open(path) }
	}

	sum := sha256.New()
	buf := make([]byte, ChunkSize)
	result := &Result{}

	walkErr := filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
		rel, relErr := filepath.Rel(walkRoot, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if err != nil {
			if path == walkRoot {
				return err
			}
			return h.unreadable(result, rel, err, d != nil && d.IsDir())
		}

		if rel != "." && excluded[rel] {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := h.fold(sum, open, path, buf)
		if err != nil {
			return h.unreadable(result, rel, err, false)
		}
		result.Files++
		result.Bytes += n
		return nil
	})
	if walkErr != nil {
		if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
			return nil, walkErr
		}
		if errors.Is(walkErr, kerrors.ErrIOFailure) {
			return nil, walkErr
		}
		return nil, fmt.Errorf("%w: %v", kerrors.ErrIOFailure, walkErr)
	}

	copy(result.Digest[:], sum.Sum(nil))
	return result, nil
}

// fold streams one file into sum. Under PolicySkip the hash state is
// snapshotted first so a read failure halfway through a file leaves no
// partial bytes in the digest.
func (h *Hasher) fold(sum hash.Hash, open func(string) (io.ReadCloser, error), path string, buf []byte) (int64, error) {
	var snapshot []byte
	if h.Policy == PolicySkip {
		state, err := sum.(encoding.BinaryMarshaler).MarshalBinary()
		if err != nil {
			return 0, err
		}
		snapshot = state
	}

	file, err := open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	var total int64
	for {
		n, readErr := file.Read(buf)
		if n > 0 {
			sum.Write(buf[:n])
			total += int64(n)
		}
		if readErr == io.EOF {
			return total, nil
		}
		if readErr != nil {
			if snapshot != nil {
				if err := sum.(encoding.BinaryUnmarshaler).UnmarshalBinary(snapshot); err != nil {
					return 0, err
				}
			}
			return 0, readErr
		}
	}
}

// unreadable applies the policy to an entry that could not be read.
func (h *Hasher) unreadable(result *Result, rel string, cause error, isDir bool) error {
	if h.Policy != PolicySkip {
		return fmt.Errorf("%w: reading %s: %v", kerrors.ErrIOFailure, rel, cause)
	}
	result.Skipped = append(result.Skipped, SkippedEntry{Path: rel, Err: cause})
	if isDir {
		return filepath.SkipDir
	}
	return nil
}

func (h *Hasher) relativeExclusions(absRoot string) map[string]bool {
	excluded := make(map[string]bool, len(h.Exclude))
	for _, p := range h.Exclude {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(absRoot, abs)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		excluded[filepath.ToSlash(rel)] = true
	}
	return excluded
}
