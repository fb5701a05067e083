package workflows

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last change before a
// watched tree is re-verified.
const DefaultDebounce = 500 * time.Millisecond

// WatchOptions configures the watch workflow.
type WatchOptions struct {
	// Root is the tree to watch and verify.
	Root string

	// Debounce is the quiet period before re-verifying. Zero uses
	// DefaultDebounce.
	Debounce time.Duration

	// OnResult receives every verification outcome, including the
	// initial one.
	OnResult func(*VerifyResult, error)
}

// Watch verifies Root once, then again after every burst of filesystem
// changes under it. Changes to the tool's own artifacts are ignored so a
// tamper alert does not retrigger verification. Blocks until ctx is
// cancelled.
func (v *Verifier) Watch(ctx context.Context, opts WatchOptions) error {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	report := opts.OnResult
	if report == nil {
		report = func(*VerifyResult, error) {}
	}

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return err
	}
	ignored := v.ignoredPaths(root)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := addTree(watcher, root, ignored); err != nil {
		return err
	}

	report(v.Verify(ctx, opts.Root))

	// Single debounce timer, reset on each relevant event. Initialized
	// stopped; the first event starts it.
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-timer.C:
			report(v.Verify(ctx, opts.Root))

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || isIgnored(abs, ignored) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Lstat(abs); err == nil && info.IsDir() {
					_ = addTree(watcher, abs, ignored)
				}
			}

			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			report(nil, err)
		}
	}
}

// ignoredPaths returns the absolute exclusions. Like the hasher, it drops
// any exclusion that is root or contains it.
func (v *Verifier) ignoredPaths(root string) []string {
	var paths []string
	candidates := append(append(append([]string{}, v.Exclude...), v.Log.Files()...), v.Recorder.Files()...)
	for _, p := range candidates {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		if abs == root || strings.HasPrefix(root, abs+string(filepath.Separator)) {
			continue
		}
		paths = append(paths, abs)
	}
	return paths
}

// addTree watches dir and every directory below it. fsnotify watches are
// not recursive.
func addTree(watcher *fsnotify.Watcher, dir string, ignored []string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isIgnored(path, ignored) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	})
}

// isIgnored reports whether path is one of ignored, lies beneath one, or is
// a temp file written while atomically replacing one.
func isIgnored(path string, ignored []string) bool {
	for _, p := range ignored {
		if path == p || strings.HasPrefix(path, p+string(filepath.Separator)) {
			return true
		}
		tmpPrefix := filepath.Join(filepath.Dir(p), "."+filepath.Base(p)+"-")
		if strings.HasPrefix(path, tmpPrefix) && strings.HasSuffix(path, ".tmp") {
			return true
		}
	}
	return false
}
