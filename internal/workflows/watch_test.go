package workflows

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/PolarWolf314/buildseal/internal/audit"
	kerrors "github.com/PolarWolf314/buildseal/internal/errors"
	"github.com/PolarWolf314/buildseal/internal/provenance"
)

type watchOutcome struct {
	result *VerifyResult
	err    error
}

func TestWatch_DetectsChangeAfterDebounce(t *testing.T) {
	f, v := builtTree(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outcomes := make(chan watchOutcome, 16)
	done := make(chan error, 1)
	go func() {
		done <- v.Watch(ctx, WatchOptions{
			Root:     f.root,
			Debounce: 20 * time.Millisecond,
			OnResult: func(r *VerifyResult, err error) {
				outcomes <- watchOutcome{r, err}
			},
		})
	}()

	select {
	case first := <-outcomes:
		if first.err != nil || !first.result.Match {
			t.Fatalf("expected initial verification to match, got %+v, %v", first.result, first.err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for initial verification")
	}

	writeFile(t, filepath.Join(f.root, "data", "b.txt"), "tampered")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case o := <-outcomes:
			if errors.Is(o.err, kerrors.ErrDigestMismatch) {
				cancel()
				if err := <-done; err != nil {
					t.Errorf("Watch returned error: %v", err)
				}
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for tamper detection")
		}
	}
}

func TestWatch_StopsOnCancel(t *testing.T) {
	f, v := builtTree(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- v.Watch(ctx, WatchOptions{Root: f.root})
	}()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil on cancel, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not stop after cancel")
	}
}

func TestWatch_MissingRoot(t *testing.T) {
	_, v := builtTree(t)
	err := v.Watch(context.Background(), WatchOptions{Root: filepath.Join(t.TempDir(), "missing")})
	if err == nil {
		t.Error("expected error for a missing root")
	}
}

func TestIsIgnored(t *testing.T) {
	ignored := []string{filepath.FromSlash("/out/quantum_memory.json"), filepath.FromSlash("/out/.buildseal")}

	cases := map[string]bool{
		"/out/quantum_memory.json":          true,
		"/out/.quantum_memory.json-123.tmp": true,
		"/out/.buildseal/repo/a.txt":        true,
		"/out/.buildseal":                   true,
		"/out/app.py":                       false,
		"/out/quantum_memory.json.bak":      false,
		"/out/.buildsealer":                 false,
	}
	for path, want := range cases {
		if got := isIgnored(filepath.FromSlash(path), ignored); got != want {
			t.Errorf("isIgnored(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestIgnoredPaths_KeepsRootInsideWorkDir(t *testing.T) {
	base := t.TempDir()
	workDir := filepath.Join(base, ".buildseal")
	root := filepath.Join(workDir, "repo")

	v := &Verifier{
		Log:      audit.NewLog(base),
		Recorder: provenance.NewRecorder(base),
		Exclude:  []string{workDir},
	}

	ignored := v.ignoredPaths(root)
	for _, p := range ignored {
		if p == workDir {
			t.Errorf("work dir containing the root should not be ignored: %v", ignored)
		}
	}
	if isIgnored(filepath.Join(root, "repo-main", "a.txt"), ignored) {
		t.Error("files under the root should not be ignored")
	}
	if !isIgnored(filepath.Join(base, "quantum_memory.json"), ignored) {
		t.Error("audit document should still be ignored")
	}
}
