package workflows

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/PolarWolf314/buildseal/internal/acquire"
	"github.com/PolarWolf314/buildseal/internal/audit"
	kerrors "github.com/PolarWolf314/buildseal/internal/errors"
	"github.com/PolarWolf314/buildseal/internal/integrity"
	"github.com/PolarWolf314/buildseal/internal/notify"
	"github.com/PolarWolf314/buildseal/internal/packaging"
	"github.com/PolarWolf314/buildseal/internal/provenance"
)

// Authenticator checks a presented credential. *auth.Gate satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, presented []byte) error
}

// ContentFetcher downloads and unpacks a remote repository.
// *acquire.Fetcher satisfies it.
type ContentFetcher interface {
	Fetch(ctx context.Context, locator string) (*acquire.Snapshot, error)
}

// Orchestrator runs one build at a time through the state machine. All
// collaborators are injected; nil Announcer and Now fall back to no-op and
// time.Now.
type Orchestrator struct {
	Gate      Authenticator
	Fetcher   ContentFetcher
	Packager  packaging.Packager
	Hasher    *integrity.Hasher
	Log       *audit.Log
	Recorder  *provenance.Recorder
	Announcer notify.Announcer

	// SourceSuffix marks a locator as a local source file.
	SourceSuffix string

	// LocalRoot is hashed after a local build; usually the working directory.
	LocalRoot string

	// Exclude lists extra paths kept out of the hash, such as the work dir.
	Exclude []string

	// OnState, if set, is called on every transition.
	OnState func(State)

	Now func() time.Time
}

// BuildOptions configures the build workflow.
type BuildOptions struct {
	// Locator is a repository URL or a local source file path.
	Locator string

	// Credential is the secret presented by the operator.
	Credential []byte

	// Owner is recorded as the author in the provenance file.
	Owner string
}

// BuildResult contains the outcome of a build. It is returned, partially
// filled, alongside an error when the build fails after authentication.
type BuildResult struct {
	State      State
	Kind       acquire.Kind
	Root       string
	Hash       *integrity.Result
	Provenance provenance.Record
	Event      audit.BuildEvent
	Duration   time.Duration
}

// Build authenticates, acquires content, builds it when it is a local
// source file, hashes the resulting tree and records provenance.
//
// Returns ErrUnauthorized when the credential does not match; nothing but
// the one alert written by the gate happens in that case.
// Returns ErrInvalidLocator, ErrSourceNotFound, ErrFetchFailed,
// ErrInvalidArchive, ErrPackagingFailed or ErrIOFailure when a later step
// fails. Each of those also appends a build alert and a failed build event;
// a failure to write them is joined to the returned error.
func (o *Orchestrator) Build(ctx context.Context, opts BuildOptions) (*BuildResult, error) {
	started := o.now()
	result := &BuildResult{State: StateStart}
	o.enter(result, StateStart)

	if err := o.Log.EnsureInitialized(); err != nil {
		o.enter(result, StateFailed)
		return result, fmt.Errorf("initializing audit log: %w", err)
	}

	o.enter(result, StateAuthenticating)
	if err := o.Gate.Authenticate(ctx, opts.Credential); err != nil {
		o.enter(result, StateFailed)
		return result, err
	}

	event := audit.BuildEvent{
		Filename:  filepath.Base(opts.Locator),
		SourceURL: opts.Locator,
	}

	o.enter(result, StateAcquiringContent)
	result.Kind = acquire.Classify(opts.Locator, o.SourceSuffix)
	switch result.Kind {
	case acquire.Remote:
		event.SourceType = audit.SourceRepository
		o.announce(ctx, notify.MsgDownloading)
		snapshot, err := o.Fetcher.Fetch(ctx, opts.Locator)
		if err != nil {
			return o.fail(ctx, result, event, started, err)
		}
		event.SourceURL = snapshot.URL
		result.Root = snapshot.Root
		o.enter(result, StateSkipped)

	case acquire.LocalFile:
		event.SourceType = audit.SourceFile
		event.SourceURL = ""
		if err := acquire.CheckSourceFile(opts.Locator); err != nil {
			return o.fail(ctx, result, event, started, err)
		}
		o.enter(result, StateBuilding)
		o.announce(ctx, notify.MsgBuilding)
		if err := o.Packager.Package(ctx, opts.Locator); err != nil {
			return o.fail(ctx, result, event, started, err)
		}
		result.Root = o.localRoot()

	default:
		err := fmt.Errorf("%w: %q", kerrors.ErrInvalidLocator, opts.Locator)
		return o.fail(ctx, result, event, started, err)
	}

	o.enter(result, StateHashing)
	event.Root = absPath(result.Root)
	hasher := o.hasher()
	hashed, err := hasher.Hash(ctx, result.Root)
	if err != nil {
		return o.fail(ctx, result, event, started, err)
	}
	result.Hash = hashed
	event.Hash = hashed.Digest.String()
	event.FileCount = hashed.Files
	for _, s := range hashed.Skipped {
		event.Skipped = append(event.Skipped, s.Path)
	}

	o.enter(result, StateRecordingProvenance)
	record, err := o.Recorder.Record(opts.Owner, hashed.Digest, o.now())
	if err != nil {
		return o.fail(ctx, result, event, started, err)
	}
	result.Provenance = record

	event.Status = audit.BuildSucceeded
	event.BuildTimeMS = o.now().Sub(started).Milliseconds()
	stored, err := o.Log.AppendBuild(event)
	if err != nil {
		return o.fail(ctx, result, event, started, fmt.Errorf("recording build: %w", err))
	}
	result.Event = stored
	result.Duration = o.now().Sub(started)

	o.enter(result, StateDone)
	o.announce(ctx, notify.MsgSecured)
	return result, nil
}

// fail moves to Failed and records the cause. Alert and event writes are
// best-effort; the original cause always stays first in the returned error.
func (o *Orchestrator) fail(ctx context.Context, result *BuildResult, event audit.BuildEvent, started time.Time, cause error) (*BuildResult, error) {
	o.enter(result, StateFailed)
	o.announce(ctx, notify.MsgBuildFailed)

	var errs []error
	if _, err := o.Log.AppendAlert(audit.AlertBuild, "Build failed: "+cause.Error()); err != nil {
		errs = append(errs, fmt.Errorf("recording alert: %w", err))
	}

	event.Status = audit.BuildFailed
	event.ErrorMessage = cause.Error()
	event.BuildTimeMS = o.now().Sub(started).Milliseconds()
	if stored, err := o.Log.AppendBuild(event); err != nil {
		errs = append(errs, fmt.Errorf("recording build: %w", err))
	} else {
		result.Event = stored
	}
	result.Duration = o.now().Sub(started)

	if len(errs) == 0 {
		return result, cause
	}
	return result, errors.Join(append([]error{cause}, errs...)...)
}

// hasher returns the configured hasher with the tool's own artifacts added
// to its exclusions, so re-hashing the tree reproduces the recorded digest.
func (o *Orchestrator) hasher() *integrity.Hasher {
	h := integrity.Hasher{}
	if o.Hasher != nil {
		h = *o.Hasher
	}
	exclude := append([]string{}, h.Exclude...)
	exclude = append(exclude, o.Exclude...)
	exclude = append(exclude, o.Log.Files()...)
	exclude = append(exclude, o.Recorder.Files()...)
	h.Exclude = exclude
	return &h
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func (o *Orchestrator) localRoot() string {
	if o.LocalRoot == "" {
		return "."
	}
	return o.LocalRoot
}

func (o *Orchestrator) enter(result *BuildResult, s State) {
	result.State = s
	if o.OnState != nil {
		o.OnState(s)
	}
}

func (o *Orchestrator) announce(ctx context.Context, message string) {
	if o.Announcer != nil {
		o.Announcer.Announce(ctx, message)
	}
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}
