// Package workflows provides high-level orchestration for buildseal commands.
//
// Workflows coordinate multiple operations across packages (auth, acquire,
// packaging, integrity, provenance, audit) to implement complete
// user-facing features. Each workflow handles a single command's business
// logic, independent of CLI concerns like flag parsing, spinners, and output
// formatting.
//
// # Design Philosophy
//
// The cmd/ package should be a thin layer that:
//   - Parses command-line flags and arguments
//   - Builds the collaborators from configuration
//   - Calls the appropriate workflow
//   - Formats the result for display and picks the exit status
//
// Workflows handle everything else:
//   - Enforcing the authentication gate
//   - Performing the core operation
//   - Recording alerts and build events
//
// # Available Workflows
//
//   - Orchestrator.Build: authenticate, acquire, package, hash, record
//   - Verifier.Verify: re-hash a tree and compare with project_hash.txt
//   - Verifier.Watch: re-verify whenever the tree changes
//   - Log: read and filter alerts and build events
//
// # Build State Machine
//
//	Start → Authenticating → AcquiringContent → {Building | Skipped} →
//	Hashing → RecordingProvenance → Done
//
// Failed is reachable from every step. A wrong credential moves straight
// from Authenticating to Failed; nothing else happens after the gate's
// alert. Every later failure appends a "Build failed: ..." alert and a
// failed build event before returning.
//
// # Error Handling
//
// Workflows return typed errors from the internal/errors package, allowing
// the CLI layer to provide appropriate user-facing messages without string
// matching. Use errors.Is() to check for specific error conditions:
//
//	result, err := orch.Build(ctx, opts)
//	if errors.Is(err, kerrors.ErrUnauthorized) {
//	    // Print the denial and exit 1
//	}
//
// # Context Usage
//
// All workflow functions accept a context.Context as their first parameter.
// Fetching, packaging and hashing stop when it is cancelled.
package workflows
