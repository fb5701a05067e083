// Package errors provides typed error values for buildseal.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching.
//
// # Error Categories
//
// Errors are grouped by category:
//
//   - Access errors: credential mismatch or absence (ErrUnauthorized, ErrMissingCredential)
//   - Acquisition errors: fetch and unpack failures (ErrFetchFailed, ErrInvalidArchive)
//   - Build errors: packaging tool failures (ErrPackagingFailed)
//   - Storage errors: hashing and log I/O (ErrIOFailure, ErrCorruptedLog)
//   - Integrity errors: provenance and digest checks (ErrDigestMismatch)
//
// # Usage
//
// Wrap errors with additional context:
//
//	return fmt.Errorf("reading %s: %w: %v", path, errors.ErrIOFailure, err)
//
// Handle errors in the CLI layer:
//
//	result, err := workflows.Build(ctx, opts)
//	if errors.Is(err, kerrors.ErrUnauthorized) {
//	    // Show denial message and exit non-zero
//	}
package errors
