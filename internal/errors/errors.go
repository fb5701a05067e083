package errors

import "errors"

// Access errors indicate the caller was not allowed to run a privileged operation.
var (
	// ErrUnauthorized indicates the presented credential did not match the configured one.
	ErrUnauthorized = errors.New("unauthorized access attempt")

	// ErrMissingCredential indicates no credential has been configured for this process.
	ErrMissingCredential = errors.New("no credential configured")
)

// Acquisition errors indicate the build input could not be obtained.
var (
	// ErrInvalidLocator indicates the locator is neither a remote URL nor a local source file.
	ErrInvalidLocator = errors.New("locator is neither a repository URL nor a source file")

	// ErrFetchFailed indicates the repository snapshot could not be downloaded.
	ErrFetchFailed = errors.New("failed to fetch repository snapshot")

	// ErrInvalidArchive indicates the downloaded archive is malformed or unsafe to extract.
	ErrInvalidArchive = errors.New("invalid archive structure")

	// ErrSourceNotFound indicates the local source file does not exist.
	ErrSourceNotFound = errors.New("source file not found")
)

// Build errors indicate the external packaging step did not succeed.
var (
	// ErrPackagingFailed indicates the packaging tool exited unsuccessfully or could not be started.
	ErrPackagingFailed = errors.New("packaging tool failed")
)

// Storage errors indicate issues reading or writing persisted state.
var (
	// ErrIOFailure indicates a file could not be read during hashing, or an artifact could not be written.
	ErrIOFailure = errors.New("i/o failure")

	// ErrCorruptedLog indicates the audit log exists but cannot be parsed.
	ErrCorruptedLog = errors.New("audit log is corrupted")
)

// Integrity errors indicate issues with digests and provenance records.
var (
	// ErrProvenanceNotFound indicates no provenance record exists at the expected location.
	ErrProvenanceNotFound = errors.New("provenance record not found")

	// ErrDigestMismatch indicates a recomputed digest differs from the recorded one.
	ErrDigestMismatch = errors.New("digest does not match provenance record")

	// ErrInvalidDigest indicates a digest string is not 64 hex characters.
	ErrInvalidDigest = errors.New("invalid digest")
)

// Configuration errors indicate invalid settings.
var (
	// ErrInvalidPolicy indicates an unknown unreadable-file policy name.
	ErrInvalidPolicy = errors.New("invalid unreadable-file policy")

	// ErrMissingOwner indicates no owner identity has been configured.
	ErrMissingOwner = errors.New("no owner configured")

	// ErrInvalidDateFormat indicates a date filter is not YYYY-MM-DD.
	ErrInvalidDateFormat = errors.New("invalid date format")
)
