// Package acquire obtains build input.
//
// A locator is classified as a remote repository (http or https URL), a
// local source file, or invalid. Remote repositories are fetched as a zip
// snapshot into the work directory,
//
//	<work_dir>/repo.zip
//	<work_dir>/repo/...
//
// and extracted with path confinement. The HTTP client retries transient
// failures; a non-200 response is a fetch failure.
package acquire
