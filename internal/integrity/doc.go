// Package integrity fingerprints directory trees.
//
// A Digest is the SHA-256 of the byte content of every regular file under a
// root, concatenated in traversal order. Traversal order is lexical per
// directory (filepath.WalkDir), which makes the digest a pure function of
// the tree: the same bytes in the same places always produce the same
// digest, on any platform, independent of time or process.
//
// Only file contents contribute. Renaming a file without reordering it
// relative to its neighbours, or changing permissions or timestamps, does
// not change the digest.
//
// # Unreadable Entries
//
// Hasher.Policy decides what happens when a file or directory cannot be
// read. PolicyAbort (the default) fails with errors.ErrIOFailure.
// PolicySkip leaves the entry out and lists it in Result.Skipped; bytes
// from a file that failed partway through are rolled back so the digest
// always equals the digest of the tree without that file.
package integrity
