// Package auth gates privileged buildseal operations behind a shared
// credential.
//
// The credential is supplied by configuration (file, environment or
// flag), never compiled in. Comparison is exact and constant-time. A
// mismatch always leaves an audit trail before the caller sees
// errors.ErrUnauthorized.
package auth
