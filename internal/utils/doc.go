// Package utils provides shared utility functions for buildseal.
//
// # Terminal Utilities
//
// Functions for reading the build credential without echo:
//   - ReadSecret: prompts and reads from a terminal on stdin
//   - ReadSecretFromTTY: reads from /dev/tty when stdin is redirected
//   - IsTerminal, IsTTYAvailable: terminal detection
//
// # I/O Utilities
//
//   - ReadSecretLine: reads a credential piped on stdin
//
// # System Utilities
//
//   - GetUsername, DefaultOwner: identity of the local account
//
// # String Utilities
//
//   - FormatPaths: formats file paths for human-readable output
package utils
