// Package packaging wraps the external tool that turns a source file into a
// standalone executable (pyinstaller --onefile by default).
package packaging
