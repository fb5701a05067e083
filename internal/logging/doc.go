// Package logger provides leveled console logging for buildseal commands.
//
// # Verbosity Levels
//
// Logging behavior is controlled by two flags:
//
//   - --verbose: Shows info messages
//   - --debug: Shows all messages including debug details
//
// Warnings and errors are always written to stderr.
//
// # Usage
//
//	log := Logger{Verbose: verbose, Debug: debug}
//	log.Infof("Hashing %d files", count)
//
// The root command creates the logger in its PersistentPreRun and passes it
// down to the workflows.
package logger
