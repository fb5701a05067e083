// Package notify provides the announce capability used to tell the operator
// what a build is doing.
//
// Console prints to a writer, Speech shells out to a configured
// text-to-speech command, and Multi combines several. Recorder captures
// messages in memory and is what tests use.
package notify
