package utils

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// ReadSecretLine reads the first line of r as a secret. The trailing newline
// (and carriage return) is removed; other whitespace is kept as part of the
// secret. Returns an error if no bytes precede the first newline.
func ReadSecretLine(r io.Reader) ([]byte, error) {
	line, err := bufio.NewReader(r).ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read credential from stdin: %w", err)
	}

	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))

	if len(line) == 0 {
		return nil, fmt.Errorf("no credential provided on stdin")
	}

	return line, nil
}
