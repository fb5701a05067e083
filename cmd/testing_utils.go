// Package cmd contains testing utilities shared between command tests.
// This file provides common functions for setting up test environments,
// capturing output, and driving the root command.
package cmd

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
)

// testEnv is an isolated working directory with its own config file.
type testEnv struct {
	dir        string
	configPath string
	exitCodes  []int
}

// setupTestEnvironment changes into a fresh temp directory, writes a config
// file there and captures exit codes instead of exiting.
func setupTestEnvironment(t *testing.T, overrides map[string]any) *testEnv {
	t.Helper()

	originalWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}

	env := &testEnv{dir: t.TempDir()}
	env.configPath = filepath.Join(t.TempDir(), "config.toml")

	settings := map[string]any{
		"owner":      "Test Owner",
		"credential": "s3cret",
		"output_dir": ".",
		"work_dir":   ".buildseal",
		"packaging":  map[string]any{"tool": "true", "args": []string{}},
	}
	for k, v := range overrides {
		settings[k] = v
	}

	f, err := os.Create(env.configPath)
	if err != nil {
		t.Fatalf("Failed to create config: %v", err)
	}
	if err := toml.NewEncoder(f).Encode(settings); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	f.Close()

	if err := os.Chdir(env.dir); err != nil {
		t.Fatalf("Failed to change to temp directory: %v", err)
	}

	// t.Setenv restores the original value; Unsetenv makes it absent.
	for _, name := range []string{"BUILDSEAL_CREDENTIAL", "BUILDSEAL_OWNER", "BUILDSEAL_OUTPUT_DIR"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}

	ResetGlobalState()
	SetExitFunc(func(code int) { env.exitCodes = append(env.exitCodes, code) })

	t.Cleanup(func() {
		if err := os.Chdir(originalWd); err != nil {
			t.Fatalf("Failed to change to original directory: %v", err)
		}
		ResetGlobalState()
	})

	return env
}

// run executes the root command with args and the test config.
func (e *testEnv) run(args ...string) (string, error) {
	return captureOutput(func() error {
		RootCmd.SetArgs(append([]string{"--config", e.configPath}, args...))
		return RootCmd.Execute()
	})
}

// runWithStdin is run with stdin replaced by input.
func (e *testEnv) runWithStdin(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()

	reader, writer, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	if _, err := writer.WriteString(input); err != nil {
		t.Fatalf("Failed to write stdin: %v", err)
	}
	writer.Close()

	originalStdin := os.Stdin
	os.Stdin = reader
	defer func() {
		os.Stdin = originalStdin
		reader.Close()
	}()

	return e.run(args...)
}

// lastExitCode returns the most recent exit code, or 0 if exit was never called.
func (e *testEnv) lastExitCode() int {
	if len(e.exitCodes) == 0 {
		return 0
	}
	return e.exitCodes[len(e.exitCodes)-1]
}

// writeFile creates path relative to the environment directory.
func (e *testEnv) writeFile(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(e.dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", rel, err)
	}
}

// captureOutput captures both stdout and stderr during function execution.
func captureOutput(fn func() error) (string, error) {
	// Save original stdout and stderr
	originalStdout := os.Stdout
	originalStderr := os.Stderr

	// Create pipes to capture output
	stdoutReader, stdoutWriter, _ := os.Pipe()
	stderrReader, stderrWriter, _ := os.Pipe()

	// Replace stdout and stderr
	os.Stdout = stdoutWriter
	os.Stderr = stderrWriter

	// Channel to collect output
	outputChan := make(chan string, 2)

	// Start goroutines to read from pipes
	for _, r := range []io.Reader{stdoutReader, stderrReader} {
		go func(r io.Reader) {
			var buf bytes.Buffer
			if _, err := io.Copy(&buf, r); err != nil {
				log.Fatalf("Failed to run copy command: %s", err)
			}
			outputChan <- buf.String()
		}(r)
	}

	// Execute the function
	err := fn()

	// Close writers to signal EOF
	stdoutWriter.Close()
	stderrWriter.Close()

	// Restore original stdout and stderr
	os.Stdout = originalStdout
	os.Stderr = originalStderr

	// Collect output
	first := <-outputChan
	second := <-outputChan

	return fmt.Sprint(first, second), err
}
