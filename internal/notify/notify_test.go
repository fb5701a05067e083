package notify

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestConsole_WritesOneLinePerMessage(t *testing.T) {
	var buf bytes.Buffer
	c := Console{Out: &buf}

	c.Announce(context.Background(), MsgDownloading)
	c.Announce(context.Background(), MsgBuilding)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], MsgDownloading) {
		t.Errorf("expected first line to contain %q, got %q", MsgDownloading, lines[0])
	}
}

func TestConsole_NilWriter(t *testing.T) {
	Console{}.Announce(context.Background(), "ignored")
}

func TestMulti_FansOut(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	m := Multi{a, nil, b}

	m.Announce(context.Background(), MsgSecured)

	if len(a.Messages) != 1 || len(b.Messages) != 1 {
		t.Errorf("expected each recorder to get 1 message, got %v and %v", a.Messages, b.Messages)
	}
}

func TestSpeech_PassesMessageAsLastArgument(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script")
	}

	dir := t.TempDir()
	out := filepath.Join(dir, "spoken.txt")
	script := filepath.Join(dir, "say.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\nprintf '%s|%s' \"$1\" \"$2\" > \""+out+"\"\n"), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	s := Speech{Command: []string{script, "--fast"}}
	s.Announce(context.Background(), MsgDenied)

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("speech command did not run: %v", err)
	}
	if string(data) != "--fast|"+MsgDenied {
		t.Errorf("unexpected arguments %q", data)
	}
}

func TestSpeech_MissingCommandIsIgnored(t *testing.T) {
	s := Speech{Command: []string{filepath.Join(t.TempDir(), "does-not-exist")}}
	s.Announce(context.Background(), MsgDenied)
}

func TestSpeech_EmptyCommand(t *testing.T) {
	Speech{}.Announce(context.Background(), MsgDenied)
}
