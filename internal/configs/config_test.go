package configs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	kerrors "github.com/PolarWolf314/buildseal/internal/errors"
	"github.com/PolarWolf314/buildseal/internal/integrity"
)

func TestDefault_HasNoIdentity(t *testing.T) {
	config := Default()

	if config.Owner != "" {
		t.Errorf("Default owner should be empty, got %q", config.Owner)
	}
	if config.Credential != "" {
		t.Errorf("Default credential should be empty")
	}
	if config.Hash.OnUnreadable != "abort" {
		t.Errorf("Expected default policy abort, got %q", config.Hash.OnUnreadable)
	}
	if config.Fetch.Timeout.Duration != 2*time.Minute {
		t.Errorf("Expected default timeout 2m, got %v", config.Fetch.Timeout.Duration)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buildseal.toml")
	content := `owner = "Jane Doe"
source_suffix = ".go"

[hash]
on_unreadable = "skip"

[fetch]
timeout = "30s"

[packaging]
tool = "go"
args = ["build", "-o", "dist/"]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	config, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if config.Owner != "Jane Doe" {
		t.Errorf("Expected owner Jane Doe, got %q", config.Owner)
	}
	if config.SourceSuffix != ".go" {
		t.Errorf("Expected suffix .go, got %q", config.SourceSuffix)
	}
	if config.Fetch.Timeout.Duration != 30*time.Second {
		t.Errorf("Expected timeout 30s, got %v", config.Fetch.Timeout.Duration)
	}
	// Keys absent from the file keep their defaults.
	if config.Fetch.Retries != 2 {
		t.Errorf("Expected default retries 2, got %d", config.Fetch.Retries)
	}
	if config.WorkDir != ".buildseal" {
		t.Errorf("Expected default work dir, got %q", config.WorkDir)
	}

	policy, err := config.UnreadablePolicy()
	if err != nil {
		t.Fatalf("UnreadablePolicy failed: %v", err)
	}
	if policy != integrity.PolicySkip {
		t.Errorf("Expected skip policy, got %v", policy)
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil {
		t.Fatal("Expected error for missing explicit config file")
	}
}

func TestLoad_DefaultLocationMissingIsFine(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AppData", t.TempDir())

	config, err := Load("")
	if err != nil {
		t.Fatalf("Load with no file failed: %v", err)
	}
	if config.SourceSuffix != ".py" {
		t.Errorf("Expected defaults, got suffix %q", config.SourceSuffix)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvCredential: "s3cret",
		EnvOwner:      "  Jane Doe  ",
		EnvOutputDir:  "/tmp/out",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	config := Default()
	config.ApplyEnv(lookup)

	if config.Credential != "s3cret" {
		t.Errorf("Expected credential from env, got %q", config.Credential)
	}
	if config.Owner != "Jane Doe" {
		t.Errorf("Expected trimmed owner, got %q", config.Owner)
	}
	if config.OutputDir != "/tmp/out" {
		t.Errorf("Expected output dir from env, got %q", config.OutputDir)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.Owner = "Jane Doe"
		c.Credential = "s3cret"
		return c
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("Expected valid config, got %v", err)
	}

	noCredential := valid()
	noCredential.Credential = ""
	if err := noCredential.Validate(); !errors.Is(err, kerrors.ErrMissingCredential) {
		t.Errorf("Expected ErrMissingCredential, got %v", err)
	}

	noOwner := valid()
	noOwner.Owner = " "
	if err := noOwner.Validate(); !errors.Is(err, kerrors.ErrMissingOwner) {
		t.Errorf("Expected ErrMissingOwner, got %v", err)
	}

	badPolicy := valid()
	badPolicy.Hash.OnUnreadable = "ignore"
	if err := badPolicy.Validate(); !errors.Is(err, kerrors.ErrInvalidPolicy) {
		t.Errorf("Expected ErrInvalidPolicy, got %v", err)
	}
}
