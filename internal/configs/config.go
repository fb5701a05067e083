package configs

import (
	"fmt"
	"os"
	"strings"
	"time"

	kerrors "github.com/PolarWolf314/buildseal/internal/errors"
	"github.com/PolarWolf314/buildseal/internal/integrity"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvCredential = "BUILDSEAL_CREDENTIAL"
	EnvOwner      = "BUILDSEAL_OWNER"
	EnvOutputDir  = "BUILDSEAL_OUTPUT_DIR"
)

// Config is the process-wide configuration, built once at startup and passed
// explicitly to every component that needs it.
type Config struct {
	Owner        string          `toml:"owner"`
	Credential   string          `toml:"credential,omitempty"`
	OutputDir    string          `toml:"output_dir"`
	WorkDir      string          `toml:"work_dir"`
	SourceSuffix string          `toml:"source_suffix"`
	Hash         HashConfig      `toml:"hash"`
	Fetch        FetchConfig     `toml:"fetch"`
	Packaging    PackagingConfig `toml:"packaging"`
	Announce     AnnounceConfig  `toml:"announce"`
}

type HashConfig struct {
	// OnUnreadable is "abort" or "skip".
	OnUnreadable string `toml:"on_unreadable"`
}

type FetchConfig struct {
	ArchiveSuffix string   `toml:"archive_suffix"`
	Timeout       Duration `toml:"timeout"`
	Retries       int      `toml:"retries"`
}

type PackagingConfig struct {
	Tool string   `toml:"tool"`
	Args []string `toml:"args"`
}

type AnnounceConfig struct {
	// SpeechCommand is run with the message appended as the last argument.
	// Empty disables speech.
	SpeechCommand []string `toml:"speech_command"`
}

// Duration wraps time.Duration so it round-trips through TOML as "2m30s".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

// Default returns the configuration used when no file or environment
// overrides are present. Owner and credential are deliberately empty.
func Default() *Config {
	return &Config{
		OutputDir:    ".",
		WorkDir:      ".buildseal",
		SourceSuffix: ".py",
		Hash: HashConfig{
			OnUnreadable: integrity.PolicyAbort.String(),
		},
		Fetch: FetchConfig{
			ArchiveSuffix: "/archive/refs/heads/main.zip",
			Timeout:       Duration{2 * time.Minute},
			Retries:       2,
		},
		Packaging: PackagingConfig{
			Tool: "pyinstaller",
			Args: []string{"--onefile"},
		},
	}
}

// Load reads the configuration file at path on top of Default.
// When path is empty the default location is tried and a missing file is not
// an error; an explicitly named file must exist.
func Load(path string) (*Config, error) {
	config := Default()

	explicit := path != ""
	if !explicit {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return config, nil
		}
		path = defaultPath
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if explicit {
			return nil, fmt.Errorf("config file %s does not exist", path)
		}
		return config, nil
	}

	if err := LoadTOML(path, config); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}

	return config, nil
}

// ApplyEnv overrides fields from environment variables. lookup is normally
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvCredential); ok {
		c.Credential = v
	}
	if v, ok := lookup(EnvOwner); ok && strings.TrimSpace(v) != "" {
		c.Owner = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvOutputDir); ok && v != "" {
		c.OutputDir = v
	}
}

// UnreadablePolicy returns the parsed hash policy.
func (c *Config) UnreadablePolicy() (integrity.Policy, error) {
	return integrity.ParsePolicy(c.Hash.OnUnreadable)
}

// Validate checks the settings a build needs: a credential, an owner and a
// known hash policy.
func (c *Config) Validate() error {
	if c.Credential == "" {
		return kerrors.ErrMissingCredential
	}
	if strings.TrimSpace(c.Owner) == "" {
		return kerrors.ErrMissingOwner
	}
	if _, err := c.UnreadablePolicy(); err != nil {
		return err
	}
	if c.Packaging.Tool == "" {
		return fmt.Errorf("packaging tool must not be empty")
	}
	return nil
}
