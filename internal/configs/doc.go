// Package configs builds the buildseal runtime configuration.
//
// Configuration is layered, later layers winning:
//
//   - Default(): built-in defaults (no owner, no credential)
//   - TOML file: --config, else <UserConfigDir>/buildseal/config.toml
//   - Environment: BUILDSEAL_CREDENTIAL, BUILDSEAL_OWNER, BUILDSEAL_OUTPUT_DIR
//   - Command-line flags, applied by the cmd package
//
// The resulting *Config is constructed once per process and injected into the
// auth gate, the provenance recorder and the build workflow. There are no
// package-level credential or owner values.
//
// # File Format
//
//	owner = "Jane Doe"
//	output_dir = "."
//	work_dir = ".buildseal"
//	source_suffix = ".py"
//
//	[hash]
//	on_unreadable = "abort"
//
//	[fetch]
//	archive_suffix = "/archive/refs/heads/main.zip"
//	timeout = "2m"
//	retries = 2
//
//	[packaging]
//	tool = "pyinstaller"
//	args = ["--onefile"]
//
//	[announce]
//	speech_command = ["espeak"]
package configs
