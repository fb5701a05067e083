package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/PolarWolf314/buildseal/internal/acquire"
	"github.com/PolarWolf314/buildseal/internal/auth"
	kerrors "github.com/PolarWolf314/buildseal/internal/errors"
	"github.com/PolarWolf314/buildseal/internal/packaging"
	"github.com/PolarWolf314/buildseal/internal/ui"
	"github.com/PolarWolf314/buildseal/internal/utils"
	"github.com/PolarWolf314/buildseal/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	buildCredentialStdin bool
	buildOwner           string
	buildOutputDir       string
	buildOnUnreadable    string
)

func init() {
	buildCmd.Flags().BoolVar(&buildCredentialStdin, "credential-stdin", false, "read the credential from the first line of stdin")
	buildCmd.Flags().StringVar(&buildOwner, "owner", "", "owner recorded in the provenance file")
	buildCmd.Flags().StringVar(&buildOutputDir, "output-dir", "", "directory for the audit log and provenance files")
	buildCmd.Flags().StringVar(&buildOnUnreadable, "on-unreadable", "", "policy for unreadable files while hashing: abort or skip")
}

func resetBuildCommandState() {
	buildCredentialStdin = false
	buildOwner = ""
	buildOutputDir = ""
	buildOnUnreadable = ""
}

var buildCmd = &cobra.Command{
	Use:   "build <locator>",
	Short: "Build or fetch a project, hash it and record provenance",
	Long: `Authenticates, then acquires the build input and seals it.

The locator is either:
  - a repository URL (http:// or https://), whose main-branch snapshot is
    downloaded and extracted into the work directory, or
  - a local source file (ending in the configured suffix, .py by default),
    which is packaged with the configured tool; the working directory is
    then hashed.

On success the SHA-256 digest is printed and written to project_hash.txt
together with the owner and a timestamp. A wrong credential records an
"Unauthorized access attempt" alert and exits with status 1.

Examples:
  buildseal build app.py
  buildseal build https://github.com/org/repo
  echo "$CRED" | buildseal build app.py --credential-stdin`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func runBuild(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting build command")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if buildOwner != "" {
		cfg.Owner = strings.TrimSpace(buildOwner)
	}
	if buildOutputDir != "" {
		cfg.OutputDir = buildOutputDir
	}
	if buildOnUnreadable != "" {
		cfg.Hash.OnUnreadable = buildOnUnreadable
	}
	if strings.TrimSpace(cfg.Owner) == "" {
		cfg.Owner = utils.DefaultOwner()
		Logger.Debugf("No owner configured, using account name %q", cfg.Owner)
	}

	if err := cfg.Validate(); err != nil {
		Logger.Debugf("Configuration invalid: %v", err)
		return finishBuild(formatBuildError(err), 1)
	}

	announcer := newAnnouncer()
	credential, err := readCredential(ctx, buildCredentialStdin, announcer)
	if err != nil {
		return Logger.ErrorfAndReturn("failed to read credential: %v", err)
	}

	log := newAuditLog()
	gate, err := auth.NewGate(cfg.Credential, log, announcer)
	if err != nil {
		return finishBuild(formatBuildError(err), 1)
	}

	hasher, err := newHasher("")
	if err != nil {
		return finishBuild(formatBuildError(err), 1)
	}

	logger := Logger
	orch := &workflows.Orchestrator{
		Gate: gate,
		Fetcher: acquire.NewFetcher(acquire.Options{
			WorkDir:       cfg.WorkDir,
			ArchiveSuffix: cfg.Fetch.ArchiveSuffix,
			Timeout:       cfg.Fetch.Timeout.Duration,
			Retries:       cfg.Fetch.Retries,
		}, &logger),
		Packager:     packaging.Command{Tool: cfg.Packaging.Tool, Args: cfg.Packaging.Args},
		Hasher:       hasher,
		Log:          log,
		Recorder:     newRecorder(),
		Announcer:    announcer,
		SourceSuffix: cfg.SourceSuffix,
		LocalRoot:    ".",
		Exclude:      []string{cfg.WorkDir},
	}

	spinner, cleanup := startSpinner("Building...")
	orch.OnState = func(s workflows.State) {
		Logger.Debugf("Build state: %s", s)
		if !s.Terminal() {
			setSpinnerSuffix(spinner, strings.ToUpper(s.String()[:1])+s.String()[1:]+"...")
		}
	}

	result, err := orch.Build(ctx, workflows.BuildOptions{
		Locator:    args[0],
		Credential: credential,
		Owner:      cfg.Owner,
	})
	if err != nil {
		Logger.Debugf("Build failed in state %v: %v", result.State, err)
		spinner.FinalMSG = formatBuildError(err)
		if errors.Is(err, kerrors.ErrUnauthorized) {
			spinner.FinalMSG = ui.Error.Sprint("✗") + " Unauthorized."
		}
		cleanup()
		exitFunc(1)
		return nil
	}

	finalMessage := ui.Success.Sprint("✓") + " Build secured. SHA256: " + ui.Digest.Sprint(result.Hash.Digest.String())
	if len(result.Hash.Skipped) > 0 {
		finalMessage += "\n" + formatSkipped(result.Hash.Skipped)
	}
	finalMessage += "\n" + ui.Info.Sprint("→") + " Provenance written to " + ui.Path.Sprint(newRecorder().HashPath())
	spinner.FinalMSG = finalMessage
	cleanup()
	return nil
}

// finishBuild prints message and exits with code.
func finishBuild(message string, code int) error {
	fmt.Println(message)
	exitFunc(code)
	return nil
}
