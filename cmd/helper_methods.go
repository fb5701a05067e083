package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/PolarWolf314/buildseal/internal/audit"
	kerrors "github.com/PolarWolf314/buildseal/internal/errors"
	"github.com/PolarWolf314/buildseal/internal/integrity"
	"github.com/PolarWolf314/buildseal/internal/notify"
	"github.com/PolarWolf314/buildseal/internal/provenance"
	"github.com/PolarWolf314/buildseal/internal/ui"
	"github.com/PolarWolf314/buildseal/internal/utils"
	"github.com/briandowns/spinner"
)

// startSpinner creates and starts a spinner with the given message when not in verbose or debug mode.
// Returns the spinner and a function that should be deferred to clean up.
//
// IMPORTANT: spinner.FinalMSG values do NOT need trailing newlines. The cleanup function
// automatically calls ui.EnsureNewline() on the final message before printing it.
func startSpinner(message string) (*spinner.Spinner, func()) {
	Logger.Debugf("Starting spinner with message: %s", message)
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message

	if err := s.Color("cyan"); err != nil {
		// If we can't set spinner color, just continue without it.
		Logger.Warnf("Failed to set spinner color: %v", err)
	}

	quiet := !verbose && !debug
	if quiet {
		s.Start()
		// Ensure log output is discarded unless in verbose mode.
		log.SetOutput(io.Discard)
	} else {
		Logger.Infof("Running in verbose or debug mode: %s", message)
	}

	cleanup := func() {
		if quiet {
			log.SetOutput(os.Stdout)
		}

		// Ensure final message ends with a newline.
		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}

		// Stop the spinner first to clear the spinner line.
		if quiet {
			s.Stop()
		}

		// Print final message to stdout (for tests to capture).
		if finalMsg != "" {
			fmt.Print(finalMsg)
		}
	}

	return s, cleanup
}

// setSpinnerSuffix replaces the message of a running spinner. The spinner's
// render loop reads Suffix under its own lock.
func setSpinnerSuffix(s *spinner.Spinner, message string) {
	s.Lock()
	s.Suffix = " " + message
	s.Unlock()
}

// newAuditLog returns the audit log in the configured output directory.
func newAuditLog() *audit.Log {
	return audit.NewLog(cfg.OutputDir)
}

// newRecorder returns the provenance recorder for the configured output directory.
func newRecorder() *provenance.Recorder {
	return provenance.NewRecorder(cfg.OutputDir)
}

// newHasher builds a hasher from the configured policy, overridden by flag when non-empty.
func newHasher(policyFlag string) (*integrity.Hasher, error) {
	name := cfg.Hash.OnUnreadable
	if policyFlag != "" {
		name = policyFlag
	}
	policy, err := integrity.ParsePolicy(name)
	if err != nil {
		return nil, err
	}
	return &integrity.Hasher{Policy: policy, Exclude: []string{cfg.WorkDir}}, nil
}

// newAnnouncer speaks through the configured command and, in verbose mode,
// prints each message. Console output would fight the spinner otherwise.
func newAnnouncer() notify.Announcer {
	logger := Logger
	announcers := notify.Multi{notify.Speech{Command: cfg.Announce.SpeechCommand, Log: &logger}}
	if verbose || debug {
		announcers = append(announcers, notify.Console{Out: os.Stdout})
	}
	return announcers
}

// readCredential reads the credential from one line of stdin, the terminal,
// or /dev/tty when stdin is redirected.
func readCredential(ctx context.Context, fromStdin bool, announcer notify.Announcer) ([]byte, error) {
	if fromStdin {
		return utils.ReadSecretLine(os.Stdin)
	}

	announcer.Announce(ctx, notify.MsgPrompt)
	prompt := "Credential: "
	if utils.IsTerminal() {
		return utils.ReadSecret(prompt)
	}
	if utils.IsTTYAvailable() {
		return utils.ReadSecretFromTTY(prompt)
	}
	return nil, fmt.Errorf("no terminal available to read the credential (hint: use --credential-stdin)")
}

// formatSkipped renders entries left out under the skip policy.
func formatSkipped(skipped []integrity.SkippedEntry) string {
	paths := make([]string, 0, len(skipped))
	for _, s := range skipped {
		paths = append(paths, s.Path)
	}
	return ui.Warning.Sprint("⚠") + fmt.Sprintf(" %d unreadable entries were skipped:", len(skipped)) + utils.FormatPaths(paths)
}

// formatBuildError maps workflow errors to user-facing messages.
func formatBuildError(err error) string {
	switch {
	case errors.Is(err, kerrors.ErrUnauthorized):
		return ui.Error.Sprint("✗") + " Unauthorized."
	case errors.Is(err, kerrors.ErrMissingCredential):
		return ui.Error.Sprint("✗") + " No credential configured\n" +
			ui.Info.Sprint("→") + " Set " + ui.Code.Sprint("BUILDSEAL_CREDENTIAL") + " or " + ui.Code.Sprint("credential") + " in the config file"
	case errors.Is(err, kerrors.ErrMissingOwner):
		return ui.Error.Sprint("✗") + " No owner configured\n" +
			ui.Info.Sprint("→") + " Pass " + ui.Flag.Sprint("--owner") + " or set " + ui.Code.Sprint("BUILDSEAL_OWNER")
	case errors.Is(err, kerrors.ErrInvalidPolicy):
		return ui.Error.Sprint("✗") + " " + err.Error() + "\n" +
			ui.Info.Sprint("→") + " Use " + ui.Code.Sprint("abort") + " or " + ui.Code.Sprint("skip")
	case errors.Is(err, kerrors.ErrCorruptedLog):
		return ui.Error.Sprint("✗") + " The audit log is corrupted and was left untouched\n" +
			ui.Info.Sprint("→") + " " + err.Error()
	case errors.Is(err, kerrors.ErrInvalidLocator):
		return ui.Error.Sprint("✗") + " Invalid input: " + err.Error() + "\n" +
			ui.Info.Sprint("→") + " Pass a repository URL or a " + ui.Code.Sprint(cfg.SourceSuffix) + " file"
	case errors.Is(err, kerrors.ErrSourceNotFound):
		return ui.Error.Sprint("✗") + " " + err.Error()
	case errors.Is(err, kerrors.ErrFetchFailed), errors.Is(err, kerrors.ErrInvalidArchive):
		return ui.Error.Sprint("✗") + " Download failed\n" + ui.Info.Sprint("→") + " " + err.Error()
	case errors.Is(err, kerrors.ErrPackagingFailed):
		return ui.Error.Sprint("✗") + " Build failed.\n" + ui.Info.Sprint("→") + " " + err.Error()
	case errors.Is(err, kerrors.ErrIOFailure):
		return ui.Error.Sprint("✗") + " I/O failure\n" + ui.Info.Sprint("→") + " " + err.Error()
	case errors.Is(err, context.Canceled):
		return ui.Error.Sprint("✗") + " Cancelled"
	default:
		return ui.Error.Sprint("✗") + " " + err.Error()
	}
}
