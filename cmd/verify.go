package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	kerrors "github.com/PolarWolf314/buildseal/internal/errors"
	"github.com/PolarWolf314/buildseal/internal/ui"
	"github.com/PolarWolf314/buildseal/internal/workflows"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [root]",
	Short: "Check a tree against its recorded provenance",
	Long: `Re-hashes [root] (default: the tree hashed by the last
successful build, else the current directory) and compares the digest
with project_hash.txt in the output directory.

A mismatch appends a "Tamper detected" alert to the audit log and exits with
status 1.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting verify command")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		verifier, err := newVerifier()
		if err != nil {
			fmt.Println(formatBuildError(err))
			exitFunc(1)
			return nil
		}

		root, err := verifyRoot(verifier, args)
		if err != nil {
			fmt.Println(formatBuildError(err))
			exitFunc(1)
			return nil
		}

		spinner, cleanup := startSpinner("Verifying " + root + "...")
		result, err := verifier.Verify(ctx, root)
		spinner.FinalMSG = formatVerifyResult(result, err)
		cleanup()

		if err != nil {
			exitFunc(1)
		}
		return nil
	},
}

func newVerifier() (*workflows.Verifier, error) {
	hasher, err := newHasher("")
	if err != nil {
		return nil, err
	}
	return &workflows.Verifier{
		Hasher:    hasher,
		Log:       newAuditLog(),
		Recorder:  newRecorder(),
		Announcer: newAnnouncer(),
		Exclude:   []string{cfg.WorkDir},
	}, nil
}

// verifyRoot returns the explicit root argument, or the root the last
// successful build hashed.
func verifyRoot(verifier *workflows.Verifier, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	root, err := verifier.LastBuiltRoot()
	if err != nil {
		return "", err
	}
	Logger.Debugf("Defaulting to root %s", root)
	return root, nil
}

func formatVerifyResult(result *workflows.VerifyResult, err error) string {
	switch {
	case err == nil:
		return ui.Success.Sprint("✓") + " " + ui.Path.Sprint(result.Root) + " matches its provenance. SHA256: " + ui.Digest.Sprint(result.Actual.Digest.String())
	case errors.Is(err, kerrors.ErrDigestMismatch):
		return ui.Error.Sprint("✗") + " Tamper detected in " + ui.Path.Sprint(result.Root) + "\n" +
			ui.Info.Sprint("→") + " Recorded: " + result.Recorded.Digest.String() + "\n" +
			ui.Info.Sprint("→") + " Actual:   " + result.Actual.Digest.String()
	case errors.Is(err, kerrors.ErrProvenanceNotFound):
		return ui.Error.Sprint("✗") + " No provenance record found\n" +
			ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("buildseal build") + " first"
	default:
		return formatBuildError(err)
	}
}
