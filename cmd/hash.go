package cmd

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/buildseal/internal/ui"

	"github.com/spf13/cobra"
)

var (
	hashOnUnreadable string
	hashQuiet        bool
)

func init() {
	hashCmd.Flags().StringVar(&hashOnUnreadable, "on-unreadable", "", "policy for unreadable files: abort or skip")
	hashCmd.Flags().BoolVarP(&hashQuiet, "quiet", "q", false, "print only the digest")
}

func resetHashCommandState() {
	hashOnUnreadable = ""
	hashQuiet = false
}

var hashCmd = &cobra.Command{
	Use:   "hash <dir>",
	Short: "Print the integrity digest of a directory tree",
	Long: `Computes the SHA-256 integrity digest of every regular file under <dir>,
in the same order and with the same policy a build uses.

The tool's own artifacts are left out exactly as in a build, so hashing a
built tree reproduces the recorded digest. Nothing is authenticated, logged
or written.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting hash command")

		hasher, err := newHasher(hashOnUnreadable)
		if err != nil {
			fmt.Println(formatBuildError(err))
			exitFunc(1)
			return nil
		}
		// Same exclusions as a build, so hashing a built tree reproduces its digest.
		hasher.Exclude = append(hasher.Exclude, newAuditLog().Files()...)
		hasher.Exclude = append(hasher.Exclude, newRecorder().Files()...)

		result, err := hasher.Hash(context.Background(), args[0])
		if err != nil {
			fmt.Println(formatBuildError(err))
			exitFunc(1)
			return nil
		}
		Logger.Debugf("Hashed %d files (%d bytes)", result.Files, result.Bytes)

		if hashQuiet {
			fmt.Println(result.Digest.String())
			return nil
		}

		fmt.Println(ui.Success.Sprint("✓") + " SHA256: " + ui.Digest.Sprint(result.Digest.String()))
		fmt.Println(ui.Info.Sprint("→") + fmt.Sprintf(" %d files, %d bytes", result.Files, result.Bytes))
		if len(result.Skipped) > 0 {
			fmt.Print(formatSkipped(result.Skipped))
		}
		return nil
	},
}
