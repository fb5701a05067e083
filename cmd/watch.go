package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/PolarWolf314/buildseal/internal/ui"
	"github.com/PolarWolf314/buildseal/internal/workflows"

	"github.com/spf13/cobra"
)

var watchDebounce time.Duration

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", workflows.DefaultDebounce, "quiet period after a change before re-verifying")
}

func resetWatchCommandState() {
	watchDebounce = workflows.DefaultDebounce
}

var watchCmd = &cobra.Command{
	Use:   "watch [root]",
	Short: "Re-verify a tree whenever it changes",
	Long: `Verifies [root] (default: the tree hashed by the last
successful build, else the current directory) against its provenance,
then watches it and verifies again after every burst of changes.

Each mismatch appends a "Tamper detected" alert. Stop with Ctrl-C.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting watch command")

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

		fmt.Println(ui.Info.Sprint("→") + " Watching " + ui.Path.Sprint(root) + " " + ui.Muted.Sprint("Ctrl-C to stop"))
		err = verifier.Watch(ctx, workflows.WatchOptions{
			Root:     root,
			Debounce: watchDebounce,
			OnResult: func(result *workflows.VerifyResult, err error) {
				if result == nil && err != nil && ctx.Err() != nil {
					return
				}
				fmt.Printf("%s %s\n", ui.Muted.Sprint(time.Now().Format("15:04:05")), formatVerifyResult(result, err))
			},
		})
		if err != nil {
			return Logger.ErrorfAndReturn("failed to watch %s: %v", root, err)
		}
		return nil
	},
}
