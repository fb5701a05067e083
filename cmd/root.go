package cmd

import (
	"os"

	"github.com/PolarWolf314/buildseal/internal/configs"
	logger "github.com/PolarWolf314/buildseal/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	verbose    bool
	debug      bool
	configPath string
	Logger     logger.Logger

	// cfg is built once per invocation in PersistentPreRunE.
	cfg *configs.Config

	// exitFunc is the function called to exit with a specific code.
	// Can be overridden for testing.
	exitFunc = os.Exit

	RootCmd = &cobra.Command{
		Use:   "buildseal",
		Short: "buildseal - build, hash and seal a project with an audit trail",
		Long: `buildseal packages a source file or fetches a repository snapshot, computes a
SHA-256 integrity digest over the resulting tree, and records who built it and when.

Every privileged run is gated by a shared credential. Failed attempts, failed
builds and detected tampering are appended to quantum_memory.json and the most
recent alert is written to tamper_alert.txt.

Usage:
  buildseal <command> [flags]

Run 'buildseal help <command>' for more details on a specific command.
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
			}
			Logger.Debugf("Initializing %s with verbose=%t, debug=%t", cmd.Name(), verbose, debug)

			loaded, err := configs.Load(configPath)
			if err != nil {
				return Logger.ErrorfAndReturn("failed to load configuration: %v", err)
			}
			loaded.ApplyEnv(os.LookupEnv)
			cfg = loaded
			Logger.Debugf("Output dir: %s, work dir: %s", cfg.OutputDir, cfg.WorkDir)
			return nil
		},
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default is <user config dir>/buildseal/config.toml)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")

	RootCmd.AddCommand(buildCmd)
	RootCmd.AddCommand(hashCmd)
	RootCmd.AddCommand(verifyCmd)
	RootCmd.AddCommand(watchCmd)
	RootCmd.AddCommand(logCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return RootCmd.Execute()
}

// Helper functions for testing

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	configPath = ""
	cfg = nil
	exitFunc = os.Exit
	resetBuildCommandState()
	resetHashCommandState()
	resetWatchCommandState()
	resetLogCommandState()
	resetVersionCommandState()
	resetCobraFlagState(RootCmd)
}

// resetCobraFlagState clears the Changed mark on every flag of cmd and its
// subcommands to prevent test pollution.
func resetCobraFlagState(cmd *cobra.Command) {
	reset := func(flag *pflag.Flag) {
		flag.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetCobraFlagState(sub)
	}
}

// SetExitFunc sets the exit function for testing purposes.
func SetExitFunc(f func(int)) {
	exitFunc = f
}

// SetLogger sets the logger for testing.
func SetLogger(l logger.Logger) {
	Logger = l
}
