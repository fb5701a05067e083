package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/PolarWolf314/buildseal/internal/audit"
	"github.com/PolarWolf314/buildseal/internal/ui"
	"github.com/PolarWolf314/buildseal/internal/workflows"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	logAlerts  bool
	logBuilds  bool
	logLimit   int
	logReverse bool
	logType    string
	logStatus  string
	logSince   string
	logUntil   string
	logJSON    bool
	logYAML    bool
)

func init() {
	logCmd.Flags().BoolVar(&logAlerts, "alerts", false, "show only alerts")
	logCmd.Flags().BoolVar(&logBuilds, "builds", false, "show only build events")
	logCmd.Flags().IntVarP(&logLimit, "number", "n", 0, "show only the last N entries of each kind")
	logCmd.Flags().BoolVar(&logReverse, "reverse", false, "show most recent first")
	logCmd.Flags().StringVar(&logType, "type", "", "filter alerts by type (security, build, system)")
	logCmd.Flags().StringVar(&logStatus, "status", "", "filter builds by status (success, failed)")
	logCmd.Flags().StringVar(&logSince, "since", "", "show entries on or after date (YYYY-MM-DD)")
	logCmd.Flags().StringVar(&logUntil, "until", "", "show entries on or before date (YYYY-MM-DD)")
	logCmd.Flags().BoolVar(&logJSON, "json", false, "output in JSON format")
	logCmd.Flags().BoolVar(&logYAML, "yaml", false, "output in YAML format")
}

func resetLogCommandState() {
	logAlerts = false
	logBuilds = false
	logLimit = 0
	logReverse = false
	logType = ""
	logStatus = ""
	logSince = ""
	logUntil = ""
	logJSON = false
	logYAML = false
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recorded alerts and builds",
	Long: `Shows the alerts and build events recorded in quantum_memory.json.

Use --alerts or --builds to show one kind only, and --json or --yaml for
machine-readable output.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting log command")

		if logJSON && logYAML {
			return Logger.ErrorfAndReturn("--json and --yaml cannot be used together")
		}

		result, err := workflows.Log(context.Background(), newAuditLog(), workflows.LogOptions{
			Alerts:  logAlerts,
			Builds:  logBuilds,
			Limit:   logLimit,
			Reverse: logReverse,
			Type:    logType,
			Status:  logStatus,
			Since:   logSince,
			Until:   logUntil,
		})
		if err != nil {
			fmt.Println(formatBuildError(err))
			exitFunc(1)
			return nil
		}

		switch {
		case logJSON:
			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return Logger.ErrorfAndReturn("failed to marshal JSON: %v", err)
			}
			fmt.Println(string(data))
		case logYAML:
			data, err := yaml.Marshal(result)
			if err != nil {
				return Logger.ErrorfAndReturn("failed to marshal YAML: %v", err)
			}
			fmt.Print(string(data))
		default:
			printLog(result, !logBuilds || logAlerts, !logAlerts || logBuilds)
		}
		return nil
	},
}

func printLog(result *workflows.LogResult, showAlerts, showBuilds bool) {
	if showBuilds {
		fmt.Println(ui.Info.Sprint("Builds") + " " + ui.Muted.Sprint(fmt.Sprintf("%d of %d", len(result.Builds), result.TotalBuilds)))
		if len(result.Builds) == 0 {
			fmt.Println("  " + ui.Muted.Sprint("none"))
		}
		for _, b := range result.Builds {
			mark := ui.Success.Sprint("✓")
			if b.Status == audit.BuildFailed {
				mark = ui.Error.Sprint("✗")
			}
			fmt.Printf("  %s %s  %-24s %s\n", mark, workflows.FormatDateTime(b.Timestamp), b.Filename, workflows.FormatBuildDetails(b))
			if b.Hash != "" {
				fmt.Printf("      %s\n", ui.Digest.Sprint(b.Hash))
			}
		}
	}

	if showAlerts {
		if showBuilds {
			fmt.Println()
		}
		fmt.Println(ui.Warning.Sprint("Alerts") + " " + ui.Muted.Sprint(fmt.Sprintf("%d of %d", len(result.Alerts), result.TotalAlerts)))
		if len(result.Alerts) == 0 {
			fmt.Println("  " + ui.Muted.Sprint("none"))
		}
		for _, a := range result.Alerts {
			kind := string(a.Type)
			if kind == "" {
				kind = "-"
			}
			fmt.Printf("  %s %s  %-8s %s\n", ui.Warning.Sprint("!"), workflows.FormatDateTime(a.Timestamp), kind, a.Message)
		}
	}
}
