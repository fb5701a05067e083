package cmd

import (
	"fmt"
	"runtime"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X github.com/PolarWolf314/buildseal/cmd.Version=...".
var Version = "dev"

var versionBanner bool

func init() {
	versionCmd.Flags().BoolVar(&versionBanner, "banner", false, "print the ASCII banner")
}

func resetVersionCommandState() {
	versionBanner = false
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the buildseal version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if versionBanner {
			fmt.Println()
			banner := figure.NewColorFigure("buildseal", "alligator2", "green", true)
			banner.Print()
			fmt.Println()
		}
		fmt.Printf("buildseal %s (%s, %s/%s)\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		return nil
	},
}
