package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/smrt/version"
)

// VersionCmd represents the version command
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show smrt version information",
	Long:  `Display version, build time, commit hash, and platform information for the smrt binary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")

		info := version.Get()
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), info)
		}
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, info.String())
		fmt.Fprintf(w, "Platform: %s\n", info.Platform)
		fmt.Fprintf(w, "Go: %s\n", info.GoVersion)
		return nil
	},
}

func init() {
	VersionCmd.Flags().BoolP("json", "j", false, "Output version info as JSON")
}
