package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/statelayout/pkg/buildinfo"
)

// versionCommand prints build information.
func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printKeyValue("version", buildinfo.Version)
			printKeyValue("commit", buildinfo.Commit)
			printKeyValue("built", buildinfo.Date)
		},
	}
}
