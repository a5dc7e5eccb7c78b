/* *****************************************************************************
 * Nehonix XyPriss System CLI
 * (see root.go for full license header)
 ***************************************************************************** */

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X .../cli.Version=...".
// It defaults to "dev" for local builds.
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the gateway version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("dynagate", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
