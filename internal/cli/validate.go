/* *****************************************************************************
 * Nehonix XyPriss System CLI
 * (see root.go for full license header)
 ***************************************************************************** */

package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Nehonix-Team/dynagate/internal/config"
)

var validateConfigPath string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate a gateway configuration file without starting it",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(validateConfigPath)
		if err != nil {
			return err
		}
		green := color.New(color.FgGreen, color.Bold)
		green.Printf("OK")
		fmt.Printf(" — %d service(s) configured, listening on %s:%d\n", len(cfg.Services), cfg.Host, cfg.Port)
		for name, svc := range cfg.Services {
			fmt.Printf("  - %-20s base=%-28s idle=%-8s proxyOnly=%v routes=%d\n",
				name, svc.Base, svc.IdleTimeout, svc.ProxyOnly, len(svc.Routes))
		}
		if cfg.AdminAPI.Enabled {
			fmt.Printf("  admin plane enabled on %s:%d\n", cfg.AdminAPI.Host, cfg.AdminAPI.Port)
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateConfigPath, "config", "c", "dynagate.yaml", "Path to the gateway configuration file")
	rootCmd.AddCommand(validateCmd)
}
