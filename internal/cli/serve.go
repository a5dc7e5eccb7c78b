/* *****************************************************************************
 * Nehonix XyPriss System CLI
 * (see root.go for full license header)
 ***************************************************************************** */

package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Nehonix-Team/dynagate/internal/config"
	"github.com/Nehonix-Team/dynagate/internal/gateway"
	"github.com/Nehonix-Team/dynagate/internal/watcher"
)

var (
	serveConfigPath string
	serveHostFlag   string
	servePortFlag   int
	serveWatch      bool
	serveQuiet      bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway",
	Long:  "Loads the configuration file, binds the Listener Set, and runs until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !serveQuiet {
			printBanner()
		}

		cfg, err := config.Load(serveConfigPath)
		if err != nil {
			return fmt.Errorf("config invalid: %w", err)
		}
		if cmd.Flags().Changed("host") {
			cfg.Host = serveHostFlag
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = servePortFlag
		}

		gw, err := gateway.New(cfg)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if serveWatch {
			cw, err := watcher.NewConfigWatcher(serveConfigPath)
			if err != nil {
				return fmt.Errorf("watcher: %w", err)
			}
			defer cw.Close()
			if err := cw.Watch(func() {
				reloaded, err := config.Load(serveConfigPath)
				if err != nil {
					log.Printf("[cli] config reload: %v (keeping previous configuration)", err)
					return
				}
				if err := gw.Reload(context.Background(), reloaded); err != nil {
					log.Printf("[cli] config reload: %v", err)
				}
			}); err != nil {
				return fmt.Errorf("watcher: %w", err)
			}
			log.Printf("[cli] watching %s for configuration changes", serveConfigPath)
		}

		return gw.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "dynagate.yaml", "Path to the gateway configuration file")
	serveCmd.Flags().StringVar(&serveHostFlag, "host", "", "Override the main listener host from the config file")
	serveCmd.Flags().IntVar(&servePortFlag, "port", 0, "Override the main listener port from the config file")
	serveCmd.Flags().BoolVarP(&serveWatch, "watch", "w", false, "Reload the routing table when the config file changes")
	serveCmd.Flags().BoolVarP(&serveQuiet, "quiet", "q", false, "Suppress the startup banner")
	rootCmd.AddCommand(serveCmd)
}
