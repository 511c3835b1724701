package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/ontology-registry/internal/app"
	"github.com/stacklok/ontology-registry/internal/config"
)

func newWaitCmd(v *viper.Viper, o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Wait until the management service is ready",
		Long: `Wait until the management service answers its health check.

The command exits with a non-zero status if the timeout elapses first. A timeout
of "-1" or "forever" waits until interrupted. Without --timeout the configured
manager.waitTimeout is used.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}

			timeout := cfg.Manager.GetWaitTimeout()
			if raw, _ := cmd.Flags().GetString("timeout"); raw != "" {
				timeout, err = config.ParseWaitTimeout(raw)
				if err != nil {
					return fmt.Errorf("invalid --timeout: %w", err)
				}
			}

			registryApp, err := app.NewRegistryApp(cmd.Context(), o.appOptions(cfg)...)
			if err != nil {
				return fmt.Errorf("failed to build registry: %w", err)
			}
			defer func() { _ = registryApp.Stop(defaultGracefulTimeout) }()

			if err := registryApp.Registry().WaitReady(cmd.Context(), timeout); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "ready")
			return err
		},
	}
	cmd.Flags().String("timeout", "", `How long to wait (e.g. "5s", "forever")`)
	return cmd
}
