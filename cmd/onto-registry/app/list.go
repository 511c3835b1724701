package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/ontology-registry/internal/app"
)

func newListCmd(v *viper.Viper, o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the ontology instances held by the management service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}

			registryApp, err := app.NewRegistryApp(cmd.Context(), o.appOptions(cfg)...)
			if err != nil {
				return fmt.Errorf("failed to build registry: %w", err)
			}
			defer func() { _ = registryApp.Stop(defaultGracefulTimeout) }()

			names, err := registryApp.Client().List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list instances: %w", err)
			}

			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch format {
			case "json":
				if names == nil {
					names = []string{}
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(names)
			case "", "text":
				for _, n := range names {
					if _, err := fmt.Fprintln(out, n); err != nil {
						return err
					}
				}
				return nil
			default:
				return fmt.Errorf("unknown format %q (expected text or json)", format)
			}
		},
	}
	cmd.Flags().String("format", "", "Output format (text or json)")
	return cmd
}
