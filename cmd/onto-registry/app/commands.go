// Package app provides the commands of the onto-registry command line tool.
package app

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/stacklok/ontology-registry/internal/app"
	"github.com/stacklok/ontology-registry/internal/config"
	"github.com/stacklok/ontology-registry/internal/versions"
)

const (
	flagConfig         = "config"
	flagEndpoint       = "endpoint"
	flagVerbosity      = "verbosity"
	flagRequestTimeout = "request-timeout"
)

// RootOption configures the command tree built by NewRootCmd
type RootOption func(*rootOptions)

type rootOptions struct {
	clientLogHandler slog.Handler
}

// WithClientLogHandler sets the handler management clients log through. Records
// reaching it are filtered by the client verbosity only, so "verbosity debug" in a
// shell shows request logs whatever the process log level is.
func WithClientLogHandler(h slog.Handler) RootOption {
	return func(o *rootOptions) {
		o.clientLogHandler = h
	}
}

// appOptions returns the options every command builds its RegistryApp with
func (o *rootOptions) appOptions(cfg *config.Config, extra ...app.RegistryAppOptions) []app.RegistryAppOptions {
	opts := []app.RegistryAppOptions{app.WithConfig(cfg)}
	if o.clientLogHandler != nil {
		opts = append(opts, app.WithLogHandler(o.clientLogHandler))
	}
	return append(opts, extra...)
}

// NewRootCmd creates the root command. Every call returns an independent command
// tree with its own viper instance.
func NewRootCmd(opts ...RootOption) *cobra.Command {
	o := &rootOptions{}
	for _, opt := range opts {
		opt(o)
	}

	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:               "onto-registry",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Client-side registry of named ontology instances",
		Long: `onto-registry keeps a local collection of ontology handles consistent with a
remote management service. The management service decides which named ontology
instances exist; onto-registry mirrors it so handles can be looked up locally.`,
		Run: func(cmd *cobra.Command, _ []string) {
			// If no subcommand is provided, print help
			if err := cmd.Help(); err != nil {
				slog.Error("Error displaying help", "error", err)
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String(flagConfig, "", "Path to configuration file (YAML format)")
	flags.String(flagEndpoint, "", "Management service URL (overrides the configuration file)")
	flags.String(flagVerbosity, "", "Client verbosity: silent, error, info or debug")
	flags.Duration(flagRequestTimeout, 0, "Timeout of a single management call")
	bindFlags(v, flags, flagConfig, flagEndpoint, flagVerbosity, flagRequestTimeout)

	rootCmd.AddCommand(newShellCmd(v, o))
	rootCmd.AddCommand(newListCmd(v, o))
	rootCmd.AddCommand(newWaitCmd(v, o))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// bindFlags binds the named flags of fs to v
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, names ...string) {
	for _, name := range names {
		if err := v.BindPFlag(name, fs.Lookup(name)); err != nil {
			slog.Error("Error binding flag", "flag", name, "error", err)
		}
	}
}

// loadConfig resolves the configuration file and applies flag and environment overrides
func loadConfig(v *viper.Viper) (*config.Config, error) {
	cfg := config.Default()
	if path := v.GetString(flagConfig); path != "" {
		loaded, err := config.LoadConfig(config.WithConfigPath(path))
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
		slog.Debug("Loaded configuration", "path", path)
	}

	if endpoint := v.GetString(flagEndpoint); endpoint != "" {
		cfg.Manager.Endpoint = endpoint
	}
	if verbosity := v.GetString(flagVerbosity); verbosity != "" {
		cfg.Manager.Verbosity = verbosity
	}
	if timeout := v.GetDuration(flagRequestTimeout); timeout > 0 {
		cfg.Manager.RequestTimeout = timeout.String()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versions.GetVersionInfo()
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return err
			}

			switch format {
			case "json":
				output, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to format version info as JSON: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(output))
			case "", "text":
				fmt.Fprint(cmd.OutOrStdout(), info.String())
			default:
				return fmt.Errorf("unknown format %q (expected text or json)", format)
			}
			return nil
		},
	}
	cmd.Flags().String("format", "", "Output format (text or json)")
	return cmd
}
