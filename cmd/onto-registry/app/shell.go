package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/ontology-registry/internal/app"
	"github.com/stacklok/ontology-registry/internal/config"
	"github.com/stacklok/ontology-registry/internal/manager"
	"github.com/stacklok/ontology-registry/internal/registry"
)

const (
	flagMetricsAddress = "metrics-address"
	flagWait           = "wait"

	defaultGracefulTimeout = 5 * time.Second
)

const shellHelp = `Commands:
  add NAME            create an ontology instance and bind a handle to it
  copy DEST SRC       create DEST as a copy of SRC
  delete NAME         remove an ontology instance
  get NAME            show the handle bound to NAME
  names               list the locally known names
  wait [TIMEOUT]      wait for the management service ("forever" blocks)
  verbosity LEVEL     set client verbosity: silent, error, info or debug
  help                show this help
  exit                leave the shell
`

func newShellCmd(v *viper.Viper, o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Run an interactive registry session",
		Long: `Start a registry session that reads commands from standard input, one per line.

All commands share a single registry, so names added in the session are known
locally until they are deleted. Type "help" for the list of commands.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShell(cmd, v, o)
		},
	}

	cmd.Flags().String(flagMetricsAddress, "", "Serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().Bool(flagWait, false, "Wait for the management service before reading commands")
	bindFlags(v, cmd.Flags(), flagMetricsAddress, flagWait)
	return cmd
}

func runShell(cmd *cobra.Command, v *viper.Viper, o *rootOptions) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registryApp, err := app.NewRegistryApp(ctx,
		o.appOptions(cfg, app.WithMetricsAddress(v.GetString(flagMetricsAddress)))...,
	)
	if err != nil {
		return fmt.Errorf("failed to build registry: %w", err)
	}
	defer func() {
		if err := registryApp.Stop(defaultGracefulTimeout); err != nil {
			slog.Warn("Shutdown incomplete", "error", err)
		}
	}()

	if err := registryApp.StartMetrics(); err != nil {
		return err
	}

	if v.GetBool(flagWait) {
		if err := registryApp.Registry().WaitReady(ctx, cfg.Manager.GetWaitTimeout()); err != nil {
			return fmt.Errorf("management service not ready: %w", err)
		}
	}

	slog.Info("Registry session started", "endpoint", cfg.Manager.GetEndpoint())
	s := &shell{registry: registryApp.Registry(), out: cmd.OutOrStdout(), waitTimeout: cfg.Manager.GetWaitTimeout()}
	return s.run(ctx, cmd.InOrStdin())
}

// shell executes line commands against one registry
type shell struct {
	registry    *registry.Registry
	out         io.Writer
	waitTimeout time.Duration
}

var errExit = errors.New("exit")

func (s *shell) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		if err := s.exec(ctx, scanner.Text()); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			return err
		}
	}
	return scanner.Err()
}

// exec runs a single command line. Command failures are reported on the output;
// only write errors and exit are returned.
func (s *shell) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return nil
	}
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "add":
		if len(args) != 1 {
			return s.usage("add NAME")
		}
		return s.result(s.registry.Add(ctx, args[0]))
	case "copy":
		if len(args) != 2 {
			return s.usage("copy DEST SRC")
		}
		return s.result(s.registry.Copy(ctx, args[0], args[1]))
	case "delete":
		if len(args) != 1 {
			return s.usage("delete NAME")
		}
		return s.result(s.registry.Delete(ctx, args[0]))
	case "get":
		if len(args) != 1 {
			return s.usage("get NAME")
		}
		return s.get(args[0])
	case "names":
		return s.names()
	case "wait":
		return s.wait(ctx, args)
	case "verbosity":
		if len(args) != 1 {
			return s.usage("verbosity LEVEL")
		}
		level, err := manager.ParseVerbosity(args[0])
		if err != nil {
			return s.printf("error: %v\n", err)
		}
		s.registry.SetVerbosity(level)
		return s.printf("ok\n")
	case "help", "?":
		return s.printf("%s", shellHelp)
	case "exit", "quit":
		return errExit
	default:
		return s.printf("unknown command %q (type help)\n", name)
	}
}

func (s *shell) get(name string) error {
	h, ok := s.registry.Get(name)
	if !ok {
		return s.printf("not found\n")
	}
	if p, ok := h.(interface{ ServicePrefix() string }); ok {
		return s.printf("%s %s\n", h.Name(), p.ServicePrefix())
	}
	return s.printf("%s\n", h.Name())
}

func (s *shell) names() error {
	names := s.registry.Names()
	if len(names) == 0 {
		return s.printf("(none)\n")
	}
	for _, n := range names {
		if err := s.printf("%s\n", n); err != nil {
			return err
		}
	}
	return nil
}

func (s *shell) wait(ctx context.Context, args []string) error {
	timeout := s.waitTimeout
	if len(args) > 1 {
		return s.usage("wait [TIMEOUT]")
	}
	if len(args) == 1 {
		parsed, err := config.ParseWaitTimeout(args[0])
		if err != nil {
			return s.printf("error: %v\n", err)
		}
		timeout = parsed
	}

	if err := s.registry.WaitReady(ctx, timeout); err != nil {
		if errors.Is(err, manager.ErrServiceTimeout) {
			return s.printf("timeout\n")
		}
		return s.printf("error: %v\n", err)
	}
	return s.printf("ready\n")
}

func (s *shell) result(ok bool) error {
	if ok {
		return s.printf("ok\n")
	}
	return s.printf("failed\n")
}

func (s *shell) usage(synopsis string) error {
	return s.printf("usage: %s\n", synopsis)
}

func (s *shell) printf(format string, args ...any) error {
	_, err := fmt.Fprintf(s.out, format, args...)
	return err
}
