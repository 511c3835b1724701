package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/stacklok/ontology-registry/internal/config"
	"github.com/stacklok/ontology-registry/internal/manager"
	"github.com/stacklok/ontology-registry/internal/ontology"
	"github.com/stacklok/ontology-registry/internal/registry"
	"github.com/stacklok/ontology-registry/internal/telemetry"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 15 * time.Second
	defaultIdleTimeout  = 60 * time.Second

	// MetricsPath is where the metrics server exposes Prometheus metrics
	MetricsPath = "/metrics"
	// HealthPath is the liveness endpoint of the metrics server
	HealthPath = "/health"

	tracerName = "github.com/stacklok/ontology-registry"
)

// RegistryAppOptions is a function that configures the registry app builder
type RegistryAppOptions func(*registryAppConfig) error

// registryAppConfig collects the inputs of NewRegistryApp
type registryAppConfig struct {
	config *config.Config

	// Optional component overrides (primarily for testing)
	handleFactory ontology.HandleFactory
	httpClient    *http.Client
	logHandler    slog.Handler

	// Metrics server options, empty address disables it
	metricsAddress string
}

func baseConfig(opts ...RegistryAppOptions) (*registryAppConfig, error) {
	cfg := &registryAppConfig{}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil {
		cfg.config = config.Default()
	}
	if err := cfg.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// NewRegistryApp builds the management client, telemetry and registry described by the configuration
func NewRegistryApp(
	ctx context.Context,
	opts ...RegistryAppOptions,
) (*RegistryApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	telemetryConfig := cfg.config.Telemetry
	if cfg.metricsAddress != "" {
		telemetryConfig = withPrometheusMetrics(telemetryConfig)
	}

	tel, err := telemetry.New(ctx, telemetry.WithTelemetryConfig(telemetryConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	// Ensure cleanup happens on error
	cleanupNeeded := true
	defer func() {
		if cleanupNeeded {
			if shutdownErr := tel.Shutdown(context.Background()); shutdownErr != nil {
				slog.Warn("Failed to shut down telemetry", "error", shutdownErr)
			}
		}
	}()

	client, err := buildClient(cfg, tel)
	if err != nil {
		return nil, fmt.Errorf("failed to build management client: %w", err)
	}

	reg, err := buildRegistry(cfg, client, tel)
	if err != nil {
		return nil, fmt.Errorf("failed to build registry: %w", err)
	}

	var metricsServer *http.Server
	if cfg.metricsAddress != "" {
		metricsServer = buildMetricsServer(cfg.metricsAddress, tel.MetricsHandler())
	}

	cleanupNeeded = false

	return &RegistryApp{
		config: cfg.config,
		components: &AppComponents{
			Client:    client,
			Registry:  reg,
			Telemetry: tel,
		},
		metricsServer: metricsServer,
	}, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) RegistryAppOptions {
	return func(cfg *registryAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithMetricsAddress serves Prometheus metrics on addr. It enables the
// Prometheus metrics exporter regardless of the telemetry configuration.
func WithMetricsAddress(addr string) RegistryAppOptions {
	return func(cfg *registryAppConfig) error {
		if addr == "" {
			return nil
		}

		host, port, ok := strings.Cut(addr, ":")
		if !ok || port == "" {
			return fmt.Errorf("metrics address is not a valid port: %s", addr)
		}
		if host == "localhost" {
			host = "127.0.0.1"
		}
		if host == "" {
			host = "0.0.0.0"
		}
		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("metrics address is not a valid port: %w", err)
		}
		cfg.metricsAddress = addr
		return nil
	}
}

// WithHandleFactory allows injecting a custom handle factory
func WithHandleFactory(f ontology.HandleFactory) RegistryAppOptions {
	return func(cfg *registryAppConfig) error {
		cfg.handleFactory = f
		return nil
	}
}

// WithHTTPClient allows injecting the HTTP client used for management calls (for testing)
func WithHTTPClient(c *http.Client) RegistryAppOptions {
	return func(cfg *registryAppConfig) error {
		cfg.httpClient = c
		return nil
	}
}

// WithLogHandler sets the handler the management client logs through
func WithLogHandler(h slog.Handler) RegistryAppOptions {
	return func(cfg *registryAppConfig) error {
		cfg.logHandler = h
		return nil
	}
}

// withPrometheusMetrics returns a copy of tc with Prometheus metrics enabled
func withPrometheusMetrics(tc *telemetry.Config) *telemetry.Config {
	out := telemetry.Config{}
	if tc != nil {
		out = *tc
	}
	out.Enabled = true
	out.Metrics = &telemetry.MetricsConfig{
		Enabled:  true,
		Exporter: telemetry.MetricsExporterPrometheus,
	}
	return &out
}

func buildClient(b *registryAppConfig, tel *telemetry.Telemetry) (*manager.Client, error) {
	mc := b.config.Manager
	slog.Info("Initializing management client", "endpoint", mc.GetEndpoint())

	httpClient := b.httpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	traced := *httpClient
	traced.Transport = telemetry.TracingTransport(tel.TracerProvider(), httpClient.Transport)

	opts := []manager.Option{
		manager.WithHTTPClient(&traced),
		manager.WithTimeout(mc.GetRequestTimeout()),
		manager.WithTracer(tel.Tracer(tracerName)),
		manager.WithVerbosity(mc.GetVerbosity()),
	}
	if b.logHandler != nil {
		opts = append(opts, manager.WithLogHandler(b.logHandler))
	}

	return manager.NewClient(mc.GetEndpoint(), opts...)
}

func buildRegistry(
	b *registryAppConfig,
	client *manager.Client,
	tel *telemetry.Telemetry,
) (*registry.Registry, error) {
	metrics, err := telemetry.NewRegistryMetrics(tel.MeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create registry metrics: %w", err)
	}

	opts := []registry.Option{
		registry.WithTracer(tel.Tracer(tracerName)),
		registry.WithMetrics(metrics),
	}
	if b.handleFactory != nil {
		opts = append(opts, registry.WithHandleFactory(b.handleFactory))
	}

	return registry.New(client, opts...), nil
}

// buildMetricsServer builds the HTTP server exposing metrics and liveness
func buildMetricsServer(addr string, metricsHandler http.Handler) *http.Server {
	slog.Info("Initializing metrics server", "address", addr)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get(HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if metricsHandler != nil {
		r.Handle(MetricsPath, metricsHandler)
	}

	return &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.Background() },
	}
}
