// Package app provides application assembly and lifecycle management for onto-registry.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/stacklok/ontology-registry/internal/config"
	"github.com/stacklok/ontology-registry/internal/manager"
	"github.com/stacklok/ontology-registry/internal/registry"
)

// RegistryApp encapsulates the registry, its management client and the optional metrics server
type RegistryApp struct {
	config     *config.Config
	components *AppComponents

	metricsServer *http.Server

	mu          sync.Mutex
	metricsAddr net.Addr
}

// Registry returns the ontology registry
func (app *RegistryApp) Registry() *registry.Registry {
	return app.components.Registry
}

// Client returns the management client
func (app *RegistryApp) Client() *manager.Client {
	return app.components.Client
}

// GetConfig returns the application configuration
func (app *RegistryApp) GetConfig() *config.Config {
	return app.config
}

// StartMetrics starts the metrics server in the background. It is a no-op when
// no metrics address was configured.
func (app *RegistryApp) StartMetrics() error {
	if app.metricsServer == nil {
		return nil
	}

	ln, err := net.Listen("tcp", app.metricsServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", app.metricsServer.Addr, err)
	}

	app.mu.Lock()
	app.metricsAddr = ln.Addr()
	app.mu.Unlock()

	slog.Info("Metrics server listening", "address", ln.Addr().String())
	go func() {
		if err := app.metricsServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", "error", err)
		}
	}()
	return nil
}

// MetricsAddr returns the address the metrics server is bound to, or nil if it is not running
func (app *RegistryApp) MetricsAddr() net.Addr {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.metricsAddr
}

// Stop shuts down the metrics server and flushes telemetry within timeout
func (app *RegistryApp) Stop(timeout time.Duration) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if app.metricsServer != nil && app.MetricsAddr() != nil {
		if err := app.metricsServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server forced to shutdown: %w", err))
		}
	}
	if err := app.components.Telemetry.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}

	slog.Debug("Registry app stopped")
	return errors.Join(errs...)
}
