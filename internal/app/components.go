package app

import (
	"github.com/stacklok/ontology-registry/internal/manager"
	"github.com/stacklok/ontology-registry/internal/registry"
	"github.com/stacklok/ontology-registry/internal/telemetry"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// Client talks to the management service
	Client *manager.Client

	// Registry mirrors the management service's named instances
	Registry *registry.Registry

	// Telemetry holds the tracer and meter providers
	Telemetry *telemetry.Telemetry
}
