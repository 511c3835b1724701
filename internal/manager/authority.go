// Package manager provides the client side of the ontology management service.
//
// The management service is the authority for which named ontology instances
// exist. Authority is the narrow contract the registry consumes; Client is the
// HTTP implementation of it.
package manager

import (
	"context"
	"time"
)

// Management actions understood by the service.
const (
	ActionAdd    = "add"
	ActionCopy   = "copy"
	ActionDelete = "delete"
	ActionList   = "list"
)

// Result codes returned by the management service.
const (
	CodeSuccess       = 0
	CodeFailure       = 1
	CodeRequestError  = 2
	CodeUnknownAction = 3
	CodeNoEffect      = 4
)

// Authority is the remote management interface for named ontology instances.
// A nil error means the service confirmed the operation.
//
//go:generate mockgen -destination=mocks/mock_authority.go -package=mocks -source=authority.go Authority
type Authority interface {
	// Add creates a new named instance on the service.
	Add(ctx context.Context, name string) error
	// Copy creates destName on the service as a copy of srcName.
	Copy(ctx context.Context, destName, srcName string) error
	// Delete removes the named instance from the service.
	Delete(ctx context.Context, name string) error
	// List returns the names of the instances the service currently holds.
	List(ctx context.Context) ([]string, error)
	// WaitForService blocks until the service is reachable. A negative timeout
	// blocks until ctx is done.
	WaitForService(ctx context.Context, timeout time.Duration) error
	// SetVerbosity configures the diagnostic output of this authority.
	SetVerbosity(level Verbosity)
}
