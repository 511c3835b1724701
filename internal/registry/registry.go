package registry

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/stacklok/ontology-registry/internal/manager"
	"github.com/stacklok/ontology-registry/internal/ontology"
	"github.com/stacklok/ontology-registry/internal/otel"
	"github.com/stacklok/ontology-registry/internal/telemetry"
)

// Operation names used for metrics, spans and logs.
const (
	OperationAdd    = "add"
	OperationCopy   = "copy"
	OperationDelete = "delete"
)

// Registry mirrors the set of ontology instances held by a remote authority.
type Registry struct {
	authority manager.Authority
	factory   ontology.HandleFactory
	tracer    trace.Tracer
	metrics   *telemetry.RegistryMetrics

	mu      sync.RWMutex
	entries map[string]ontology.Handle

	// calls collapses concurrent identical remote calls
	calls singleflight.Group
}

// New creates an empty Registry backed by authority. authority must not be nil.
func New(authority manager.Authority, opts ...Option) *Registry {
	r := &Registry{
		authority: authority,
		factory:   ontology.NewManipulatorFactory(),
		entries:   make(map[string]ontology.Handle),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add ensures an ontology instance named name exists and a local handle is bound to it.
// It returns true if the name was already known locally or the authority created it.
func (r *Registry) Add(ctx context.Context, name string) bool {
	ctx, span := otel.StartSpan(ctx, r.tracer, "registry.Add",
		trace.WithAttributes(otel.AttrOntologyName.String(name)),
	)
	defer span.End()

	if r.has(name) {
		return r.shortCircuit(ctx, span, OperationAdd, name)
	}

	hit, err := r.call(ctx, OperationAdd, OperationAdd+":"+name,
		func() bool { return r.has(name) },
		func(ctx context.Context) error { return r.authority.Add(ctx, name) },
		func() { r.insert(name) },
	)
	if hit {
		return r.shortCircuit(ctx, span, OperationAdd, name)
	}
	return r.finish(ctx, span, OperationAdd, err, "name", name)
}

// Copy asks the authority to create destName as a copy of srcName and binds a local
// handle to destName. srcName is not validated locally; a destName already known
// locally succeeds without a remote call.
func (r *Registry) Copy(ctx context.Context, destName, srcName string) bool {
	ctx, span := otel.StartSpan(ctx, r.tracer, "registry.Copy",
		trace.WithAttributes(
			otel.AttrOntologyName.String(destName),
			otel.AttrOntologySource.String(srcName),
		),
	)
	defer span.End()

	if r.has(destName) {
		return r.shortCircuit(ctx, span, OperationCopy, destName)
	}

	hit, err := r.call(ctx, OperationCopy, OperationCopy+":"+destName+"\x00"+srcName,
		func() bool { return r.has(destName) },
		func(ctx context.Context) error { return r.authority.Copy(ctx, destName, srcName) },
		func() { r.insert(destName) },
	)
	if hit {
		return r.shortCircuit(ctx, span, OperationCopy, destName)
	}
	return r.finish(ctx, span, OperationCopy, err, "dest", destName, "src", srcName)
}

// Delete asks the authority to remove name and drops the local handle.
// A name not known locally is treated as already deleted.
func (r *Registry) Delete(ctx context.Context, name string) bool {
	ctx, span := otel.StartSpan(ctx, r.tracer, "registry.Delete",
		trace.WithAttributes(otel.AttrOntologyName.String(name)),
	)
	defer span.End()

	if !r.has(name) {
		return r.shortCircuit(ctx, span, OperationDelete, name)
	}

	hit, err := r.call(ctx, OperationDelete, OperationDelete+":"+name,
		func() bool { return !r.has(name) },
		func(ctx context.Context) error { return r.authority.Delete(ctx, name) },
		func() { r.remove(name) },
	)
	if hit {
		return r.shortCircuit(ctx, span, OperationDelete, name)
	}
	return r.finish(ctx, span, OperationDelete, err, "name", name)
}

// Get returns the handle bound to name. The second result is false if the name is
// not known locally. Get never contacts the authority.
func (r *Registry) Get(name string) (ontology.Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.entries[name]
	return h, ok
}

// Names returns the locally known names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.entries))
}

// Len returns the number of locally known names.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// WaitReady blocks until the authority is reachable. A negative timeout waits until
// ctx is done. When a finite timeout elapses the returned error matches
// manager.ErrServiceTimeout.
func (r *Registry) WaitReady(ctx context.Context, timeout time.Duration) error {
	ctx, span := otel.StartSpan(ctx, r.tracer, "registry.WaitReady",
		trace.WithAttributes(otel.AttrWaitTimeout.String(timeout.String())),
	)
	defer span.End()

	if err := r.authority.WaitForService(ctx, timeout); err != nil {
		otel.RecordError(span, err)
		slog.WarnContext(ctx, "Management service not ready", "timeout", timeout, "error", err)
		return err
	}

	slog.DebugContext(ctx, "Management service ready")
	return nil
}

// SetVerbosity adjusts the verbosity of the authority client. Entries are unaffected.
func (r *Registry) SetVerbosity(level manager.Verbosity) {
	r.authority.SetVerbosity(level)
}

func (r *Registry) has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// insert keeps an existing handle if one was bound while the remote call was in flight.
func (r *Registry) insert(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; ok {
		return
	}
	r.entries[name] = r.factory.CreateHandle(name)
}

func (r *Registry) remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// call performs at most one remote call under key. settled reports whether the
// local state already satisfies the operation; it is checked again once the call
// holds the key, so a caller that lost the race to a finished leader does not
// repeat the remote call. commit runs only when the remote call succeeds.
//
// The shared remote call runs detached from any single caller's cancellation and
// is bounded by the authority's own request timeout. Each caller stops waiting
// when its own ctx is done and reports ctx.Err() without touching local state.
func (r *Registry) call(
	ctx context.Context,
	operation, key string,
	settled func() bool,
	remote func(context.Context) error,
	commit func(),
) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	callCtx := context.WithoutCancel(ctx)
	ch := r.calls.DoChan(key, func() (any, error) {
		if settled() {
			return true, nil
		}
		start := time.Now()
		err := remote(callCtx)
		r.metrics.RecordRemoteCall(callCtx, operation, time.Since(start), err == nil)
		if err != nil {
			return false, err
		}
		commit()
		r.metrics.RecordEntries(callCtx, r.Len())
		return false, nil
	})

	select {
	case <-ctx.Done():
		slog.DebugContext(ctx, "Stopped waiting for remote call", "operation", operation, "key", key)
		return false, ctx.Err()
	case res := <-ch:
		if res.Shared {
			slog.DebugContext(ctx, "Shared in-flight remote call", "operation", operation, "key", key)
		}
		hit, _ := res.Val.(bool)
		return hit, res.Err
	}
}

func (r *Registry) shortCircuit(ctx context.Context, span trace.Span, operation, name string) bool {
	span.SetAttributes(otel.AttrShortCircuit.Bool(true))
	r.metrics.RecordOperation(ctx, operation, telemetry.OutcomeHit)
	slog.DebugContext(ctx, "Resolved locally", "operation", operation, "name", name)
	return true
}

func (r *Registry) finish(ctx context.Context, span trace.Span, operation string, err error, args ...any) bool {
	span.SetAttributes(
		otel.AttrShortCircuit.Bool(false),
		otel.AttrEntryCount.Int(r.Len()),
	)
	if err != nil {
		otel.RecordError(span, err)
		r.metrics.RecordOperation(ctx, operation, telemetry.OutcomeFailure)
		slog.WarnContext(ctx, "Remote operation failed",
			append([]any{"operation", operation, "error", err}, args...)...)
		return false
	}
	r.metrics.RecordOperation(ctx, operation, telemetry.OutcomeSuccess)
	slog.DebugContext(ctx, "Remote operation succeeded", append([]any{"operation", operation}, args...)...)
	return true
}
