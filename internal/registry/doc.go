// Package registry keeps a local, named collection of ontology handles consistent
// with a remote management service.
//
// The management service is the authority for which named ontology instances
// exist. The Registry mirrors that authority so callers can retrieve a handle for
// a name without a network round trip.
//
// # Operations
//
//   - Add: ask the authority to create an instance and bind a local handle to it
//   - Copy: ask the authority to clone an instance under a new name
//   - Delete: ask the authority to remove an instance and drop the local handle
//   - Get: look up a handle locally, never contacting the authority
//   - WaitReady: block until the authority is reachable
//   - SetVerbosity: adjust the log verbosity of the authority client
//
// A mutating operation on a name the Registry already knows (or, for Delete,
// does not know) succeeds locally without a remote call. Otherwise exactly one
// remote call is made, and local state changes only after the authority confirms.
// Failures are never retried.
//
// # Usage
//
//	client, err := manager.NewClient("http://localhost:9110")
//	if err != nil {
//	    return err
//	}
//	reg := registry.New(client)
//	if err := reg.WaitReady(ctx, 30*time.Second); err != nil {
//	    return err
//	}
//	if reg.Add(ctx, "kitchen") {
//	    handle, _ := reg.Get("kitchen")
//	    _ = handle
//	}
//
// # Concurrency
//
// A Registry is safe for concurrent use. The entries map is guarded by a single
// RWMutex that is never held across a remote call. Concurrent calls of the same
// operation with the same arguments share one remote call.
package registry
