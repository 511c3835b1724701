// Package ontology defines the per-name handles the registry hands out.
package ontology

import "path"

// ServiceNamespace is the namespace under which the management service exposes
// the per-instance services of a named ontology.
const ServiceNamespace = "ontologenius"

// Handle is an opaque value bound to one named ontology instance.
type Handle interface {
	// Name returns the name the handle is bound to.
	Name() string
}

// HandleFactory constructs handles. CreateHandle must not have side effects
// beyond binding the handle to name.
type HandleFactory interface {
	CreateHandle(name string) Handle
}

// HandleFactoryFunc adapts a function to HandleFactory.
type HandleFactoryFunc func(name string) Handle

// CreateHandle calls f(name).
func (f HandleFactoryFunc) CreateHandle(name string) Handle {
	return f(name)
}

// Manipulator is the handle used to interact with one named ontology instance.
type Manipulator struct {
	name string
}

// NewManipulator returns a manipulator bound to name.
func NewManipulator(name string) *Manipulator {
	return &Manipulator{name: name}
}

// Name returns the ontology instance name.
func (m *Manipulator) Name() string {
	return m.name
}

// ServicePrefix returns the service namespace of the instance, e.g. "ontologenius/kitchen".
func (m *Manipulator) ServicePrefix() string {
	return path.Join(ServiceNamespace, m.name)
}

// NewManipulatorFactory returns the default factory, producing *Manipulator handles.
func NewManipulatorFactory() HandleFactory {
	return HandleFactoryFunc(func(name string) Handle {
		return NewManipulator(name)
	})
}
