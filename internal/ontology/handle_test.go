package ontology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManipulator(t *testing.T) {
	t.Parallel()

	m := NewManipulator("kitchen")
	assert.Equal(t, "kitchen", m.Name())
	assert.Equal(t, "ontologenius/kitchen", m.ServicePrefix())
}

func TestNewManipulatorFactory(t *testing.T) {
	t.Parallel()

	factory := NewManipulatorFactory()

	first := factory.CreateHandle("kitchen")
	second := factory.CreateHandle("kitchen")
	require.IsType(t, &Manipulator{}, first)
	assert.Equal(t, "kitchen", first.Name())
	assert.NotSame(t, first, second, "each call constructs a new handle")
}

func TestHandleFactoryFunc(t *testing.T) {
	t.Parallel()

	var got []string
	factory := HandleFactoryFunc(func(name string) Handle {
		got = append(got, name)
		return NewManipulator(name)
	})

	h := factory.CreateHandle("robot")
	assert.Equal(t, "robot", h.Name())
	assert.Equal(t, []string{"robot"}, got)
}
