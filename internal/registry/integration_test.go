package registry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/ontology-registry/internal/manager"
	"github.com/stacklok/ontology-registry/internal/manager/managertest"
	"github.com/stacklok/ontology-registry/internal/registry"
)

func newServedRegistry(t *testing.T) (*registry.Registry, *managertest.Server) {
	t.Helper()
	srv := managertest.NewServer()
	t.Cleanup(srv.Close)

	client, err := manager.NewClient(srv.URL,
		manager.WithTimeout(2*time.Second),
		manager.WithPollInterval(10*time.Millisecond),
	)
	require.NoError(t, err)
	return registry.New(client), srv
}

func TestRegistryWithService_KitchenLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	reg, srv := newServedRegistry(t)

	require.True(t, reg.Add(ctx, "kitchen"))
	h, ok := reg.Get("kitchen")
	require.True(t, ok)
	assert.Equal(t, "kitchen", h.Name())
	assert.True(t, srv.Has("kitchen"))

	require.True(t, reg.Add(ctx, "kitchen"))
	assert.Equal(t, 1, srv.Calls(manager.ActionAdd), "second add resolves locally")

	require.True(t, reg.Delete(ctx, "kitchen"))
	_, ok = reg.Get("kitchen")
	assert.False(t, ok)
	assert.False(t, srv.Has("kitchen"))

	require.True(t, reg.Delete(ctx, "kitchen"))
	assert.Equal(t, 1, srv.Calls(manager.ActionDelete), "second delete resolves locally")
}

func TestRegistryWithService_CopyMissingSource(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	reg, srv := newServedRegistry(t)

	assert.False(t, reg.Copy(ctx, "b", "a"))
	_, ok := reg.Get("b")
	assert.False(t, ok)
	assert.Equal(t, 1, srv.Calls(manager.ActionCopy))
	assert.Empty(t, srv.Instances())
}

func TestRegistryWithService_CopyFromRemoteOnlySource(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	reg, srv := newServedRegistry(t)
	srv.Seed("kitchen")

	require.True(t, reg.Copy(ctx, "pantry", "kitchen"))
	_, ok := reg.Get("pantry")
	assert.True(t, ok)
	_, ok = reg.Get("kitchen")
	assert.False(t, ok, "source stays unknown locally")
	assert.Equal(t, []string{"kitchen", "pantry"}, srv.Instances())
}

func TestRegistryWithService_ConservativeFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	reg, srv := newServedRegistry(t)
	srv.FailAction(manager.ActionAdd, true)

	assert.False(t, reg.Add(ctx, "kitchen"))
	_, ok := reg.Get("kitchen")
	assert.False(t, ok)

	srv.FailAction(manager.ActionAdd, false)
	assert.True(t, reg.Add(ctx, "kitchen"), "no failure is cached")
	assert.Equal(t, 2, srv.Calls(manager.ActionAdd))
}

func TestRegistryWithService_RemoteNoEffectIsFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	reg, srv := newServedRegistry(t)
	srv.Seed("kitchen")

	assert.False(t, reg.Add(ctx, "kitchen"))
	assert.Zero(t, reg.Len())
}

func TestRegistryWithService_DeleteFailureRetainsEntry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	reg, srv := newServedRegistry(t)

	require.True(t, reg.Add(ctx, "kitchen"))
	srv.FailAction(manager.ActionDelete, true)

	assert.False(t, reg.Delete(ctx, "kitchen"))
	_, ok := reg.Get("kitchen")
	assert.True(t, ok)
	assert.True(t, srv.Has("kitchen"))
}

func TestRegistryWithService_Unreachable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	reg, srv := newServedRegistry(t)
	srv.Close()

	assert.False(t, reg.Add(ctx, "kitchen"))
	assert.Zero(t, reg.Len())
	assert.True(t, reg.Delete(ctx, "kitchen"))
}

func TestRegistryWithService_WaitReady(t *testing.T) {
	t.Parallel()

	t.Run("ready service", func(t *testing.T) {
		t.Parallel()
		reg, _ := newServedRegistry(t)
		assert.NoError(t, reg.WaitReady(context.Background(), time.Second))
	})

	t.Run("finite timeout elapses", func(t *testing.T) {
		t.Parallel()
		reg, srv := newServedRegistry(t)
		srv.SetReady(false)

		err := reg.WaitReady(context.Background(), 100*time.Millisecond)
		require.Error(t, err)
		assert.True(t, errors.Is(err, manager.ErrServiceTimeout))
	})

	t.Run("negative timeout waits until ready", func(t *testing.T) {
		t.Parallel()
		reg, srv := newServedRegistry(t)
		srv.SetReady(false)
		time.AfterFunc(100*time.Millisecond, func() { srv.SetReady(true) })

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, reg.WaitReady(ctx, -1))
	})
}
