package app

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/ontology-registry/internal/manager"
	"github.com/stacklok/ontology-registry/internal/manager/managertest"
	"github.com/stacklok/ontology-registry/internal/registry"
)

func newTestShell(t *testing.T) (*shell, *bytes.Buffer, *managertest.Server) {
	t.Helper()
	srv := managertest.NewServer()
	t.Cleanup(srv.Close)

	client, err := manager.NewClient(srv.URL, manager.WithPollInterval(10*time.Millisecond))
	require.NoError(t, err)

	var out bytes.Buffer
	return &shell{registry: registry.New(client), out: &out, waitTimeout: time.Second}, &out, srv
}

func TestShell_Exec(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
		want string
	}{
		{name: "blank line", line: "   ", want: ""},
		{name: "comment", line: "# add kitchen", want: ""},
		{name: "unknown command", line: "rename a b", want: "unknown command \"rename\" (type help)\n"},
		{name: "add usage", line: "add", want: "usage: add NAME\n"},
		{name: "copy usage", line: "copy only-dest", want: "usage: copy DEST SRC\n"},
		{name: "delete usage", line: "delete a b", want: "usage: delete NAME\n"},
		{name: "get usage", line: "get", want: "usage: get NAME\n"},
		{name: "get missing", line: "get kitchen", want: "not found\n"},
		{name: "names empty", line: "names", want: "(none)\n"},
		{name: "verbosity", line: "verbosity DEBUG", want: "ok\n"},
		{name: "bad verbosity", line: "verbosity chatty", want: "error: unknown verbosity \"chatty\" (expected silent, error, info or debug)\n"},
		{name: "wait default", line: "wait", want: "ready\n"},
		{name: "wait forever on ready service", line: "wait forever", want: "ready\n"},
		{name: "wait bad timeout", line: "wait soon", want: "error: invalid duration \"soon\": time: invalid duration \"soon\"\n"},
		{name: "wait usage", line: "wait 1s 2s", want: "usage: wait [TIMEOUT]\n"},
		{name: "case insensitive command", line: "DELETE kitchen", want: "ok\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, out, _ := newTestShell(t)
			require.NoError(t, s.exec(context.Background(), tt.line))
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestShell_Help(t *testing.T) {
	t.Parallel()
	s, out, _ := newTestShell(t)

	require.NoError(t, s.exec(context.Background(), "help"))
	for _, cmd := range []string{"add NAME", "copy DEST SRC", "delete NAME", "get NAME", "names", "wait", "verbosity", "exit"} {
		assert.Contains(t, out.String(), cmd)
	}
}

func TestShell_Exit(t *testing.T) {
	t.Parallel()
	s, _, _ := newTestShell(t)

	assert.ErrorIs(t, s.exec(context.Background(), "exit"), errExit)
	assert.ErrorIs(t, s.exec(context.Background(), "quit"), errExit)
}

func TestShell_WaitTimeout(t *testing.T) {
	t.Parallel()
	s, out, srv := newTestShell(t)
	srv.SetReady(false)

	require.NoError(t, s.exec(context.Background(), "wait 100ms"))
	assert.Equal(t, "timeout\n", out.String())
}

func TestShell_RunStopsOnCancelledContext(t *testing.T) {
	t.Parallel()
	s, out, srv := newTestShell(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.run(ctx, strings.NewReader("add kitchen\n")))
	assert.Empty(t, out.String())
	assert.Zero(t, srv.TotalCalls())
}

func TestShell_RemoteFailureKeepsState(t *testing.T) {
	t.Parallel()
	s, out, srv := newTestShell(t)
	ctx := context.Background()

	require.NoError(t, s.run(ctx, strings.NewReader("add kitchen\n")))
	srv.FailAction(manager.ActionDelete, true)
	require.NoError(t, s.run(ctx, strings.NewReader("delete kitchen\nget kitchen\n")))

	assert.Equal(t, "ok\nfailed\nkitchen ontologenius/kitchen\n", out.String())
}
