package app

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/docsync"
	"github.com/agentstation/docsync/cmd/docsync/cmd/push"
	"github.com/agentstation/docsync/internal/cmd/application"
	"github.com/agentstation/docsync/pkg/errors"
	"github.com/agentstation/docsync/pkg/superset/supersettest"
)

func newTestApp(t *testing.T, opts ...Option) *App {
	t.Helper()
	isolate(t)
	logger := zerolog.Nop()
	opts = append([]Option{WithLogger(&logger)}, opts...)
	app, err := New("1.0.0", "abc123", "2026-01-01", "test", opts...)
	require.NoError(t, err)
	return app
}

// TestApp_New verifies app initialization.
func TestApp_New(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, "1.0.0", app.Version())
	assert.Equal(t, "abc123", app.Commit())
	assert.Equal(t, "2026-01-01", app.Date())
	assert.Equal(t, "test", app.BuiltBy())
	assert.NotNil(t, app.Logger())
	assert.NotNil(t, app.Config())
	assert.Equal(t, "db", app.Connection().AuthProvider)
}

func TestApp_WithConfig(t *testing.T) {
	app := newTestApp(t, WithConfig(&Config{Format: "yaml", SupersetURL: "https://x.example.com"}))
	assert.Equal(t, "yaml", app.OutputFormat())
	assert.Equal(t, "https://x.example.com", app.Connection().URL)

	_, err := New("1.0.0", "", "", "", WithConfig(nil))
	assert.Error(t, err)
}

func TestApp_SyncerRequiresConnection(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name string
		conn application.Connection
	}{
		{name: "missing url", conn: application.Connection{Username: "admin", Password: "admin"}},
		{name: "missing password", conn: application.Connection{URL: "http://localhost:1", Username: "admin"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := app.Syncer(context.Background(), tt.conn)
			require.Error(t, err)
			var cfgErr *errors.ConfigError
			assert.True(t, errors.As(err, &cfgErr))
		})
	}
}

func TestApp_SyncerLogsIn(t *testing.T) {
	srv := supersettest.NewServer()
	defer srv.Close()
	app := newTestApp(t)

	s, err := app.Syncer(context.Background(), application.Connection{
		URL:      srv.URL,
		Username: supersettest.Username,
		Password: supersettest.Password,
	})
	require.NoError(t, err)
	assert.NotNil(t, s)
	assert.Equal(t, 1, srv.Stats().Logins)

	_, err = app.Syncer(context.Background(), application.Connection{URL: srv.URL, Username: "admin", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, errors.IsAuthentication(err))
}

func TestExecute_Version(t *testing.T) {
	app := newTestApp(t)
	cmd := app.createRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "docsync version 1.0.0")
	assert.Contains(t, out.String(), "commit: abc123")
}

func TestExecute_Man(t *testing.T) {
	app := newTestApp(t)
	cmd := app.createRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"man"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "DOCSYNC")
	assert.Contains(t, out.String(), "push")
}

func TestExecute_ConfigFlag(t *testing.T) {
	app := newTestApp(t)
	path := filepath.Join(t.TempDir(), "docsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("superset:\n  url: https://flag.example.com\n"), 0o600))

	var got application.Connection
	app.newSyncer = func(_ context.Context, conn application.Connection) (docsync.Syncer, error) {
		got = conn
		return nil, errors.New("stop")
	}

	err := app.Execute(context.Background(), []string{"--config", path, "-q", "push", "-o", "json"})
	require.Error(t, err)
	assert.Equal(t, "https://flag.example.com", got.URL)
	assert.True(t, app.Config().Quiet)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", err: nil, want: ExitOK},
		{name: "failures", err: fmt.Errorf("%w: 1 updates failed", push.ErrFailures), want: ExitFailures},
		{name: "error", err: errors.New("boom"), want: ExitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
