package main

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"wa-relay-server/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServerConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Server.Port = 8080
	cfg.Database.DSN = ":memory:"
	return cfg
}

func TestSetupServer(t *testing.T) {
	srv, err := SetupServer(testServerConfig())
	require.NoError(t, err)
	require.NotNil(t, srv)
	assert.Equal(t, ":8080", srv.Addr)
	assert.Nil(t, srv.redis)
	assert.Nil(t, srv.keepAlive)

	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","store":"up"}`, w.Body.String())

	w = httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/support/history/9876543210", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	assert.NoError(t, srv.Close())
	assert.Nil(t, srv.store)
}

func TestSetupServer_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *config.Config)
	}{
		{"invalid port", func(cfg *config.Config) { cfg.Server.Port = 0 }},
		{"unsupported driver", func(cfg *config.Config) { cfg.Database.Driver = "postgres" }},
		{"unreachable database", func(cfg *config.Config) {
			cfg.Database.DSN = filepath.Join(t.TempDir(), "missing", "dir", "relay.db")
		}},
		{"invalid cloudinary url", func(cfg *config.Config) { cfg.Media.CloudinaryURL = "://bad" }},
		{"invalid keep-alive schedule", func(cfg *config.Config) {
			cfg.KeepAlive.URL = "http://localhost/health"
			cfg.KeepAlive.Schedule = "whenever"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testServerConfig()
			tt.mutate(cfg)

			srv, err := SetupServer(cfg)
			assert.Error(t, err)
			assert.Nil(t, srv)
		})
	}

	srv, err := SetupServer(nil)
	assert.Error(t, err)
	assert.Nil(t, srv)
}

func TestSetupServer_RedisEventLog(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testServerConfig()
	cfg.EventLog.RedisAddr = mr.Addr()

	srv, err := SetupServer(cfg)
	require.NoError(t, err)
	assert.NotNil(t, srv.redis)
	assert.NoError(t, srv.Close())
	assert.Nil(t, srv.redis)
}

func TestSetupServer_RedisUnreachable(t *testing.T) {
	cfg := testServerConfig()
	cfg.EventLog.RedisAddr = "127.0.0.1:1"

	srv, err := SetupServer(cfg)
	require.NoError(t, err)
	assert.Nil(t, srv.redis)
	assert.NoError(t, srv.Close())
}

func TestSetupServer_KeepAlive(t *testing.T) {
	cfg := testServerConfig()
	cfg.KeepAlive.URL = "http://localhost/health"

	srv, err := SetupServer(cfg)
	require.NoError(t, err)
	assert.NotNil(t, srv.keepAlive)
	assert.NoError(t, srv.Close())
	assert.Nil(t, srv.keepAlive)
}

func freePort(t *testing.T) int {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestStartServerWithContext(t *testing.T) {
	cfg := testServerConfig()
	cfg.Server.Port = freePort(t)

	srv, err := SetupServer(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- StartServerWithContext(ctx, srv)
	}()

	assert.Eventually(t, func() bool {
		resp, err := http.Get("http://" + net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.Server.Port)) + "/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Server didn't shut down within timeout")
	}
	assert.Nil(t, srv.store)
}
