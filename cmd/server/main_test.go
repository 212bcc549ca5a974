package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "relay.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
server:
  port: 9090
whatsapp:
  phone_number_id: "12345"
  timeout: 5s
bulk:
  send_interval: 250ms
templates:
  allow_unknown: true
`), 0600))

	badPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte(`{"chat":{"max_messages":0}}`), 0600))

	tests := []struct {
		name    string
		path    string
		env     map[string]string
		wantErr bool
		check   func(t *testing.T, port int, interval time.Duration, allowUnknown bool, token string)
	}{
		{
			name: "defaults",
			check: func(t *testing.T, port int, interval time.Duration, allowUnknown bool, token string) {
				assert.Equal(t, 8080, port)
				assert.Equal(t, 100*time.Millisecond, interval)
				assert.False(t, allowUnknown)
			},
		},
		{
			name: "yaml file",
			path: yamlPath,
			check: func(t *testing.T, port int, interval time.Duration, allowUnknown bool, token string) {
				assert.Equal(t, 9090, port)
				assert.Equal(t, 250*time.Millisecond, interval)
				assert.True(t, allowUnknown)
			},
		},
		{
			name: "environment overrides",
			path: yamlPath,
			env:  map[string]string{"PORT": "7070", "WHATSAPP_ACCESS_TOKEN": "from-env"},
			check: func(t *testing.T, port int, interval time.Duration, allowUnknown bool, token string) {
				assert.Equal(t, 7070, port)
				assert.Equal(t, "from-env", token)
			},
		},
		{
			name:    "missing file",
			path:    filepath.Join(dir, "missing.yaml"),
			wantErr: true,
		},
		{
			name:    "invalid values",
			path:    badPath,
			wantErr: true,
		},
		{
			name:    "invalid env",
			env:     map[string]string{"PORT": "eighty"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := loadConfig(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg.Server.Port, cfg.Bulk.SendInterval.Std(), cfg.Templates.AllowUnknown, cfg.WhatsApp.AccessToken)
		})
	}
}
