package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/teamsites/pkg/observability"
	"github.com/platinummonkey/teamsites/pkg/storage"
)

// TestGetEnv tests the getEnv helper function
func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns env value when set",
			key:          "TEAMSITES_TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when env not set",
			key:          "TEAMSITES_TEST_VAR_NOT_SET",
			defaultValue: "default",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}
			assert.Equal(t, tt.want, getEnv(tt.key, tt.defaultValue))
		})
	}
}

func TestGetEnvTyped(t *testing.T) {
	t.Setenv("TEAMSITES_TEST_BOOL", "1")
	t.Setenv("TEAMSITES_TEST_INT", "nope")
	t.Setenv("TEAMSITES_TEST_DURATION", "90s")
	t.Setenv("TEAMSITES_TEST_FLOAT", "0.25")

	assert.True(t, getEnvBool("TEAMSITES_TEST_BOOL", false))
	assert.Equal(t, 7, getEnvInt("TEAMSITES_TEST_INT", 7))
	assert.Equal(t, 90*time.Second, getEnvDuration("TEAMSITES_TEST_DURATION", time.Second))
	assert.Equal(t, 0.25, getEnvFloat("TEAMSITES_TEST_FLOAT", 1))
	assert.Equal(t, 1.0, getEnvFloat("TEAMSITES_TEST_FLOAT_NOT_SET", 1))
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]observability.LogLevel{
		"debug":   observability.DebugLevel,
		"INFO":    observability.InfoLevel,
		"warning": observability.WarnLevel,
		"error":   observability.ErrorLevel,
		"bogus":   observability.InfoLevel,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, parseLogLevel(in))
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("TEAMSITES_IDENTITY_URL", "https://id.example.com/auth/v1/")
	t.Setenv("TEAMSITES_BASE_URL", "https://teams.example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, storage.DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "https://id.example.com/auth/v1", cfg.Identity.URL)
	assert.Equal(t, "https://id.example.com/auth/v1/.well-known/jwks.json", cfg.Identity.JWKSURL)
	assert.Equal(t, 15*time.Second, cfg.Identity.Timeout)
	assert.Equal(t, "ts_session", cfg.Session.CookieName)
	assert.True(t, cfg.Session.CookieSecure)
	assert.Equal(t, "https://teams.example.com/auth/session", cfg.Session.EstablishURL)
	assert.Equal(t, 10*time.Second, cfg.Session.SyncTimeout)
	assert.Equal(t, "0 3 * * *", cfg.Worker.RepublishSchedule)
	assert.Equal(t, 720*time.Hour, cfg.Worker.InviteTTL)
	assert.Nil(t, cfg.File)
}

func TestLoadConfig_WithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teamsites.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reserved_subdomains:\n  - blog\n  - shop\n"), 0o600))

	t.Setenv("TEAMSITES_IDENTITY_URL", "https://id.example.com/auth/v1")
	t.Setenv("TEAMSITES_CONFIG_FILE", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg.File)
	assert.Equal(t, []string{"blog", "shop"}, cfg.File.ReservedSubdomains)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: "8080", HealthPort: "9090", BaseURL: "http://localhost:8080"},
			Storage:  storage.DefaultConfig(),
			Identity: IdentityConfig{URL: "https://id.example.com", Timeout: time.Second},
			Session:  SessionConfig{CookieName: "ts_session", SyncTimeout: time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"same ports", func(c *Config) { c.Server.HealthPort = "8080" }, "must be different"},
		{"bad driver", func(c *Config) { c.Storage.Driver = "mysql" }, "invalid database driver"},
		{"missing identity", func(c *Config) { c.Identity.URL = "" }, "identity provider URL is required"},
		{"zero sync timeout", func(c *Config) { c.Session.SyncTimeout = 0 }, "sync timeout"},
		{"otel without endpoint", func(c *Config) {
			c.Observability.OTelEnabled = true
			c.Observability.OTelServiceName = "teamsites"
		}, "endpoint is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "teamsites.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reserved_subdomains: [blog]\n"), 0o600))

	changes := make(chan *FileConfig, 4)
	w := NewWatcher(path, observability.NewNopLogger(), func(cfg *FileConfig) { changes <- cfg })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("reserved_subdomains: [blog, shop]\n"), 0o600))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changes:
			if len(cfg.ReservedSubdomains) == 2 {
				assert.Equal(t, []string{"blog", "shop"}, cfg.ReservedSubdomains)
				return
			}
		case <-deadline:
			t.Fatal("watcher did not report the change")
		}
	}
}
