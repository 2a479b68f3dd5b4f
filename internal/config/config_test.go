package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaultsKeepsZeroFields(t *testing.T) {
	values := defaultConfig

	applyDefaults(&values, Config{RunAddr: ":9090"})

	assert.Equal(t, ":9090", values.RunAddr)
	assert.Equal(t, "info", values.LogLevel)
	assert.Equal(t, 30*time.Minute, values.TokenTTL)
}

const testJSON = `{
	"server_address": ":3000",
	"grpc_address": ":3001",
	"database_dsn": "json-dsn",
	"jwt_secret_key": "json-secret-key-0123456789",
	"token_ttl": "45m",
	"enable_gzip": true
}`

func writeTempJSON(t *testing.T, content string) string {
	t.Helper()
	file, err := os.CreateTemp("", "config*.json")
	require.NoError(t, err)
	_, err = file.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	t.Cleanup(func() {
		err := os.Remove(file.Name())
		require.NoError(t, err)
	})
	return file.Name()
}

func TestConfigDefaults(t *testing.T) {
	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.RunAddr)
	assert.Equal(t, "", cfg.GRPCAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.DBConnectionTimeout)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.False(t, cfg.EnableGzip)
}

func TestConfigPriorityJSONOnly(t *testing.T) {
	jsonPath := writeTempJSON(t, testJSON)
	t.Setenv("CONFIG", jsonPath)

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.RunAddr)
	assert.Equal(t, ":3001", cfg.GRPCAddr)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN)
	assert.Equal(t, "json-secret-key-0123456789", cfg.JWTSecretKey)
	assert.Equal(t, 45*time.Minute, cfg.TokenTTL)
	assert.True(t, cfg.EnableGzip)
}

func TestConfigPriorityJSONPlusEnv(t *testing.T) {
	jsonPath := writeTempJSON(t, testJSON)
	t.Setenv("CONFIG", jsonPath)
	t.Setenv("SERVER_ADDRESS", ":4000")
	t.Setenv("TOKEN_TTL", "5m")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":4000", cfg.RunAddr) // env overrides json
	assert.Equal(t, 5*time.Minute, cfg.TokenTTL)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN) // from JSON
}

func TestConfigPriorityAllSources(t *testing.T) {
	jsonPath := writeTempJSON(t, testJSON)
	t.Setenv("CONFIG", jsonPath)
	t.Setenv("SERVER_ADDRESS", ":4000")
	t.Setenv("LOG_LEVEL", "error")

	oldArgs := os.Args
	t.Cleanup(func() { os.Args = oldArgs })
	os.Args = []string{
		"testbin",
		"-a", ":6000",
		"-l", "debug",
	}

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, ":6000", cfg.RunAddr) // CLI > ENV > JSON
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN) // from JSON
}

func TestConfigEnvOnly(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", ":7000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TRUSTED_SUBNET", "10.0.0.0/8")
	t.Setenv("SQLITE_FILE", t.TempDir()+"/books.db")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.RunAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "10.0.0.0/8", cfg.TrustedSubnet)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "bad_log_level", key: "LOG_LEVEL", value: "loud"},
		{name: "bad_address", key: "SERVER_ADDRESS", value: "nowhere"},
		{name: "short_secret", key: "JWT_SECRET_KEY", value: "short"},
		{name: "bad_subnet", key: "TRUSTED_SUBNET", value: "10.0.0.0"},
		{name: "bad_proxies", key: "TRUSTED_PROXIES", value: "proxy"},
		{name: "negative_rate_limit", key: "AUTH_RATE_LIMIT", value: "-1"},
		{name: "missing_sqlite_dir", key: "SQLITE_FILE", value: "/definitely/not/here/books.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := New(WithDisableFlagsParsing(true))
			assert.Error(t, err)
		})
	}
}

func TestConfigBrokenJSON(t *testing.T) {
	t.Setenv("CONFIG", writeTempJSON(t, `{"server_address":`))

	_, err := New(WithDisableFlagsParsing(true))
	assert.Error(t, err)
}

func TestConfigRateLimit(t *testing.T) {
	tests := []struct {
		name      string
		json      string
		env       map[string]string
		wantLimit float64
		wantBurst int
	}{
		{name: "defaults", wantLimit: 5, wantBurst: 10},
		{name: "env_disables", env: map[string]string{"AUTH_RATE_LIMIT": "0"}, wantLimit: 0, wantBurst: 10},
		{name: "env_zero_burst", env: map[string]string{"AUTH_RATE_BURST": "0"}, wantLimit: 5, wantBurst: 0},
		{name: "json_disables", json: `{"auth_rate_limit": 0}`, wantLimit: 0, wantBurst: 10},
		{name: "json_sets", json: `{"auth_rate_limit": 0.5, "auth_rate_burst": 3}`, wantLimit: 0.5, wantBurst: 3},
		{name: "env_over_json", json: `{"auth_rate_limit": 0}`, env: map[string]string{"AUTH_RATE_LIMIT": "2"}, wantLimit: 2, wantBurst: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.json != "" {
				t.Setenv("CONFIG", writeTempJSON(t, tt.json))
			}
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			cfg, err := New(WithDisableFlagsParsing(true))
			require.NoError(t, err)

			assert.Equal(t, tt.wantLimit, cfg.AuthRateLimit)
			assert.Equal(t, tt.wantBurst, cfg.AuthRateBurst)
		})
	}
}

func TestConfigTrustedProxies(t *testing.T) {
	t.Setenv("CONFIG", writeTempJSON(t, `{"trusted_proxies": "10.0.0.0/8"}`))

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.0/8", cfg.TrustedProxies)

	t.Setenv("TRUSTED_PROXIES", "172.16.0.0/12")

	cfg, err = New(WithDisableFlagsParsing(true))
	require.NoError(t, err)
	assert.Equal(t, "172.16.0.0/12", cfg.TrustedProxies)
}
