package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "0.0.0.0:8080", cfg.ServerAddr)
	assert.True(t, cfg.EnablePlayground)
	assert.True(t, cfg.EnableIntrospection)
	assert.Equal(t, 10, cfg.MaxQueryDepth)
	assert.Equal(t, 1000, cfg.MaxQueryComplexity)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, []string{"127.0.0.1:9042"}, cfg.ScyllaHosts)
	assert.Equal(t, "drone_ops", cfg.ScyllaKeyspace)
	assert.Equal(t, "redis://127.0.0.1:6379", cfg.RedisURL)
	assert.Equal(t, 10, cfg.RedisPoolSize)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.ScyllaTimeout)
	assert.Equal(t, 30*time.Second, cfg.ShutdownDrain)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", "127.0.0.1:9090")
	t.Setenv("ENABLE_PLAYGROUND", "false")
	t.Setenv("MAX_QUERY_DEPTH", "4")
	t.Setenv("SCYLLA_HOSTS", "10.0.0.1:9042, 10.0.0.2:9042")
	t.Setenv("CORS_ORIGINS", "https://ops.example.mil,https://sim.example.mil")

	cfg := Load()

	assert.Equal(t, "127.0.0.1:9090", cfg.ServerAddr)
	assert.False(t, cfg.EnablePlayground)
	assert.Equal(t, 4, cfg.MaxQueryDepth)
	assert.Equal(t, []string{"10.0.0.1:9042", "10.0.0.2:9042"}, cfg.ScyllaHosts)
	assert.Equal(t, []string{"https://ops.example.mil", "https://sim.example.mil"}, cfg.CORSOrigins)
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"true", true},
		{"1", true},
		{"yes", true},
		{"Y", true},
		{"false", false},
		{"0", false},
		{"banana", false},
	}

	for _, tt := range tests {
		t.Setenv("TEST_BOOL", tt.raw)
		if got := GetEnvBool("TEST_BOOL", false); got != tt.want {
			t.Errorf("GetEnvBool(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestGetEnvIntInvalid(t *testing.T) {
	t.Setenv("TEST_INT", "not-a-number")
	assert.Equal(t, 42, GetEnvInt("TEST_INT", 42))
}

func TestSplitAndTrimCSV(t *testing.T) {
	assert.Nil(t, SplitAndTrimCSV(""))
	assert.Equal(t, []string{"a", "b"}, SplitAndTrimCSV(" a , b ,, "))
}
