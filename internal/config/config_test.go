package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SerpentAI/selenium-respectful/internal/core/domain"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Storage.Type)
	assert.Equal(t, "localhost", cfg.Storage.Redis.Host)
	assert.Equal(t, 6379, cfg.Storage.Redis.Port)
	assert.Equal(t, "RESPECTFUL", cfg.Storage.Redis.Prefix)
	assert.Equal(t, 0, cfg.Limiter.SafetyThreshold)
	assert.Equal(t, time.Second, cfg.Limiter.WaitInterval)
	assert.Zero(t, cfg.Limiter.WaitDeadline)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("REDIS_HOST", "redis.internal")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("KEY_PREFIX", "CRAWLER")
	t.Setenv("SAFETY_THRESHOLD", "5")
	t.Setenv("WAIT_INTERVAL_SECONDS", "2")
	t.Setenv("WAIT_JITTER_MS", "250")
	t.Setenv("WAIT_DEADLINE_SECONDS", "30")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "redis.internal", cfg.Storage.Redis.Host)
	assert.Equal(t, 6380, cfg.Storage.Redis.Port)
	assert.Equal(t, "CRAWLER", cfg.Storage.Redis.Prefix)
	assert.Equal(t, 5, cfg.Limiter.SafetyThreshold)
	assert.Equal(t, 2*time.Second, cfg.Limiter.WaitInterval)
	assert.Equal(t, 250*time.Millisecond, cfg.Limiter.WaitJitter)
	assert.Equal(t, 30*time.Second, cfg.Limiter.WaitDeadline)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]map[string]string{
		"negative threshold":     {"SAFETY_THRESHOLD": "-1"},
		"non-integer threshold":  {"SAFETY_THRESHOLD": "many"},
		"non-integer redis port": {"REDIS_PORT": "not-a-port"},
		"zero wait interval":     {"WAIT_INTERVAL_SECONDS": "0"},
		"negative jitter":        {"WAIT_JITTER_MS": "-10"},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for key, value := range env {
				t.Setenv(key, value)
			}

			_, err := Load()
			var configErr *domain.ConfigError
			assert.ErrorAs(t, err, &configErr)
		})
	}
}
