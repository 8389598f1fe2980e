package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 5840, cfg.Server.Port)
	assert.Equal(t, "http://localhost:5840", cfg.Server.BaseURL)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "UTC", cfg.Database.TimeZone)
	assert.NotEmpty(t, cfg.Generator.AnthropicModel)
	assert.NotEmpty(t, cfg.Generator.OpenAIModel)
	assert.Equal(t, "* * * * *", cfg.Scheduler.Spec)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9090
	cfg.Server.BaseURL = "https://inkcast.example.com"
	cfg.Scheduler.Spec = "*/5 * * * *"

	ApplyDefaults(cfg)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "https://inkcast.example.com", cfg.Server.BaseURL)
	assert.Equal(t, "*/5 * * * *", cfg.Scheduler.Spec)
}
