package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg := Load()
		assert.Equal(t, ":8080", cfg.HTTPAddr)
		assert.Equal(t, 0.7, cfg.MatchThreshold)
		assert.Equal(t, 90, cfg.DateWindowDays)
	})

	t.Run("Env Overrides", func(t *testing.T) {
		t.Setenv("HTTP_ADDR", ":9090")
		t.Setenv("MATCH_THRESHOLD", "0.85")
		t.Setenv("MATCH_DATE_WINDOW_DAYS", "30")

		cfg := Load()
		assert.Equal(t, ":9090", cfg.HTTPAddr)
		assert.Equal(t, 0.85, cfg.MatchThreshold)
		assert.Equal(t, 30, cfg.DateWindowDays)
	})

	t.Run("Malformed Values Fall Back", func(t *testing.T) {
		t.Setenv("MATCH_THRESHOLD", "high")
		t.Setenv("MATCH_DATE_WINDOW_DAYS", "ninety")

		cfg := Load()
		assert.Equal(t, 0.7, cfg.MatchThreshold)
		assert.Equal(t, 90, cfg.DateWindowDays)
	})
}
