package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "triage-console", cfg.Logger.ServiceName)
	assert.Equal(t, "STATIC_ISSUES_LIST", cfg.Database.StaticCollection)
	assert.Equal(t, "ISSUES_LIST", cfg.Database.DynamicCollection)
	assert.Equal(t, 2013, cfg.Report.TrendEpochYear)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfigFromViper(t *testing.T) {
	t.Run("overrides defaults", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("database.name", "triage_test")
		v.Set("report.trend_epoch_year", 2020)

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "triage_test", cfg.Database.Name)
		assert.Equal(t, 2020, cfg.Report.TrendEpochYear)
	})

	t.Run("rejects identical collection names", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("database.static_collection", "ISSUES_LIST")

		_, err := NewConfigFromViper(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "distinct")
	})

	t.Run("rejects missing database uri", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("database.uri", "")

		_, err := NewConfigFromViper(v)
		require.Error(t, err)
	})

	t.Run("rejects pre-epoch trend year", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("report.trend_epoch_year", 1900)

		_, err := NewConfigFromViper(v)
		require.Error(t, err)
	})
}
