package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/catalog-steward/internal/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Codes.DefaultLedgerCode)
	assert.Equal(t, "5001", cfg.Codes.SpecialLedgerCode)
	assert.Equal(t, "Food Purchases", cfg.Codes.DefaultCategory)
	assert.Equal(t, "Non-Food Items", cfg.Codes.ExcludedCategory)
	assert.Equal(t, 15*time.Second, cfg.Timing.NavigationWait)
	assert.Equal(t, 500*time.Millisecond, cfg.Timing.PollInterval)
	assert.Equal(t, 5, cfg.Limits.MaxConsecutiveErrors)
	assert.Equal(t, 3, cfg.Limits.MaxConsecutiveStuck)
	assert.Equal(t, 500, cfg.Limits.MaxItemsPerRun)
	assert.Equal(t, "1", cfg.Defaults.Size)
	assert.Equal(t, "lb", cfg.Defaults.Unit)
	assert.False(t, cfg.Browser.Headless)
}

func TestLoad_ConfigFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
codes:
  default_category: "Kitchen Purchases"
timing:
  navigation_wait: 20s
limits:
  max_items_per_run: 25
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "Kitchen Purchases", cfg.Codes.DefaultCategory)
	assert.Equal(t, 20*time.Second, cfg.Timing.NavigationWait)
	assert.Equal(t, 25, cfg.Limits.MaxItemsPerRun)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   any
		wantErr error
	}{
		{name: "missing login url", key: "product.login_url", value: "", wantErr: common.ErrMissingConfig},
		{name: "missing default size", key: "defaults.size", value: " ", wantErr: common.ErrMissingConfig},
		{name: "zero error cap", key: "limits.max_consecutive_errors", value: 0, wantErr: common.ErrInvalidConfig},
		{name: "zero poll interval", key: "timing.poll_interval", value: "0s", wantErr: common.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			v.Set(tt.key, tt.value)

			_, err := Load(v)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("STEWARD_TEST_DIR", "/var/steward")

	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, filepath.Join(home, "logs/audit.csv"), ExpandPath("~/logs/audit.csv"))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, "/var/steward/audit.csv", ExpandPath("$STEWARD_TEST_DIR/audit.csv"))
}
