package main

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/catalog-steward/internal/classification"
	"github.com/Veraticus/catalog-steward/internal/common"
	"github.com/Veraticus/catalog-steward/internal/config"
	"github.com/Veraticus/catalog-steward/internal/model"
)

func TestBaselineFrom(t *testing.T) {
	assert.Equal(t, classification.DefaultBaseline(), baselineFrom(config.CodesConfig{}))

	got := baselineFrom(config.CodesConfig{DefaultLedgerCode: "6000", ExcludedCategory: "Supplies"})
	assert.Equal(t, "6000", got.DefaultLedgerCode)
	assert.Equal(t, "5001", got.SpecialLedgerCode)
	assert.Equal(t, "Supplies", got.ExcludedCategory)
}

func TestResolveRunID(t *testing.T) {
	runs := []model.Run{
		{ID: "3f2a9c1e-0000"},
		{ID: "3f2b0000-1111"},
		{ID: "a0000000-2222"},
	}

	tests := []struct {
		name    string
		prefix  string
		want    string
		wantErr bool
	}{
		{name: "unique prefix", prefix: "3f2a", want: "3f2a9c1e-0000"},
		{name: "full id", prefix: "a0000000-2222", want: "a0000000-2222"},
		{name: "unknown passes through", prefix: "ffff", want: "ffff"},
		{name: "ambiguous", prefix: "3f2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveRunID(tt.prefix, runs)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatClassification(t *testing.T) {
	engine, err := classification.NewEngine(classification.DefaultRules(), classification.DefaultBaseline())
	require.NoError(t, err)

	got := formatClassification("SAKE JUNMAI 720ML", "Empire Distributors",
		engine.Classify("SAKE JUNMAI 720ML", "Empire Distributors"))
	assert.Contains(t, got, "SAKE JUNMAI 720ML")
	assert.Contains(t, got, "Empire Distributors")
	assert.Contains(t, got, "Liquor")
	assert.Contains(t, got, "Event materials")
	assert.Contains(t, got, "vendor rule")

	plain := formatClassification("CHICKEN THIGH", "", engine.Classify("CHICKEN THIGH", ""))
	assert.Contains(t, plain, "Food Purchases")
	assert.Contains(t, plain, "baseline")
	assert.NotContains(t, plain, "Vendor")
}

func TestFormatRecords(t *testing.T) {
	assert.Contains(t, formatRecords("abc", nil), "No records for run abc")

	records := []model.AuditRecord{{
		Timestamp:  time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
		Item:       "SAKE JUNMAI 720ML",
		Category:   "Liquor",
		LedgerCode: "Event materials",
		Status:     model.StatusApproved,
		Notes:      "vendor rule: Empire Distributors",
	}}
	got := formatRecords("abc", records)
	assert.Contains(t, got, "APPROVED")
	assert.Contains(t, got, "SAKE JUNMAI 720ML")
	assert.Contains(t, got, "Liquor / Event materials")
	assert.Contains(t, got, "vendor rule: Empire Distributors")
}

func TestSetupLogging(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{name: "text", level: "info", format: "text"},
		{name: "json", level: "debug", format: "json"},
		{name: "bad level", level: "loud", format: "text", wantErr: true},
		{name: "bad format", level: "info", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Set("logging.level", tt.level)
			viper.Set("logging.format", tt.format)
			t.Cleanup(func() {
				viper.Set("logging.level", "info")
				viper.Set("logging.format", "text")
			})

			err := setupLogging()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRootCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"review", "reapply", "classify", "rules", "history", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}
