// Package config provides configuration loading for the application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/catalog-steward/internal/common"
	"github.com/spf13/viper"
)

// Config is the fully resolved configuration handed to each component at
// construction time. Nothing reads viper after Load returns.
type Config struct {
	Product  ProductConfig
	Codes    CodesConfig
	Files    FilesConfig
	Timing   TimingConfig
	Limits   LimitsConfig
	Browser  BrowserConfig
	Defaults FieldDefaults
}

// ProductConfig locates the inventory product.
type ProductConfig struct {
	LoginURL       string
	ItemLibraryURL string
}

// CodesConfig holds the baseline categories and ledger codes.
type CodesConfig struct {
	DefaultLedgerCode string
	SpecialLedgerCode string
	DefaultCategory   string
	ExcludedCategory  string
}

// FilesConfig holds the audit trail locations and the optional rules file.
type FilesConfig struct {
	AuditLog       string
	FlaggedLog     string
	ReapplyLog     string
	ReapplyErrors  string
	Database       string
	RulesFile      string
	ScreenshotsDir string
}

// TimingConfig holds the latency allowances for the product UI.
type TimingConfig struct {
	BetweenItems   time.Duration
	AfterAction    time.Duration
	ApprovalSettle time.Duration
	PollInterval   time.Duration
	NavigationWait time.Duration
	ErrorBackoff   time.Duration
	RecoverySettle time.Duration
}

// LimitsConfig holds the run-level circuit breakers.
type LimitsConfig struct {
	MaxConsecutiveErrors int
	MaxConsecutiveStuck  int
	MaxItemsPerRun       int
}

// BrowserConfig configures the browser session.
type BrowserConfig struct {
	Bin         string
	DebuggerURL string
	Headless    bool
}

// FieldDefaults are the values written into required fields that are empty.
type FieldDefaults struct {
	Size string
	Unit string
}

// SetDefaults registers the default values with v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("product.login_url", "https://app.sa.toasttab.com")
	v.SetDefault("product.item_library_url", "https://app.sa.toasttab.com/XtraChefManagement/ProductCatalog/ProductCatalog")

	v.SetDefault("codes.default_ledger_code", "5000")
	v.SetDefault("codes.special_ledger_code", "5001")
	v.SetDefault("codes.default_category", "Food Purchases")
	v.SetDefault("codes.excluded_category", "Non-Food Items")

	v.SetDefault("files.audit_log", "audit-log.csv")
	v.SetDefault("files.flagged_log", "flagged-items.csv")
	v.SetDefault("files.reapply_log", "recat-log.csv")
	v.SetDefault("files.reapply_errors", "recat-errors.csv")
	v.SetDefault("files.database", "$HOME/.local/share/steward/steward.db")
	v.SetDefault("files.rules", "")
	v.SetDefault("files.screenshots", ".")

	v.SetDefault("timing.between_items", 3*time.Second)
	v.SetDefault("timing.after_action", 1500*time.Millisecond)
	v.SetDefault("timing.approval_settle", 2*time.Second)
	v.SetDefault("timing.poll_interval", 500*time.Millisecond)
	v.SetDefault("timing.navigation_wait", 15*time.Second)
	v.SetDefault("timing.error_backoff", 3*time.Second)
	v.SetDefault("timing.recovery_settle", 5*time.Second)

	v.SetDefault("limits.max_consecutive_errors", 5)
	v.SetDefault("limits.max_consecutive_stuck", 3)
	v.SetDefault("limits.max_items_per_run", 500)

	v.SetDefault("browser.bin", "")
	v.SetDefault("browser.debugger_url", "")
	v.SetDefault("browser.headless", false)

	v.SetDefault("defaults.size", "1")
	v.SetDefault("defaults.unit", "lb")
}

// Load resolves the configuration from v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Product: ProductConfig{
			LoginURL:       v.GetString("product.login_url"),
			ItemLibraryURL: v.GetString("product.item_library_url"),
		},
		Codes: CodesConfig{
			DefaultLedgerCode: v.GetString("codes.default_ledger_code"),
			SpecialLedgerCode: v.GetString("codes.special_ledger_code"),
			DefaultCategory:   v.GetString("codes.default_category"),
			ExcludedCategory:  v.GetString("codes.excluded_category"),
		},
		Files: FilesConfig{
			AuditLog:       ExpandPath(v.GetString("files.audit_log")),
			FlaggedLog:     ExpandPath(v.GetString("files.flagged_log")),
			ReapplyLog:     ExpandPath(v.GetString("files.reapply_log")),
			ReapplyErrors:  ExpandPath(v.GetString("files.reapply_errors")),
			Database:       ExpandPath(v.GetString("files.database")),
			RulesFile:      ExpandPath(v.GetString("files.rules")),
			ScreenshotsDir: ExpandPath(v.GetString("files.screenshots")),
		},
		Timing: TimingConfig{
			BetweenItems:   v.GetDuration("timing.between_items"),
			AfterAction:    v.GetDuration("timing.after_action"),
			ApprovalSettle: v.GetDuration("timing.approval_settle"),
			PollInterval:   v.GetDuration("timing.poll_interval"),
			NavigationWait: v.GetDuration("timing.navigation_wait"),
			ErrorBackoff:   v.GetDuration("timing.error_backoff"),
			RecoverySettle: v.GetDuration("timing.recovery_settle"),
		},
		Limits: LimitsConfig{
			MaxConsecutiveErrors: v.GetInt("limits.max_consecutive_errors"),
			MaxConsecutiveStuck:  v.GetInt("limits.max_consecutive_stuck"),
			MaxItemsPerRun:       v.GetInt("limits.max_items_per_run"),
		},
		Browser: BrowserConfig{
			Bin:         ExpandPath(v.GetString("browser.bin")),
			DebuggerURL: v.GetString("browser.debugger_url"),
			Headless:    v.GetBool("browser.headless"),
		},
		Defaults: FieldDefaults{
			Size: v.GetString("defaults.size"),
			Unit: v.GetString("defaults.unit"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values the run cannot do without.
func (c Config) Validate() error {
	required := map[string]string{
		"product.login_url":         c.Product.LoginURL,
		"product.item_library_url":  c.Product.ItemLibraryURL,
		"codes.default_ledger_code": c.Codes.DefaultLedgerCode,
		"codes.default_category":    c.Codes.DefaultCategory,
		"files.audit_log":           c.Files.AuditLog,
		"files.flagged_log":         c.Files.FlaggedLog,
		"defaults.size":             c.Defaults.Size,
		"defaults.unit":             c.Defaults.Unit,
	}
	for key, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: %s", common.ErrMissingConfig, key)
		}
	}
	if c.Limits.MaxConsecutiveErrors <= 0 || c.Limits.MaxConsecutiveStuck <= 0 {
		return fmt.Errorf("%w: circuit breaker limits must be positive", common.ErrInvalidConfig)
	}
	if c.Limits.MaxItemsPerRun <= 0 {
		return fmt.Errorf("%w: limits.max_items_per_run must be positive", common.ErrInvalidConfig)
	}
	if c.Timing.PollInterval <= 0 {
		return fmt.Errorf("%w: timing.poll_interval must be positive", common.ErrInvalidConfig)
	}
	return nil
}

// ExpandPath expands ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}
