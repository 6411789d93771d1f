package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultWorksheet      = "Sheet1"
	DefaultRequiredStatus = "faol mehnat shartnomasiga ega"
	DefaultPageSize       = 7
	DefaultCacheTTL       = 300 // seconds
)

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Sheet    SheetConfig    `json:"sheet"`
	Registry RegistryConfig `json:"registry"`
	Cache    CacheConfig    `json:"cache"`
}

type TelegramConfig struct {
	Token    string  `json:"token"`
	Proxy    string  `json:"proxy,omitempty"`
	AdminIDs []int64 `json:"adminIds"`
}

type SheetConfig struct {
	SpreadsheetID   string `json:"spreadsheetId"`
	Worksheet       string `json:"worksheet"`
	CredentialsFile string `json:"credentialsFile,omitempty"`
}

type RegistryConfig struct {
	RequiredStatus string `json:"requiredStatus"`
	PageSize       int    `json:"pageSize"`
	ActionLogPath  string `json:"actionLogPath,omitempty"`
}

type CacheConfig struct {
	TTLSeconds int `json:"ttlSeconds"`
	// RefreshSpec is an optional cron expression (robfig/cron, with
	// seconds) that re-warms the snapshot cache, e.g. "0 */4 * * * *".
	RefreshSpec string `json:"refreshSpec,omitempty"`
}

// CacheTTL returns the snapshot cache time-to-live.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

func DefaultConfig() *Config {
	return &Config{
		Sheet: SheetConfig{
			Worksheet: DefaultWorksheet,
		},
		Registry: RegistryConfig{
			RequiredStatus: DefaultRequiredStatus,
			PageSize:       DefaultPageSize,
			ActionLogPath:  filepath.Join(ConfigDir(), "user_actions.json"),
		},
		Cache: CacheConfig{
			TTLSeconds: DefaultCacheTTL,
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".registrybot")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if token := os.Getenv("BOT_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}
	if proxy := os.Getenv("REGISTRYBOT_PROXY"); proxy != "" {
		cfg.Telegram.Proxy = proxy
	}
	if ids := os.Getenv("ADMIN_IDS"); ids != "" {
		if parsed, err := parseAdminIDs(ids); err == nil {
			cfg.Telegram.AdminIDs = parsed
		}
	}
	if id := os.Getenv("SHEET_ID"); id != "" {
		cfg.Sheet.SpreadsheetID = id
	}
	if title := os.Getenv("WORKSHEET_TITLE"); title != "" {
		cfg.Sheet.Worksheet = title
	}
	if status := os.Getenv("REQUIRED_STATUS"); status != "" {
		cfg.Registry.RequiredStatus = status
	}
	if size := os.Getenv("REGISTRYBOT_PAGE_SIZE"); size != "" {
		if parsed, err := strconv.Atoi(size); err == nil && parsed > 0 {
			cfg.Registry.PageSize = parsed
		}
	}
	if ttl := os.Getenv("REGISTRYBOT_CACHE_TTL"); ttl != "" {
		if parsed, err := strconv.Atoi(ttl); err == nil && parsed > 0 {
			cfg.Cache.TTLSeconds = parsed
		}
	}

	if cfg.Sheet.Worksheet == "" {
		cfg.Sheet.Worksheet = DefaultWorksheet
	}
	if cfg.Registry.RequiredStatus == "" {
		cfg.Registry.RequiredStatus = DefaultRequiredStatus
	}
	if cfg.Registry.PageSize <= 0 {
		cfg.Registry.PageSize = DefaultPageSize
	}
	if cfg.Registry.ActionLogPath == "" {
		cfg.Registry.ActionLogPath = DefaultConfig().Registry.ActionLogPath
	}
	if cfg.Cache.TTLSeconds <= 0 {
		cfg.Cache.TTLSeconds = DefaultCacheTTL
	}

	return cfg, nil
}

func parseAdminIDs(s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse admin id %q: %w", p, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}
