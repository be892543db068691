package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env"
	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions. Environment overrides are applied separately by ApplyEnv.

// FeedConfig describes a single ICS subscription converted into events.json.
type FeedConfig struct {
	// Association is the name every event of this feed is grouped under.
	Association string `yaml:"association" json:"association"`
	// URL is the ICS subscription endpoint (webcal:// is accepted).
	URL string `yaml:"url" json:"url"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// VariantConfig selects the modal features of one page variant.
type VariantConfig struct {
	// Themed tints the modal from the association colour.
	Themed bool `yaml:"themed" json:"themed"`
	// SplitDateTime shows date and time on separate rows.
	SplitDateTime bool `yaml:"split_date_time" json:"split_date_time"`
	// LightenPercent / HeaderPercent are brightness offsets for the themed
	// background and header.
	LightenPercent float64 `yaml:"lighten_percent" json:"lighten_percent"`
	HeaderPercent  float64 `yaml:"header_percent" json:"header_percent"`
	// Compact starts the calendar in list view with a shorter toolbar.
	Compact bool `yaml:"compact" json:"compact"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the widget pages and API.
	Listen string `yaml:"listen" json:"listen"`

	// SourceBaseURL is where assoc-colors.json and events.json are fetched
	// from. Empty means this server itself (http://<listen>).
	SourceBaseURL string `yaml:"source_base_url" json:"source_base_url"`

	// PublicDir holds events.json, assoc-colors.json and images/.
	PublicDir string `yaml:"public_dir" json:"public_dir"`

	// ImagesDir holds poster images; defaults to <public_dir>/images.
	ImagesDir string `yaml:"images_dir" json:"images_dir"`

	// CacheDir is the ICS fetch cache.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// PreviewPath is where -snapshot writes the page screenshot served at
	// /preview.png.
	PreviewPath string `yaml:"preview_path" json:"preview_path"`

	// Timezone is the IANA timezone used for all displayed dates.
	Timezone string `yaml:"timezone" json:"timezone"`

	// FallbackColor is used for associations absent from the colour mapping.
	FallbackColor string `yaml:"fallback_color" json:"fallback_color"`

	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"`

	// Colors, when non-empty, is written to assoc-colors.json by the converter.
	Colors map[string]string `yaml:"colors" json:"colors"`

	// Feeds is the list of ICS sources for the converter.
	Feeds []FeedConfig `yaml:"feeds" json:"feeds"`

	// FeedsFile is an optional "association=url" file merged into Feeds.
	FeedsFile string `yaml:"feeds_file" json:"feeds_file"`

	// RefreshCron is the conversion schedule (e.g. "*/5 * * * *").
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// HorizonDays / BackfillDays bound recurrence expansion.
	HorizonDays  int `yaml:"horizon_days" json:"horizon_days"`
	BackfillDays int `yaml:"backfill_days" json:"backfill_days"`

	// SessionTTLMinutes is how long an idle page session is kept.
	SessionTTLMinutes int `yaml:"session_ttl_minutes" json:"session_ttl_minutes"`

	// Variants maps a page variant ("pc", "mobile") to its options.
	Variants map[string]VariantConfig `yaml:"variants" json:"variants"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// envOverrides are read with caarlos0/env; empty values leave the file
// value in place.
type envOverrides struct {
	Listen        string `env:"ASSOCAL_LISTEN"`
	SourceBaseURL string `env:"ASSOCAL_SOURCE_BASE_URL"`
	PublicDir     string `env:"ASSOCAL_PUBLIC_DIR"`
	Timezone      string `env:"ASSOCAL_TIMEZONE"`
	LogLevel      string `env:"ASSOCAL_LOG_LEVEL"`
	RefreshCron   string `env:"ASSOCAL_REFRESH"`
}

const (
	defaultListen      = "127.0.0.1:8080"
	defaultPublicDir   = "./public"
	defaultCacheDir    = "./cache/ics-cache"
	defaultPreviewPath = "./cache/preview.png"
	defaultTimezone    = "America/Toronto"
	defaultFallback    = "#3788d8"
	defaultRefreshCron = "*/5 * * * *"
)

// DefaultVariants returns the stock desktop and mobile variants.
func DefaultVariants() map[string]VariantConfig {
	return map[string]VariantConfig{
		"pc": {
			Themed:         false,
			SplitDateTime:  true,
			LightenPercent: 80,
			HeaderPercent:  -20,
		},
		"mobile": {
			Themed:         true,
			SplitDateTime:  false,
			LightenPercent: 80,
			HeaderPercent:  -20,
			Compact:        true,
		},
	}
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:            defaultListen,
		PublicDir:         defaultPublicDir,
		CacheDir:          defaultCacheDir,
		PreviewPath:       defaultPreviewPath,
		Timezone:          defaultTimezone,
		FallbackColor:     defaultFallback,
		LogLevel:          "info",
		LogFormat:         "text",
		Colors:            map[string]string{},
		Feeds:             []FeedConfig{},
		RefreshCron:       defaultRefreshCron,
		HorizonDays:       365,
		BackfillDays:      90,
		SessionTTLMinutes: 60,
		Variants:          DefaultVariants(),
		BasicAuth:         nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.PublicDir == "" {
		c.PublicDir = defaultPublicDir
	}
	if c.ImagesDir == "" {
		c.ImagesDir = filepath.Join(c.PublicDir, "images")
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.PreviewPath == "" {
		c.PreviewPath = defaultPreviewPath
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.FallbackColor == "" {
		c.FallbackColor = defaultFallback
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.Colors == nil {
		c.Colors = map[string]string{}
	}
	if c.Feeds == nil {
		c.Feeds = []FeedConfig{}
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = 365
	}
	if c.BackfillDays < 0 {
		c.BackfillDays = 0
	}
	if c.SessionTTLMinutes <= 0 {
		c.SessionTTLMinutes = 60
	}
	if c.Variants == nil {
		c.Variants = DefaultVariants()
	}
	// Make sure both stock variants exist even if only one was configured.
	for name, v := range DefaultVariants() {
		if _, ok := c.Variants[name]; !ok {
			c.Variants[name] = v
		}
	}
}

// BaseURL returns where the widget loads its data from.
func (c *Config) BaseURL() string {
	if c.SourceBaseURL != "" {
		return c.SourceBaseURL
	}
	return "http://" + c.Listen
}

// ApplyEnv overrides file values with ASSOCAL_* environment variables.
func (c *Config) ApplyEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return err
	}
	if o.Listen != "" {
		c.Listen = o.Listen
	}
	if o.SourceBaseURL != "" {
		c.SourceBaseURL = o.SourceBaseURL
	}
	if o.PublicDir != "" {
		c.PublicDir = o.PublicDir
		c.ImagesDir = filepath.Join(o.PublicDir, "images")
	}
	if o.Timezone != "" {
		c.Timezone = o.Timezone
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.RefreshCron != "" {
		c.RefreshCron = o.RefreshCron
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return WriteFileAtomic(path, data, 0o600)
}

// WriteFileAtomic writes data to a temp file in the same directory and
// renames it over path, so readers never see a partial file.
func WriteFileAtomic(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	dirPerm := fs.FileMode(0o700)
	if perm&0o044 != 0 {
		dirPerm = 0o755
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".assocal-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
