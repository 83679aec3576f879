package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions.

// OCRConfig controls the tesseract invocation.
type OCRConfig struct {
	// Tesseract is the binary name or absolute path.
	Tesseract string `yaml:"tesseract" json:"tesseract"`
	// Lang is the tesseract language pack, e.g. "deu".
	Lang        string `yaml:"lang" json:"lang"`
	TessdataDir string `yaml:"tessdata_dir,omitempty" json:"tessdata_dir,omitempty"`
	PSM         int    `yaml:"psm,omitempty" json:"psm,omitempty"`
	OEM         int    `yaml:"oem,omitempty" json:"oem,omitempty"`
	// TimeoutSeconds bounds a single recognition.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// ParserConfig tunes the text-to-shift parser.
type ParserConfig struct {
	// OCRFix is "global" (replace every uppercase S/O) or "numeric"
	// (only inside number-like tokens).
	OCRFix       string `yaml:"ocr_fix" json:"ocr_fix"`
	DefaultTitle string `yaml:"default_title" json:"default_title"`
	Description  string `yaml:"description" json:"description"`
}

// CalendarConfig controls the generated .ics file.
type CalendarConfig struct {
	ProductID string `yaml:"product_id" json:"product_id"`
	UIDDomain string `yaml:"uid_domain" json:"uid_domain"`
	FileName  string `yaml:"file_name" json:"file_name"`
}

// InboxConfig enables the directory watcher. An empty Dir disables it.
type InboxConfig struct {
	Dir    string `yaml:"dir" json:"dir"`
	OutDir string `yaml:"out_dir" json:"out_dir"`
	// Schedule is a cron-style schedule string (e.g. "*/5 * * * *").
	Schedule string `yaml:"schedule" json:"schedule"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// LogLevel is one of "debug", "info", "error".
	LogLevel string `yaml:"log_level" json:"log_level"`

	OCR      OCRConfig      `yaml:"ocr" json:"ocr"`
	Parser   ParserConfig   `yaml:"parser" json:"parser"`
	Calendar CalendarConfig `yaml:"calendar" json:"calendar"`
	Inbox    InboxConfig    `yaml:"inbox" json:"inbox"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:   "127.0.0.1:8080",
		LogLevel: "info",
		OCR: OCRConfig{
			Tesseract:      "tesseract",
			Lang:           "deu",
			TimeoutSeconds: 120,
		},
		Parser: ParserConfig{
			OCRFix:       "global",
			DefaultTitle: "Dienst",
			Description:  "Automatisch aus Screenshot extrahiert",
		},
		Calendar: CalendarConfig{
			ProductID: "-//Dienstplan OCR//DE",
			UIDDomain: "dienstplan.local",
			FileName:  "dienstplan.ics",
		},
		Inbox: InboxConfig{
			Schedule: "*/5 * * * *",
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Listen == "" {
		c.Listen = def.Listen
	}
	switch c.LogLevel {
	case "debug", "info", "error":
		// ok
	default:
		c.LogLevel = def.LogLevel
	}

	if c.OCR.Tesseract == "" {
		c.OCR.Tesseract = def.OCR.Tesseract
	}
	if c.OCR.Lang == "" {
		c.OCR.Lang = def.OCR.Lang
	}
	if c.OCR.TimeoutSeconds <= 0 {
		c.OCR.TimeoutSeconds = def.OCR.TimeoutSeconds
	}

	switch c.Parser.OCRFix {
	case "global", "numeric":
		// ok
	default:
		// Unknown value; fall back to the historical behavior.
		c.Parser.OCRFix = def.Parser.OCRFix
	}
	if c.Parser.DefaultTitle == "" {
		c.Parser.DefaultTitle = def.Parser.DefaultTitle
	}
	if c.Parser.Description == "" {
		c.Parser.Description = def.Parser.Description
	}

	if c.Calendar.ProductID == "" {
		c.Calendar.ProductID = def.Calendar.ProductID
	}
	if c.Calendar.UIDDomain == "" {
		c.Calendar.UIDDomain = def.Calendar.UIDDomain
	}
	if c.Calendar.FileName == "" {
		c.Calendar.FileName = def.Calendar.FileName
	}

	if c.Inbox.Schedule == "" {
		c.Inbox.Schedule = def.Inbox.Schedule
	}
	if c.Inbox.Dir != "" && c.Inbox.OutDir == "" {
		c.Inbox.OutDir = c.Inbox.Dir
	}
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

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".dienstplan-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
