// Package config loads engine configuration from a YAML or TOML file, the
// environment, and defaults, using viper the way this codebase always has.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// ExportSettings controls the Reassembler's stylesheet injection (spec §4.5).
type ExportSettings struct {
	TextAlignment   string `mapstructure:"text_alignment"` // left|center|right|justify
	ForceAlignment  bool   `mapstructure:"force_alignment"`
}

// Config holds every tunable named in spec.md §6, plus the ambient options
// (source/target language, model fallback chain, credentials, store path)
// the distilled spec leaves to the implementation.
type Config struct {
	SourceLang string `mapstructure:"source_lang"`
	TargetLang string `mapstructure:"target_lang"`

	// Models is the ordered fallback chain tried in sequence by the
	// Translator Client (spec §4.4).
	Models     []string `mapstructure:"models"`
	APIKey     string   `mapstructure:"api_key"`
	APIBaseURL string   `mapstructure:"api_base_url"`
	OrgID      string   `mapstructure:"org_id"`

	WorkerConcurrency  int `mapstructure:"worker_concurrency"`
	BatchCharLimit     int `mapstructure:"batch_char_limit"`
	TranslateTimeoutMs int `mapstructure:"translate_timeout_ms"`
	MaxRetries         int `mapstructure:"max_retries"`

	ExportSettings ExportSettings `mapstructure:"export_settings"`

	StorePath string `mapstructure:"store_path"`
	Debug     bool   `mapstructure:"debug"`
}

// Default returns the configuration spec.md §6 describes before any file or
// environment override is applied.
func Default() *Config {
	return &Config{
		SourceLang:         "en",
		TargetLang:         "ar",
		Models:             []string{"gpt-4o", "gpt-4o-mini", "gpt-4-turbo"},
		WorkerConcurrency:  5,
		BatchCharLimit:     6000,
		TranslateTimeoutMs: 600000,
		MaxRetries:         3,
		ExportSettings: ExportSettings{
			TextAlignment:  "justify",
			ForceAlignment: false,
		},
		StorePath: defaultStorePath(),
	}
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "epub-translate", "store.json")
}

// Load reads configPath (or searches the user's home directory and the
// working directory for ".epub-translate.{yaml,toml}" if configPath is
// empty), merges environment overrides prefixed EPUB_TRANSLATE_, and
// returns the resulting configuration layered over Default(). A config file
// that does not exist is not an error: the defaults and environment apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".epub-translate")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("EPUB_TRANSLATE")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.StorePath == "" {
		cfg.StorePath = defaultStorePath()
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("source_lang", d.SourceLang)
	v.SetDefault("target_lang", d.TargetLang)
	v.SetDefault("models", d.Models)
	v.SetDefault("worker_concurrency", d.WorkerConcurrency)
	v.SetDefault("batch_char_limit", d.BatchCharLimit)
	v.SetDefault("translate_timeout_ms", d.TranslateTimeoutMs)
	v.SetDefault("max_retries", d.MaxRetries)
	v.SetDefault("export_settings.text_alignment", d.ExportSettings.TextAlignment)
	v.SetDefault("export_settings.force_alignment", d.ExportSettings.ForceAlignment)
	v.SetDefault("store_path", d.StorePath)
}
