// Package config loads lexicard settings from a TOML file and LEXICARD_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/japaniel/lexicard/pkg/tokenize"
)

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Lookup   LookupConfig   `toml:"lookup"`
	Import   ImportConfig   `toml:"import"`
	Log      LogConfig      `toml:"log"`
}

// DatabaseConfig holds the SQLite location.
type DatabaseConfig struct {
	Path string `toml:"path" env:"LEXICARD_DB_PATH" env-default:"lexicard.db"`
}

// LookupConfig tunes candidate generation.
type LookupConfig struct {
	MaxCandidateLength int  `toml:"max_candidate_length" env:"LEXICARD_LOOKUP_MAX_CANDIDATE_LENGTH" env-default:"8"`
	HighRecall         bool `toml:"high_recall"          env:"LEXICARD_LOOKUP_HIGH_RECALL"          env-default:"false"`
	MaxPhraseTokens    int  `toml:"max_phrase_tokens"    env:"LEXICARD_LOOKUP_MAX_PHRASE_TOKENS"    env-default:"5"`
	UseMorphology      bool `toml:"use_morphology"       env:"LEXICARD_LOOKUP_USE_MORPHOLOGY"       env-default:"false"`
}

// CandidateLength is the longest substring tried for CJK text.
func (c LookupConfig) CandidateLength() int {
	if c.HighRecall {
		return tokenize.HighRecallLength
	}
	return c.MaxCandidateLength
}

// ImportConfig tunes the import pipeline.
type ImportConfig struct {
	BatchSize       int  `toml:"batch_size"        env:"LEXICARD_IMPORT_BATCH_SIZE"        env-default:"500"`
	ChunkSize       int  `toml:"chunk_size"        env:"LEXICARD_IMPORT_CHUNK_SIZE"        env-default:"65536"`
	RollbackOnError bool `toml:"rollback_on_error" env:"LEXICARD_IMPORT_ROLLBACK_ON_ERROR" env-default:"true"`
	Workers         int  `toml:"workers"           env:"LEXICARD_IMPORT_WORKERS"           env-default:"2"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"  env:"LEXICARD_LOG_LEVEL"  env-default:"info"`
	Format string `toml:"format" env:"LEXICARD_LOG_FORMAT" env-default:"text"`
}

// ParsedLevel returns the configured level, falling back to info.
func (c LogConfig) ParsedLevel() log.Level {
	lvl, err := log.ParseLevel(c.Level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// Formatter returns the charmbracelet formatter for Format.
func (c LogConfig) Formatter() log.Formatter {
	switch strings.ToLower(c.Format) {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	}
	return log.TextFormatter
}

// EnvPath names the variable holding the config file path.
const EnvPath = "LEXICARD_CONFIG"

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "lexicard.db"},
		Lookup:   LookupConfig{MaxCandidateLength: tokenize.DefaultMaxLength, MaxPhraseTokens: 5},
		Import:   ImportConfig{BatchSize: 500, ChunkSize: 64 * 1024, RollbackOnError: true, Workers: 2},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads configuration from a TOML file and environment variables.
// Priority: ENV > file > defaults. When path is empty, LEXICARD_CONFIG is
// used, falling back to "./lexicard.toml". A missing file is only an error
// when its path was given explicitly.
func Load(path string) (*Config, error) {
	var cfg Config

	explicitPath := path != ""
	if !explicitPath {
		path = os.Getenv(EnvPath)
		explicitPath = path != ""
	}
	if path == "" {
		path = "./lexicard.toml"
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if explicitPath {
		return nil, fmt.Errorf("config: file %s: %w", path, err)
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Lookup.MaxCandidateLength < 1 {
		return fmt.Errorf("lookup.max_candidate_length must be > 0 (got %d)", c.Lookup.MaxCandidateLength)
	}
	if c.Lookup.MaxPhraseTokens < 1 {
		return fmt.Errorf("lookup.max_phrase_tokens must be > 0 (got %d)", c.Lookup.MaxPhraseTokens)
	}
	if c.Import.BatchSize < 1 {
		return fmt.Errorf("import.batch_size must be > 0 (got %d)", c.Import.BatchSize)
	}
	if c.Import.ChunkSize < 1 {
		return fmt.Errorf("import.chunk_size must be > 0 (got %d)", c.Import.ChunkSize)
	}
	if c.Import.Workers < 1 {
		return fmt.Errorf("import.workers must be > 0 (got %d)", c.Import.Workers)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("log.format must be text, json or logfmt (got %q)", c.Log.Format)
	}
	return nil
}

// Save writes c to path as TOML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c)
}
