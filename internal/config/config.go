package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains working directory configuration.
type Paths struct {
	WorkDir string `toml:"work_dir"`
	LogDir  string `toml:"log_dir"`
}

// Archive identifies the destination archive and metadata collection.
type Archive struct {
	Name          string   `toml:"name"`
	Collection    string   `toml:"collection"`
	FileIndexPath string   `toml:"file_index_path"`
	NamePatterns  []string `toml:"name_patterns"`
}

// Repository contains configuration for the observation repository service.
type Repository struct {
	URL              string `toml:"url"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
	RetryAttempts    int    `toml:"retry_attempts"`
	RetryBaseSeconds int    `toml:"retry_base_seconds"`
}

// Store contains configuration for the file store web service.
type Store struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Stream         string `toml:"stream"`
}

// Depot contains configuration for remote depot namespace listings.
type Depot struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Tool contains configuration for the external metadata translation tool.
type Tool struct {
	Binary          string `toml:"binary"`
	ConfigPath      string `toml:"config_path"`
	DefaultPath     string `toml:"default_path"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	RetainOverrides bool   `toml:"retain_overrides"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Siphon.
//
// Configuration sections by subsystem:
//   - Paths: per-run working and log directories
//   - Archive: archive name, default collection, and the file index location
//   - Repository: observation repository service endpoint and retry policy
//   - Store: file store web service endpoint and upload stream
//   - Depot: remote depot namespace listing endpoint
//   - Tool: external metadata translation tool and its pass-through files
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Archive    Archive    `toml:"archive"`
	Repository Repository `toml:"repository"`
	Store      Store      `toml:"store"`
	Depot      Depot      `toml:"depot"`
	Tool       Tool       `toml:"tool"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/siphon/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/siphon/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("siphon.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for a run.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Archive.FileIndexPath) != "" {
		dir := filepath.Dir(c.Archive.FileIndexPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create file index directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
