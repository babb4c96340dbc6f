package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeArchive(); err != nil {
		return err
	}
	c.normalizeRepository()
	c.normalizeStore()
	c.normalizeDepot()
	if err := c.normalizeTool(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeArchive() error {
	if c.Archive.Name == "" {
		if value, ok := os.LookupEnv("SIPHON_ARCHIVE"); ok {
			c.Archive.Name = value
		}
	}
	c.Archive.Name = strings.ToUpper(strings.TrimSpace(c.Archive.Name))
	if c.Archive.Collection == "" {
		if value, ok := os.LookupEnv("SIPHON_COLLECTION"); ok {
			c.Archive.Collection = value
		}
	}
	c.Archive.Collection = strings.ToUpper(strings.TrimSpace(c.Archive.Collection))

	patterns := c.Archive.NamePatterns[:0]
	for _, pattern := range c.Archive.NamePatterns {
		if trimmed := strings.TrimSpace(pattern); trimmed != "" {
			patterns = append(patterns, trimmed)
		}
	}
	c.Archive.NamePatterns = patterns

	var err error
	if strings.TrimSpace(c.Archive.FileIndexPath) == "" {
		c.Archive.FileIndexPath = defaultFileIndexPath
	}
	if c.Archive.FileIndexPath, err = expandPath(c.Archive.FileIndexPath); err != nil {
		return fmt.Errorf("archive.file_index_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeRepository() {
	c.Repository.URL = strings.TrimRight(strings.TrimSpace(c.Repository.URL), "/")
	if c.Repository.TimeoutSeconds <= 0 {
		c.Repository.TimeoutSeconds = defaultRepositoryTimeout
	}
	if c.Repository.RetryAttempts <= 0 {
		c.Repository.RetryAttempts = defaultRetryAttempts
	}
	if c.Repository.RetryBaseSeconds <= 0 {
		c.Repository.RetryBaseSeconds = defaultRetryBaseSeconds
	}
}

func (c *Config) normalizeStore() {
	c.Store.URL = strings.TrimRight(strings.TrimSpace(c.Store.URL), "/")
	c.Store.Stream = strings.TrimSpace(c.Store.Stream)
	if c.Store.Stream == "" {
		c.Store.Stream = defaultStoreStream
	}
	if c.Store.TimeoutSeconds <= 0 {
		c.Store.TimeoutSeconds = defaultStoreTimeout
	}
}

func (c *Config) normalizeDepot() {
	c.Depot.URL = strings.TrimRight(strings.TrimSpace(c.Depot.URL), "/")
	if c.Depot.TimeoutSeconds <= 0 {
		c.Depot.TimeoutSeconds = defaultDepotTimeout
	}
}

func (c *Config) normalizeTool() error {
	c.Tool.Binary = strings.TrimSpace(c.Tool.Binary)
	if c.Tool.Binary == "" {
		c.Tool.Binary = defaultToolBinary
	}
	var err error
	if c.Tool.ConfigPath, err = expandPath(strings.TrimSpace(c.Tool.ConfigPath)); err != nil {
		return fmt.Errorf("tool.config_path: %w", err)
	}
	if c.Tool.DefaultPath, err = expandPath(strings.TrimSpace(c.Tool.DefaultPath)); err != nil {
		return fmt.Errorf("tool.default_path: %w", err)
	}
	if c.Tool.TimeoutSeconds <= 0 {
		c.Tool.TimeoutSeconds = defaultToolTimeout
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
