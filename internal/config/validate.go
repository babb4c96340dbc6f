package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var archiveNamePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_-]*$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateArchive(); err != nil {
		return err
	}
	if err := c.validateServices(); err != nil {
		return err
	}
	if err := c.validateTool(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateArchive() error {
	if c.Archive.Name != "" && !archiveNamePattern.MatchString(c.Archive.Name) {
		return fmt.Errorf("archive.name %q must start with a letter and contain only uppercase letters, digits, '_' or '-'", c.Archive.Name)
	}
	if c.Archive.Collection != "" && !archiveNamePattern.MatchString(c.Archive.Collection) {
		return fmt.Errorf("archive.collection %q must start with a letter and contain only uppercase letters, digits, '_' or '-'", c.Archive.Collection)
	}
	if _, err := c.CompileNamePatterns(); err != nil {
		return err
	}
	return nil
}

// CompileNamePatterns compiles archive.name_patterns into regular expressions.
// A file id must match at least one pattern to be treated as an ingestion
// candidate; an empty list accepts every id.
func (c *Config) CompileNamePatterns() ([]*regexp.Regexp, error) {
	if len(c.Archive.NamePatterns) == 0 {
		return nil, nil
	}
	patterns := make([]*regexp.Regexp, 0, len(c.Archive.NamePatterns))
	for i, raw := range c.Archive.NamePatterns {
		compiled, err := regexp.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("archive.name_patterns[%d]: %w", i, err)
		}
		patterns = append(patterns, compiled)
	}
	return patterns, nil
}

func (c *Config) validateServices() error {
	if err := validateServiceURL("repository.url", c.Repository.URL); err != nil {
		return err
	}
	if err := validateServiceURL("store.url", c.Store.URL); err != nil {
		return err
	}
	if err := validateServiceURL("depot.url", c.Depot.URL); err != nil {
		return err
	}
	return ensurePositiveMap(map[string]int{
		"repository.timeout_seconds":    c.Repository.TimeoutSeconds,
		"repository.retry_attempts":     c.Repository.RetryAttempts,
		"repository.retry_base_seconds": c.Repository.RetryBaseSeconds,
		"store.timeout_seconds":         c.Store.TimeoutSeconds,
		"depot.timeout_seconds":         c.Depot.TimeoutSeconds,
		"tool.timeout_seconds":          c.Tool.TimeoutSeconds,
	})
}

func (c *Config) validateTool() error {
	if strings.TrimSpace(c.Tool.Binary) == "" {
		return errors.New("tool.binary must be set")
	}
	return nil
}

func validateServiceURL(key, value string) error {
	if value == "" {
		return nil
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", key, value)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host: %q", key, value)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
