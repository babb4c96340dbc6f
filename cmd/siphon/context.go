package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"siphon/internal/config"
	"siphon/internal/containers"
)

type globalFlags struct {
	configPath string
	logFormat  string
	filter     string
	archive    string
	collection string
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		path := strings.TrimSpace(c.flags.configPath)
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// archiveName resolves the destination archive: flag first, config second.
func (c *commandContext) archiveName(cfg *config.Config) (string, error) {
	if name := strings.TrimSpace(c.flags.archive); name != "" {
		return name, nil
	}
	if cfg.Archive.Name != "" {
		return cfg.Archive.Name, nil
	}
	return "", fmt.Errorf("no archive configured; set archive.name or pass --archive")
}

// collectionName resolves the metadata collection, falling back to the
// archive name when neither the flag nor the config names one.
func (c *commandContext) collectionName(cfg *config.Config) (string, error) {
	if name := strings.TrimSpace(c.flags.collection); name != "" {
		return name, nil
	}
	if cfg.Archive.Collection != "" {
		return cfg.Archive.Collection, nil
	}
	return c.archiveName(cfg)
}

// listingFilter maps the --filter flag onto a container filter predicate.
func (c *commandContext) listingFilter() (containers.Filter, error) {
	switch strings.ToLower(strings.TrimSpace(c.flags.filter)) {
	case "", "fits":
		return containers.FITSFilter, nil
	case "none", "all":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown filter %q (expected fits or none)", c.flags.filter)
	}
}

// logFormat resolves the log format: flag override first, config second.
func (c *commandContext) logFormat(cfg *config.Config) string {
	if format := strings.TrimSpace(c.flags.logFormat); format != "" {
		return format
	}
	return cfg.Logging.Format
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
