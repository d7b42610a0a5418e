package config

import (
	"fmt"
	"strings"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Feed.validate(); err != nil {
		return err
	}
	if err := c.Cache.validate(); err != nil {
		return err
	}
	if err := c.Oracle.validate(); err != nil {
		return err
	}
	return nil
}

func (a *AppConfig) validate() error {
	if !validLogLevels[strings.ToLower(a.LogLevel)] {
		return fmt.Errorf("app.log_level must be one of debug/info/warn/error, got %q", a.LogLevel)
	}
	return nil
}

func (f *FeedConfig) validate() error {
	if strings.TrimSpace(f.BaseURL) == "" {
		return fmt.Errorf("feed.base_url cannot be empty")
	}
	return nil
}

func (c *CacheConfig) validate() error {
	switch c.Backend {
	case "memory":
		return nil
	case "redis":
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return fmt.Errorf("cache.redis.addr required for the redis backend")
		}
		return nil
	default:
		return fmt.Errorf("cache.backend must be memory or redis, got %q", c.Backend)
	}
}

func (o *OracleConfig) validate() error {
	if !o.Enabled {
		return nil
	}
	if strings.TrimSpace(o.Model) == "" {
		return fmt.Errorf("oracle.model required when the oracle is enabled")
	}
	return nil
}
