package config

import "strings"

// Config is the top-level runtime configuration.
type Config struct {
	App      AppConfig      `toml:"app"`
	Feed     FeedConfig     `toml:"feed"`
	Cache    CacheConfig    `toml:"cache"`
	Store    StoreConfig    `toml:"store"`
	Oracle   OracleConfig   `toml:"oracle"`
	Advisory AdvisoryConfig `toml:"advisory"`
	Monitor  MonitorConfig  `toml:"monitor"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

// FeedConfig points at the public mandi price feed.
type FeedConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Retries        int    `toml:"retries"`
	Location       string `toml:"location"`
}

// CacheConfig selects the TTL cache backend. "memory" needs nothing else;
// "redis" needs an address.
type CacheConfig struct {
	Backend string      `toml:"backend"`
	Redis   RedisConfig `toml:"redis"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// StoreConfig locates the negotiation database.
type StoreConfig struct {
	Path string `toml:"path"`
}

// OracleConfig wires the hosted advisory model. Disabled means the engine
// runs purely on the deterministic algorithm.
type OracleConfig struct {
	Enabled                bool    `toml:"enabled"`
	APIURL                 string  `toml:"api_url"`
	APIKey                 string  `toml:"api_key"`
	Model                  string  `toml:"model"`
	TimeoutSeconds         int     `toml:"timeout_seconds"`
	MaxRetries             int     `toml:"max_retries"`
	Temperature            float64 `toml:"temperature"`
	BreakerThreshold       int     `toml:"breaker_threshold"`
	BreakerCooldownSeconds int     `toml:"breaker_cooldown_seconds"`
}

type AdvisoryConfig struct {
	ProfilesPath string `toml:"profiles_path"`
	Seed         int64  `toml:"seed"`
}

type MonitorConfig struct {
	Enabled         bool `toml:"enabled"`
	IntervalMinutes int  `toml:"interval_minutes"`
}

// keySet tracks which field paths were explicitly set in the file, so
// explicit zero values are not overwritten by defaults.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	_, ok := k[strings.ToLower(strings.TrimSpace(path))]
	return ok
}

// fieldDefault is one default-value rule.
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
