package config

import "strings"

const (
	defaultAppEnv          = "dev"
	defaultAppLogLevel     = "info"
	defaultAppHTTPAddr     = ":8086"
	defaultAppLogPath      = "data/logs/mandimind.log"
	defaultFeedBaseURL     = "https://api.data.gov.in/resource/agmarknet"
	defaultFeedTimeout     = 10
	defaultFeedRetries     = 2
	defaultFeedLocation    = "Pune"
	defaultCacheBackend    = "memory"
	defaultRedisAddr       = "127.0.0.1:6379"
	defaultStorePath       = "data/db/negotiations.db"
	defaultOracleTimeout   = 60
	defaultOracleRetries   = 2
	defaultBreakerFailures = 3
	defaultBreakerCooldown = 60
	defaultProfilesPath    = "configs/advisory.yaml"
	defaultMonitorInterval = 30
)

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Feed.applyDefaults(keys)
	c.Cache.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Oracle.applyDefaults(keys)
	c.Advisory.applyDefaults(keys)
	c.Monitor.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
	)
}

func (f *FeedConfig) applyDefaults(keys keySet) {
	if f == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("feed.base_url", &f.BaseURL, defaultFeedBaseURL),
		stringFieldDefault("feed.location", &f.Location, defaultFeedLocation),
		fieldDefault{
			key:   "feed.timeout_seconds",
			need:  func() bool { return f.TimeoutSeconds <= 0 },
			apply: func() { f.TimeoutSeconds = defaultFeedTimeout },
		},
		fieldDefault{
			key:   "feed.retries",
			need:  func() bool { return f.Retries <= 0 },
			apply: func() { f.Retries = defaultFeedRetries },
		},
	)
}

func (c *CacheConfig) applyDefaults(keys keySet) {
	if c == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("cache.backend", &c.Backend, defaultCacheBackend),
		stringFieldDefault("cache.redis.addr", &c.Redis.Addr, defaultRedisAddr),
	)
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.path", &s.Path, defaultStorePath),
	)
}

func (o *OracleConfig) applyDefaults(keys keySet) {
	if o == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "oracle.timeout_seconds",
			need:  func() bool { return o.TimeoutSeconds <= 0 },
			apply: func() { o.TimeoutSeconds = defaultOracleTimeout },
		},
		fieldDefault{
			key:   "oracle.max_retries",
			need:  func() bool { return o.MaxRetries <= 0 },
			apply: func() { o.MaxRetries = defaultOracleRetries },
		},
		fieldDefault{
			key:   "oracle.breaker_threshold",
			need:  func() bool { return o.BreakerThreshold <= 0 },
			apply: func() { o.BreakerThreshold = defaultBreakerFailures },
		},
		fieldDefault{
			key:   "oracle.breaker_cooldown_seconds",
			need:  func() bool { return o.BreakerCooldownSeconds <= 0 },
			apply: func() { o.BreakerCooldownSeconds = defaultBreakerCooldown },
		},
	)
}

func (a *AdvisoryConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("advisory.profiles_path", &a.ProfilesPath, defaultProfilesPath),
	)
}

func (m *MonitorConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		boolFieldDefault("monitor.enabled", &m.Enabled, true),
		fieldDefault{
			key:   "monitor.interval_minutes",
			need:  func() bool { return m.IntervalMinutes <= 0 },
			apply: func() { m.IntervalMinutes = defaultMonitorInterval },
		},
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
