package app

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"sync"
	"time"

	"mandimind/internal/advisor"
	"mandimind/internal/advisor/oracle"
	"mandimind/internal/analytics"
	"mandimind/internal/cache"
	"mandimind/internal/config"
	"mandimind/internal/logger"
	"mandimind/internal/market"
	"mandimind/internal/monitor"
	"mandimind/internal/negotiation"
	mandihttp "mandimind/internal/transport/http"
)

func build(cfg *config.Config) (*App, error) {
	store, err := buildCacheStore(cfg.Cache)
	if err != nil {
		return nil, err
	}
	online := onlineProbe(cfg.Feed.BaseURL)

	feed := market.NewAgmarkFeed(cfg.Feed.BaseURL, cfg.Feed.APIKey,
		time.Duration(cfg.Feed.TimeoutSeconds)*time.Second, cfg.Feed.Retries)
	comparisons := analytics.NewBuilder(feed, store, online)
	comparisons.SetLocation(cfg.Feed.Location)

	negotiations, err := negotiation.NewStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening negotiation store failed: %w", err)
	}

	registry, err := buildRegistry(cfg.Advisory.ProfilesPath)
	if err != nil {
		return nil, fmt.Errorf("loading advisory profiles failed: %w", err)
	}

	mon := monitor.New(monitor.Params{
		Comparisons: comparisons,
		Interval:    time.Duration(cfg.Monitor.IntervalMinutes) * time.Minute,
	})

	engine, err := advisor.NewEngine(advisor.EngineParams{
		Comparisons: comparisons,
		Cache:       store,
		Online:      online,
		Oracle:      buildOracle(cfg.Oracle),
		Registry:    registry,
		Conditions:  mon,
		Seed:        cfg.Advisory.Seed,
	})
	if err != nil {
		return nil, err
	}

	server, err := mandihttp.NewServer(mandihttp.ServerConfig{
		Addr:         cfg.App.HTTPAddr,
		Comparisons:  comparisons,
		Feed:         feed,
		Negotiations: negotiations,
		Engine:       engine,
		Location:     cfg.Feed.Location,
	})
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:          cfg,
		server:       server,
		monitor:      mon,
		negotiations: negotiations,
	}, nil
}

func buildCacheStore(cfg config.CacheConfig) (cache.Store, error) {
	switch cfg.Backend {
	case "redis":
		store, err := cache.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis failed: %w", err)
		}
		logger.Infof("cache backend: redis (%s)", cfg.Redis.Addr)
		return store, nil
	default:
		logger.Infof("cache backend: memory")
		return cache.NewMemory(), nil
	}
}

// buildRegistry falls back to compiled-in defaults when the profiles file
// is absent.
func buildRegistry(path string) (*advisor.Registry, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			logger.Warnf("advisory profiles file %s not found, using defaults", path)
			path = ""
		}
	}
	return advisor.NewRegistry(path)
}

func buildOracle(cfg config.OracleConfig) advisor.Oracle {
	if !cfg.Enabled {
		return nil
	}
	client := oracle.NewClient(oracle.Config{
		BaseURL:     cfg.APIURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		MaxRetries:  cfg.MaxRetries,
		Temperature: cfg.Temperature,
	})
	logger.Infof("advisory oracle enabled: %s", cfg.Model)
	return oracle.NewBreaker(client, cfg.BreakerThreshold,
		time.Duration(cfg.BreakerCooldownSeconds)*time.Second)
}

const (
	probeTimeout  = 2 * time.Second
	probeInterval = 10 * time.Second
)

// onlineProbe reports whether the feed host is reachable, re-checking at
// most every probeInterval so hot paths never pay a dial per call.
func onlineProbe(baseURL string) cache.OnlineFunc {
	host := probeAddr(baseURL)
	if host == "" {
		return nil
	}
	var mu sync.Mutex
	var last time.Time
	var up = true
	return func() bool {
		mu.Lock()
		defer mu.Unlock()
		if time.Since(last) < probeInterval {
			return up
		}
		conn, err := net.DialTimeout("tcp", host, probeTimeout)
		if err == nil {
			conn.Close()
		}
		wasUp := up
		up = err == nil
		last = time.Now()
		if wasUp != up {
			logger.Warnf("connectivity changed: online=%v", up)
		}
		return up
	}
}

func probeAddr(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return ""
	}
	host := u.Host
	if u.Port() == "" {
		port := "443"
		if u.Scheme == "http" {
			port = "80"
		}
		host = net.JoinHostPort(u.Hostname(), port)
	}
	return host
}
