package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"mandimind/internal/config"
	"mandimind/internal/logger"
	"mandimind/internal/monitor"
	"mandimind/internal/negotiation"
	mandihttp "mandimind/internal/transport/http"
)

// App owns application wiring: config in, running services out.
type App struct {
	cfg          *config.Config
	server       *mandihttp.Server
	monitor      *monitor.Monitor
	negotiations *negotiation.Store
}

// NewApp builds the application without starting anything.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return build(cfg)
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)

	if a.cfg.Monitor.Enabled {
		commodities, err := a.activeCommodities(ctx)
		if err != nil {
			logger.Warnf("loading active negotiations for monitoring failed: %v", err)
		}
		for _, commodity := range commodities {
			cancel := a.monitor.Watch(ctx, commodity)
			defer cancel()
		}
		if len(commodities) > 0 {
			logger.Infof("monitoring conditions for %d commodities", len(commodities))
		}
	}

	group.Go(func() error {
		logger.Infof("http server listening on %s", a.server.Addr())
		if err := a.server.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	return group.Wait()
}

// activeCommodities collects the distinct commodities with open negotiations.
func (a *App) activeCommodities(ctx context.Context) ([]string, error) {
	active, err := a.negotiations.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(active))
	var out []string
	for _, n := range active {
		c := n.Proposal.Commodity
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out, nil
}
