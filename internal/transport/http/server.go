package mandihttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mandimind/internal/advisor"
	"mandimind/internal/logger"
	"mandimind/internal/market"
	"mandimind/internal/negotiation"
)

// SuggestionEngine is the advisory surface the API exposes.
type SuggestionEngine interface {
	GetSuggestion(ctx context.Context, n negotiation.Negotiation, currentOffer float64, role negotiation.Role) (advisor.Suggestion, error)
	GetDynamicSuggestion(ctx context.Context, n negotiation.Negotiation, currentOffer float64, role negotiation.Role, history []negotiation.Message) (advisor.Suggestion, error)
}

type ServerConfig struct {
	Addr         string
	Comparisons  advisor.ComparisonSource
	Feed         market.Feed
	Negotiations negotiation.Reader
	Engine       SuggestionEngine
	Location     string
}

// Server exposes the market and advisory API over HTTP.
type Server struct {
	addr   string
	router *gin.Engine
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Comparisons == nil || cfg.Feed == nil {
		return nil, errors.New("http server requires comparisons and feed")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8086"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := &handlers{
		comparisons:  cfg.Comparisons,
		feed:         cfg.Feed,
		negotiations: cfg.Negotiations,
		engine:       cfg.Engine,
		location:     cfg.Location,
	}
	api := router.Group("/api")
	api.GET("/market/comparison", h.marketComparison)
	api.GET("/market/anomalies", h.marketAnomalies)
	api.POST("/negotiations/:id/suggestion", h.negotiationSuggestion)
	router.GET("/chart/:commodity", h.commodityChart)

	return &Server{addr: cfg.Addr, router: router}, nil
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		client := c.ClientIP()
		c.Next()
		dur := time.Since(start)
		status := c.Writer.Status()
		fullPath := path
		if query != "" {
			fullPath = path + "?" + query
		}
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, fullPath, status, client, dur)
	}
}
