// Package api exposes a read-only view of the running engine: active
// arbitrage opportunities, aggregate status, and Prometheus metrics. The
// engine has no order routing or execution (non-goal), so this surface is
// entirely observational.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/archon-quant/synthalpha/internal/config"
	"github.com/archon-quant/synthalpha/internal/engine"
)

var startTime = time.Now()

// Server is the read-only HTTP surface over one engine.Pipeline.
type Server struct {
	router   *gin.Engine
	pipeline *engine.Pipeline
	addr     string
	server   *http.Server
}

// NewServer builds a Server listening on addr, serving pipeline's state.
func NewServer(addr string, pipeline *engine.Pipeline) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}))

	s := &Server{router: router, pipeline: pipeline, addr: addr}
	s.setupRoutes()
	return s
}

// Start runs the HTTP server until it is stopped or fails. Call from a
// goroutine; use Stop for graceful shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log := config.NewLogger("api")
	log.Info().Str("addr", s.addr).Msg("starting API server")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: listen: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down within ctx's deadline.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func loggerMiddleware() gin.HandlerFunc {
	log := config.NewLogger("api")
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
