// Package httpserver exposes process liveness/readiness for container
// orchestration. It serves no stored rows and is not the read-only REST
// surface described in the spec as an external, out-of-core collaborator
// — it only answers "is this process alive and has it done useful work".
package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

// Server serves /healthz and /readyz.
type Server struct {
	srv      *http.Server
	ready    atomic.Bool
	isLeader atomic.Bool
}

// NewServer builds a Server listening on port. Call Start to begin
// serving and Shutdown to stop cleanly.
func NewServer(port int) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	s := &Server{}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "alive"})
	})

	router.GET("/readyz", func(c *gin.Context) {
		if !s.ready.Load() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "leader": s.isLeader.Load()})
	})

	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}
	return s
}

// Start begins serving in the background. Errors other than a clean
// shutdown are sent to errc.
func (s *Server) Start(errc chan<- error) {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- fmt.Errorf("httpserver: listen: %w", err)
		}
	}()
}

// SetReady sets whether /readyz answers 200 (ready) or 503 (not ready).
// The poll loop sets it once it holds leadership (or runs standalone) and
// has loaded the last-run fingerprint, before its first tick.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// SetLeader records whether this instance currently holds the poll loop's
// leader election.
func (s *Server) SetLeader(leader bool) {
	s.isLeader.Store(leader)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}
