// Package server exposes the services as a JSON HTTP API for the kid and
// parent views.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-kratos/kratos/v2/log"

	"linvo/internal/auth"
	"linvo/internal/services"
)

// Deps are the collaborators behind the routes.
type Deps struct {
	Session  *services.Session
	Kids     *services.KidService
	Settings *services.SettingsService
	Imports  *services.ImportService
	Playback *services.PlaybackService
	Gate     *auth.Gate
}

// Server routes HTTP requests to the services.
type Server struct {
	deps   Deps
	engine *gin.Engine
	log    *log.Helper
}

// New builds the router. Call gin.SetMode before New to change gin's mode.
func New(deps Deps, logger log.Logger) *Server {
	s := &Server{
		deps:   deps,
		engine: gin.New(),
		log:    log.NewHelper(log.With(logger, "module", "server")),
	}
	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.engine.Group("/api")

	kids := api.Group("/kids")
	{
		kids.GET("", s.listKids)
		kids.GET("/current", s.currentKid)
		kids.PUT("/current", s.selectKid)
		kids.GET("/:kidId/channels", s.kidChannels)
		kids.GET("/:kidId/videos", s.kidVideos)
		kids.GET("/:kidId/recent", s.kidRecent)
		kids.POST("/:kidId/playback", s.recordPlayback)
	}

	api.POST("/admin/unlock", s.unlock)

	admin := api.Group("/admin")
	admin.Use(s.requireAdmin())
	{
		admin.POST("/kids", s.addKid)
		admin.POST("/channels", s.importChannel)
		admin.POST("/channels/:id/refresh", s.refreshChannel)
		admin.GET("/settings", s.getSettings)
		admin.PATCH("/settings", s.updateSettings)
		admin.GET("/summary", s.summary)
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("msg", "listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Infow("msg", "server stopped")
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debugw("msg", "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start))
	}
}
