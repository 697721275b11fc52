// Package server exposes game sessions over HTTP and WebSocket. Each browser
// gets its own session, selected by a cookie.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	ginGzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/they4kman/gosweep/game"
)

const (
	SessionCookieName = "session_id"

	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
	RouteWS      = "/ws"
)

type Options struct {
	// Shared by every session
	Store game.BestTimeStore

	SessionTimeout time.Duration
	CookieMaxAge   time.Duration
	RateLimitRPS   int
	RateLimitBurst int

	// Where finished boards are saved, if anywhere
	SnapshotsDir string

	// Marks cookies secure and quiets gin
	Production bool

	Logger logrus.FieldLogger

	// Clock for new sessions; a one-second ticker when nil
	Clock game.Clock
}

type App struct {
	options Options
	log     logrus.FieldLogger
	metrics *metrics

	sessions     map[string]*sessionEntry
	sessionMutex sync.RWMutex

	limiters     map[string]*rate.Limiter
	limiterMutex sync.Mutex

	startTime time.Time
}

func New(options Options) *App {
	if options.Logger == nil {
		options.Logger = logrus.StandardLogger()
	}
	if options.SessionTimeout <= 0 {
		options.SessionTimeout = 2 * time.Hour
	}
	if options.CookieMaxAge <= 0 {
		options.CookieMaxAge = options.SessionTimeout
	}
	if options.RateLimitBurst <= 0 {
		options.RateLimitBurst = 1
	}

	app := &App{
		options:   options,
		log:       options.Logger,
		sessions:  make(map[string]*sessionEntry),
		limiters:  make(map[string]*rate.Limiter),
		startTime: time.Now(),
	}
	app.metrics = newMetrics(app.sessionCount)
	return app
}

// Router builds the gin engine serving the API
func (app *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestIDMiddleware(), app.loggingMiddleware(), app.metrics.middleware())
	router.Use(ginGzip.Gzip(ginGzip.DefaultCompression,
		ginGzip.WithExcludedPaths([]string{RouteWS})))

	if err := router.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		app.log.WithError(err).Warn("failed to set trusted proxies")
	}

	router.GET(RouteHealth, app.healthHandler)
	router.GET(RouteMetrics, gin.WrapH(app.metrics.handler()))
	router.GET(RouteWS, app.wsHandler)

	api := router.Group("/api", noStore())
	api.GET("/presets", app.presetsHandler)
	api.GET("/game", app.gameHandler)

	commands := api.Group("/game", app.rateLimitMiddleware())
	commands.POST("/reveal", app.revealHandler)
	commands.POST("/flag", app.flagHandler)
	commands.POST("/reset", app.resetHandler)
	commands.POST("/configure", app.configureHandler)

	return router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (app *App) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go app.janitor(janitorCtx)

	idleConnsClosed := make(chan struct{})
	go func() {
		defer close(idleConnsClosed)
		<-ctx.Done()

		app.log.Info("Shutdown signal received, shutting down server gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.log.WithError(err).Warn("HTTP server shutdown")
		}
	}()

	app.log.WithField("addr", addr).Info("Server starting")
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-idleConnsClosed

	app.Close()
	app.log.Info("Server shutdown complete")
	return nil
}

// Close stops the clocks of every session
func (app *App) Close() {
	app.sessionMutex.Lock()
	defer app.sessionMutex.Unlock()

	for id, entry := range app.sessions {
		entry.session.Close()
		delete(app.sessions, id)
	}
}
