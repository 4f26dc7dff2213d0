package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aiqhub/aiq/engine/evaluator"
	"github.com/aiqhub/aiq/engine/loader"
	"github.com/aiqhub/aiq/engine/service"
	"github.com/aiqhub/aiq/engine/session"
	"github.com/aiqhub/aiq/pkg/config"
	"github.com/aiqhub/aiq/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// Language subdirectories under the data dir.
var langDirs = map[string]string{
	service.LangEN: "En",
	service.LangCN: "Cn",
}

// Server owns the HTTP surface and the service container behind it.
type Server struct {
	cfg    *config.Config
	log    logger.Logger
	svc    *service.Service
	store  session.Store
	router *gin.Engine
}

// New builds the service container: one engine loader per language, the
// evaluator, and the session store selected by configuration (Redis when a
// URL is set, in-memory otherwise).
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*Server, error) {
	loaders := make(map[string]*loader.Loader, len(langDirs))
	for lang, dir := range langDirs {
		loaders[lang] = loader.New(
			filepath.Join(cfg.Engine.DataDir, dir),
			time.Duration(cfg.Engine.CacheTTLSeconds)*time.Second,
		)
	}
	store, err := newStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	svc := service.New(loaders, evaluator.New(), store)
	s := &Server{cfg: cfg, log: log, svc: svc, store: store}
	s.buildRouter()
	return s, nil
}

func newStore(ctx context.Context, cfg *config.Config, log logger.Logger) (session.Store, error) {
	ttl := time.Duration(cfg.Session.TTLSeconds) * time.Second
	if url := cfg.Session.RedisURL; url != "" {
		store, err := session.NewRedisStore(logger.ContextWithLogger(ctx, log), url, ttl)
		if err != nil {
			return nil, fmt.Errorf("connecting session store: %w", err)
		}
		return store, nil
	}
	log.Info("using in-memory session store",
		"ttl_seconds", cfg.Session.TTLSeconds,
		"cleanup_interval", cfg.Session.CleanupInterval,
	)
	return session.NewMemoryStore(ttl, time.Duration(cfg.Session.CleanupInterval)*time.Second), nil
}

func (s *Server) buildRouter() {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(s.log))
	r.Use(CORSMiddleware())
	RegisterRoutes(r, s.svc)
	s.router = r
}

// Router exposes the configured handler; used by tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves until the context is canceled or SIGINT/SIGTERM arrives,
// then drains within the shutdown timeout and closes the session store.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	addr := net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port))
	srv := &http.Server{Addr: addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	select {
	case err := <-errCh:
		s.store.Close()
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}
	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if closeErr := s.store.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
