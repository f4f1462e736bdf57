// Package server собирает HTTP сервер: маршрутизация, middleware цепочка
// и жизненный цикл с graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/kotobako/internal/server/handlers"
	"github.com/iudanet/kotobako/internal/server/middleware"
	"github.com/iudanet/kotobako/internal/server/storage"
)

// Config содержит настройки HTTP сервера
type Config struct {
	Addr            string        // адрес для прослушивания, например ":8080"
	Version         string        // версия приложения для health check
	JWTSecret       []byte        // секрет для подписи access tokens
	AccessTokenTTL  time.Duration // время жизни access token
	RefreshTokenTTL time.Duration // время жизни refresh token
	RateLimit       int           // запросов с одного IP за RateLimitWindow
	RateLimitWindow time.Duration
}

// Storage объединяет все хранилища, которые нужны серверу
type Storage interface {
	storage.UserStorage
	storage.TokenStorage
	storage.BlobStorage
}

// Server представляет HTTP сервер приложения
type Server struct {
	logger  *slog.Logger
	config  Config
	storage Storage
	httpSrv *http.Server
}

// New создает сервер с настроенным роутером и middleware
func New(logger *slog.Logger, config Config, store Storage, pinger handlers.Pinger) *Server {
	s := &Server{
		logger:  logger,
		config:  config,
		storage: store,
	}

	s.httpSrv = &http.Server{
		Addr:              config.Addr,
		Handler:           s.buildHandler(pinger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s
}

// Handler возвращает корневой http.Handler - удобно для httptest
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

func (s *Server) buildHandler(pinger handlers.Pinger) http.Handler {
	jwtConfig := handlers.JWTConfig{
		Secret:          s.config.JWTSecret,
		AccessTokenTTL:  s.config.AccessTokenTTL,
		RefreshTokenTTL: s.config.RefreshTokenTTL,
	}

	authHandler := handlers.NewAuthHandler(s.logger, s.storage, s.storage, jwtConfig)
	filesHandler := handlers.NewFilesHandler(s.logger, s.storage)
	healthHandler := handlers.NewHealthHandler(s.logger, s.config.Version, pinger)

	requireAuth := middleware.Auth(s.logger, jwtConfig)

	mux := http.NewServeMux()

	// Публичные эндпоинты
	mux.HandleFunc("GET /api/v1/health", healthHandler.Health)
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("GET /api/v1/auth/salt/{username}", authHandler.GetSalt)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/v1/auth/refresh", authHandler.Refresh)

	// Эндпоинты, требующие access token
	mux.Handle("POST /api/v1/auth/logout", requireAuth(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /api/v1/files", requireAuth(http.HandlerFunc(filesHandler.List)))
	mux.Handle("POST /api/v1/files", requireAuth(http.HandlerFunc(filesHandler.Create)))
	mux.Handle("GET /api/v1/files/lookup", requireAuth(http.HandlerFunc(filesHandler.Lookup)))
	mux.Handle("GET /api/v1/files/{id}", requireAuth(http.HandlerFunc(filesHandler.Get)))
	mux.Handle("PUT /api/v1/files/{id}", requireAuth(http.HandlerFunc(filesHandler.Update)))

	// Внешняя цепочка: recovery -> logging -> rate limit -> router
	var handler http.Handler = mux
	if s.config.RateLimit > 0 {
		handler = middleware.RateLimit(s.config.RateLimit, s.config.RateLimitWindow, s.logger)(handler)
	}
	handler = middleware.Logging(s.logger, "/api/v1/health")(handler)
	handler = middleware.Recovery(s.logger)(handler)

	return handler
}

// Run запускает сервер и блокируется до отмены контекста,
// затем выполняет graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	errC := make(chan error, 1)

	go func() {
		s.logger.Info("server listening", slog.String("addr", s.config.Addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errC <- err
		}
	}()

	// Фоновая чистка просроченных refresh tokens
	go s.cleanupExpiredTokens(ctx)

	select {
	case err := <-errC:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	return nil
}

func (s *Server) cleanupExpiredTokens(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deleted, err := s.storage.DeleteExpiredTokens(ctx)
			if err != nil {
				s.logger.Warn("failed to delete expired tokens", slog.Any("error", err))
				continue
			}
			if deleted > 0 {
				s.logger.Info("expired refresh tokens removed", slog.Int("count", deleted))
			}
		case <-ctx.Done():
			return
		}
	}
}
