package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iudanet/kotobako/internal/server"
	"github.com/iudanet/kotobako/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	addr := flag.String("addr", ":8080", "Address to listen on")
	dbPath := flag.String("db", "kotobako-server.db", "Path to SQLite database")
	accessTTL := flag.Duration("access-ttl", 15*time.Minute, "Access token lifetime")
	refreshTTL := flag.Duration("refresh-ttl", 30*24*time.Hour, "Refresh token lifetime")
	rateLimit := flag.Int("rate-limit", 100, "Requests per IP per minute (0 disables)")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(logger, *addr, *dbPath, *accessTTL, *refreshTTL, *rateLimit); err != nil {
		logger.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger, addr, dbPath string, accessTTL, refreshTTL time.Duration, rateLimit int) error {
	jwtSecret := os.Getenv("KOTOBAKO_JWT_SECRET")
	if jwtSecret == "" {
		return fmt.Errorf("KOTOBAKO_JWT_SECRET environment variable is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close storage", slog.Any("error", err))
		}
	}()

	cfg := server.Config{
		Addr:            addr,
		Version:         Version,
		JWTSecret:       []byte(jwtSecret),
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: refreshTTL,
		RateLimit:       rateLimit,
		RateLimitWindow: time.Minute,
	}

	srv := server.New(logger, cfg, store, store.DB())

	return srv.Run(ctx)
}

func printVersion() {
	fmt.Printf("kotobako server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
