package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/iudanet/kotobako/internal/client/api"
	"github.com/iudanet/kotobako/internal/client/auth"
	"github.com/iudanet/kotobako/internal/client/blobstore"
	"github.com/iudanet/kotobako/internal/client/cli"
	"github.com/iudanet/kotobako/internal/client/iocli"
	"github.com/iudanet/kotobako/internal/client/storage/boltdb"
	"github.com/iudanet/kotobako/internal/client/sync"
	"github.com/iudanet/kotobako/internal/client/vocab"
	"github.com/iudanet/kotobako/internal/clock"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "http://localhost:8080", "Server URL")
	dbPath := flag.String("db", "kotobako.db", "Path to local database")
	password := flag.String("password", "", "Master password (prefer env var or file)")
	passwordFile := flag.String("password-file", "", "Path to file containing master password")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	boltStorage, err := boltdb.New(ctx, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := boltStorage.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	store := vocab.New(boltStorage, clock.New(), logger)
	authService := auth.NewService(api.NewClient(*serverURL), auth.NewStore(boltStorage), logger)
	syncService := sync.NewService(blobstore.NewClient(*serverURL), store, logger)

	app := cli.New(iocli.NewStdio(), authService, store, syncService)
	passwords := cli.Passwords{
		FromFile: *passwordFile,
		FromArgs: *password,
	}

	if err := run(ctx, app, command, cmdArgs, passwords); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, app *cli.Cli, command string, args []string, passwords cli.Passwords) error {
	switch command {
	case "register":
		return app.Register(ctx)
	case "login":
		return app.Login(ctx, passwords)
	case "logout":
		return app.Logout(ctx)
	case "status":
		return app.Status(ctx)
	case "add":
		return app.Add(ctx, args)
	case "list":
		return app.List(ctx, args)
	case "get":
		return app.Get(ctx, args)
	case "search":
		return app.Search(ctx, args)
	case "delete":
		return app.Delete(ctx, args)
	case "review":
		return app.Review(ctx, args)
	case "export":
		return app.Export(ctx, args)
	case "import":
		return app.Import(ctx, args)
	case "rebuild-index":
		return app.RebuildIndex(ctx)
	case "pending":
		return app.Pending(ctx)
	case "sync":
		return app.Sync(ctx, passwords)
	default:
		cli.PrintUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printVersion() {
	fmt.Printf("kotobako client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
