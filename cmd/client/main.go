package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/iudanet/zendfast/internal/client/api"
	"github.com/iudanet/zendfast/internal/client/cli"
	"github.com/iudanet/zendfast/internal/client/iocli"
	"github.com/iudanet/zendfast/internal/client/storage/boltdb"
	"github.com/iudanet/zendfast/internal/client/sync"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "http://localhost:8080", "Server URL")
	dbPath := flag.String("db", "zendfast-client.db", "Path to local database")
	token := flag.String("token", "", "Access token (default: $"+cli.EnvAccessToken+")")
	verbose := flag.Bool("verbose", false, "Log synchronization details")

	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	stdio := iocli.NewStdio()

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage(stdio)
		os.Exit(1)
	}

	ctx := context.Background()

	// Открываем BoltDB storage
	boltStorage, err := boltdb.New(ctx, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	apiClient := api.NewClient(*serverURL)
	syncService := sync.NewService(apiClient, boltStorage, logger)

	opts := cli.Options{
		AccessToken: firstNonEmpty(*token, os.Getenv(cli.EnvAccessToken)),
		ServiceKey:  os.Getenv(cli.EnvServiceKey),
		JWTSecret:   os.Getenv(cli.EnvJWTSecret),
	}

	runErr := cli.New(stdio, apiClient, syncService, boltStorage, opts).Run(ctx, args)

	if err := boltStorage.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func printVersion() {
	fmt.Printf("Zendfast Sync Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
