package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/xaitan80/staticserve/internal/config"
	"github.com/xaitan80/staticserve/internal/logging"
	"github.com/xaitan80/staticserve/internal/server"
)

func main() {
	configPath := flag.String("config", "", "Path to a .toml or .yaml config file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	logger, err := logging.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	srv, err := server.Listen(cfg, logger)
	if err != nil {
		logger.Fatalf("Error starting server: %v", err)
	}
	defer srv.Close()

	color.New(color.FgGreen, color.Bold).Fprintf(os.Stderr, "Serving %s at %s\n", cfg.Root, srv.Addr())
	if cfg.Strict {
		color.New(color.FgYellow).Fprintln(os.Stderr, "Strict mode: any bad connection stops the server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Serve(ctx); err != nil {
		logger.WithError(err).Fatal("Server stopped")
	}
	logger.Info("Server gracefully stopped")
}
