package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/taskline/taskline/internal/app"
	entrypoint "github.com/taskline/taskline/internal/platform/cmd"
)

func main() {
	var cfg app.Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		log.Fatalf("parse config: %v", err)
	}
	fs := flag.CommandLine
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The server port")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The server listen address (overrides -port)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the SQLite event journal")
	if err := entrypoint.ParseArgs(fs, os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}

	log.SetPrefix("[TASKLINE] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceTaskline, func(ctx context.Context) error {
		return app.Run(ctx, cfg)
	}); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
