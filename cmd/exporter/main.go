package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/kardemumma/internal/app"
	"github.com/shrimpsizemoose/kardemumma/internal/export"
)

func main() {
	var configPath = flag.String("config", "config.toml", "Path to config file")
	var from = flag.String("from", "", "One-shot export start day (YYYY-MM-DD)")
	var to = flag.String("to", "", "One-shot export end day (YYYY-MM-DD)")
	flag.Parse()

	config, err := app.LoadConfig(*configPath)
	if err != nil {
		logger.Error.Fatalf("Failed to load config: %v", err)
	}

	store, err := app.NewStore(config.Database.DSN, config.Database.MigrationsDir)
	if err != nil {
		logger.Error.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	exporter := export.NewCSVExporter(config, store)

	if *from != "" && *to != "" {
		if err := exporter.Export(*from, *to); err != nil {
			logger.Error.Fatalf("Export failed: %v", err)
		}
		return
	}

	if err := exporter.Start(); err != nil {
		logger.Error.Fatalf("Failed to schedule CSV exporter: %v", err)
	}

	logger.Info.Println("Exporter scheduled, waiting for signals")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	exporter.Stop()
	logger.Info.Println("Exporter stopped")
}
