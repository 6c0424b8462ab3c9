package main

import (
	"context"
	"flag"
	"os"

	"github.com/iliyamo/smart-waste/internal/app"
	"github.com/iliyamo/smart-waste/internal/config"
)

func main() {
	cfg := config.Load()
	dbPath := flag.String("db", cfg.DBPath, "SQLite database file")
	flag.Parse()
	cfg.DBPath = *dbPath

	log := config.NewLogger(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = a.Close() }()

	zones, err := a.Zones.ListZones(ctx, false)
	if err != nil {
		log.Error("read zones", "err", err)
		return
	}
	board, err := a.Stats.Leaderboard(ctx, 5)
	if err != nil {
		log.Error("read leaderboard", "err", err)
		return
	}
	log.Info("smart waste core ready",
		"env", cfg.Env,
		"db", cfg.DBPath,
		"zones", len(zones),
		"leaders", len(board),
		"cache", cfg.Cache.Enabled,
		"events", cfg.RabbitMQURL != "")
}
