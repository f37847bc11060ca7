// Package main implements a Battlesnake API server for squad games.
//
// Both teammates of a squad are driven by the same process: the first /move
// request of a turn searches the joint move for the pair, the second is
// answered from memory.
package main

import (
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/brensch/squadsnek/config"
	"github.com/brensch/squadsnek/executor/minimax"
	"github.com/brensch/squadsnek/logging"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("load .env", "err", err)
		os.Exit(1)
	}
	cfg, err := parseConfig(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		slog.Error("parse flags", "err", err)
		os.Exit(2)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		slog.Error("parse log level", "err", err)
		os.Exit(2)
	}
	logger, err := logging.New(os.Stderr, level, cfg.LogFormat)
	if err != nil {
		slog.Error("build logger", "err", err)
		os.Exit(2)
	}
	slog.SetDefault(logger)

	engineCfg := minimax.DefaultConfig
	engineCfg.MaxDepth = cfg.MaxDepth
	server := NewServer(cfg, minimax.NewEngine(engineCfg, logger.With("component", "minimax")), logger)

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("battlesnake server listening",
		"addr", cfg.Listen,
		"latency_reserve", cfg.LatencyReserve,
		"max_depth", cfg.MaxDepth,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
