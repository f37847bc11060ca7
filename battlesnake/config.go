package main

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/brensch/squadsnek/config"
	"github.com/brensch/squadsnek/executor/minimax"
)

type Config struct {
	Listen         string
	LatencyReserve time.Duration
	MinBudget      time.Duration
	DefaultTimeout time.Duration
	MaxDepth       int
	LogLevel       string
	LogFormat      string
	Author         string
	Color          string
}

// parseConfig reads flags from args. Each flag defaults to an environment
// variable, which may come from a .env file.
func parseConfig(args []string, stderr io.Writer) (Config, error) {
	var c Config
	fs := flag.NewFlagSet("battlesnake", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&c.Listen, "listen", config.String("LISTEN", ":8080"), "HTTP listen address")
	fs.DurationVar(&c.LatencyReserve, "latency-reserve", config.Duration("LATENCY_RESERVE", 200*time.Millisecond), "Time kept back from the game timeout for the network")
	fs.DurationVar(&c.MinBudget, "min-budget", config.Duration("MIN_BUDGET", 50*time.Millisecond), "Smallest search budget per move")
	fs.DurationVar(&c.DefaultTimeout, "move-timeout", config.Duration("MOVE_TIMEOUT", 500*time.Millisecond), "Move timeout when the game does not send one")
	fs.IntVar(&c.MaxDepth, "max-depth", config.Int("MAX_DEPTH", minimax.DefaultConfig.MaxDepth), "Maximum search depth in plies")
	fs.StringVar(&c.LogLevel, "log-level", config.String("LOG_LEVEL", "info"), "debug, info, warn or error")
	fs.StringVar(&c.LogFormat, "log-format", config.String("LOG_FORMAT", "text"), "text, json or pretty")
	fs.StringVar(&c.Author, "author", config.String("BATTLESNAKE_AUTHOR", "squadsnek"), "Author shown on the info endpoint")
	fs.StringVar(&c.Color, "color", config.String("BATTLESNAKE_COLOR", "#3366ff"), "Snake colour")

	if err := fs.Parse(args); err != nil {
		return c, err
	}
	if c.MaxDepth <= 0 {
		return c, fmt.Errorf("max-depth must be positive, got %d", c.MaxDepth)
	}
	if c.MinBudget <= 0 {
		return c, fmt.Errorf("min-budget must be positive, got %s", c.MinBudget)
	}
	return c, nil
}

// budget is what one search may spend when the game allows timeoutMs.
func (c Config) budget(timeoutMs int) time.Duration {
	timeout := c.DefaultTimeout
	if timeoutMs > 0 {
		timeout = time.Duration(timeoutMs) * time.Millisecond
	}
	return max(timeout-c.LatencyReserve, c.MinBudget)
}
