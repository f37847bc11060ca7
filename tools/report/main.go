// Command report summarizes the arena and replay Parquet archives with
// DuckDB: results by winning squad, search effort by policy and how often
// the engine agrees with moves played in public games.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/brensch/squadsnek/config"
	"github.com/brensch/squadsnek/logging"
)

type options struct {
	arenaDir  string
	replayDir string
	dump      string
	jsonOut   bool
	timeout   time.Duration
	logLevel  string
}

func parseOptions(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.arenaDir, "arena-dir", config.String("ARENA_DIR", "data/arena"), "Directory of arena parquet batches")
	fs.StringVar(&o.replayDir, "replay-dir", config.String("REPLAY_DIR", "data/replay"), "Directory of replay parquet batches")
	fs.StringVar(&o.dump, "dump", "", "Print every row of one archive file as JSON lines instead of the report")
	fs.BoolVar(&o.jsonOut, "json", config.Bool("REPORT_JSON", false), "Write the report as JSON")
	fs.DurationVar(&o.timeout, "timeout", config.Duration("REPORT_TIMEOUT", time.Minute), "Query timeout")
	fs.StringVar(&o.logLevel, "log-level", config.String("LOG_LEVEL", "info"), "debug, info, warn or error")
	err := fs.Parse(args)
	return o, err
}

func run(ctx context.Context, opts options, out io.Writer) error {
	if opts.dump != "" {
		return dumpFile(opts.dump, out)
	}
	db, views, err := openDuckDB(opts.arenaDir, opts.replayDir)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	r, err := buildReport(ctx, db, views)
	if err != nil {
		return err
	}
	if opts.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	return r.WriteText(out)
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("load .env", "err", err)
		os.Exit(1)
	}
	opts, err := parseOptions(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		slog.Error("parse flags", "err", err)
		os.Exit(2)
	}
	level, err := logging.ParseLevel(opts.logLevel)
	if err != nil {
		slog.Error("parse log level", "err", err)
		os.Exit(2)
	}
	logger, _ := logging.New(os.Stderr, level, logging.FormatText)

	if err := run(context.Background(), opts, os.Stdout); err != nil {
		logger.Error("report failed", "err", err)
		os.Exit(1)
	}
}
