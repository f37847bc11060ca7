// Command scraper discovers public games, downloads their frames, replays the
// squad engine over every position and archives the comparison to Parquet.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/brensch/squadsnek/config"
	"github.com/brensch/squadsnek/executor/minimax"
	"github.com/brensch/squadsnek/logging"
	"github.com/brensch/squadsnek/scraper/discovery"
	"github.com/brensch/squadsnek/scraper/downloader"
	"github.com/brensch/squadsnek/scraper/replay"
	"github.com/brensch/squadsnek/scraper/store"
)

type options struct {
	outDir       string
	logPath      string
	flushGames   int
	flushEvery   time.Duration
	maxPlayers   int
	requestDelay time.Duration
	leaderboards []string
	engineURL    string
	workers      int
	budget       time.Duration
	maxDepth     int
	logLevel     string
	logFormat    string
}

func parseOptions(args []string, stderr io.Writer) (options, error) {
	var o options
	var leaderboards string
	fs := flag.NewFlagSet("scraper", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.outDir, "out-dir", config.String("OUT_DIR", "data/replay"), "Directory to write batch .parquet files")
	fs.StringVar(&o.logPath, "log-path", config.String("WRITTEN_LOG", "scraper-data/written_games.log"), "Append-only log of game IDs already written")
	fs.IntVar(&o.flushGames, "flush-games", config.Int("FLUSH_GAMES", 200), "Flush when buffered games reaches this count")
	fs.DurationVar(&o.flushEvery, "flush-every", config.Duration("FLUSH_EVERY", time.Hour), "Flush at this interval regardless of buffered count")
	fs.IntVar(&o.maxPlayers, "max-players", config.Int("MAX_PLAYERS", 50), "Maximum number of players to check per leaderboard")
	fs.DurationVar(&o.requestDelay, "delay", config.Duration("DELAY", 500*time.Millisecond), "Delay between HTTP requests")
	fs.StringVar(&leaderboards, "leaderboards", config.String("LEADERBOARDS", strings.Join(discovery.DefaultConfig().LeaderboardURLs, ",")), "Comma separated leaderboard URLs")
	fs.StringVar(&o.engineURL, "engine-url", config.String("ENGINE_URL", downloader.DefaultConfig().EngineURL), "Websocket URL template for game events")
	fs.IntVar(&o.workers, "workers", config.Int("WORKERS", 2), "Concurrent downloads")
	fs.DurationVar(&o.budget, "budget", config.Duration("BUDGET", 100*time.Millisecond), "Search budget per squad position")
	fs.IntVar(&o.maxDepth, "max-depth", config.Int("MAX_DEPTH", minimax.DefaultConfig.MaxDepth), "Maximum search depth in plies")
	fs.StringVar(&o.logLevel, "log-level", config.String("LOG_LEVEL", "info"), "debug, info, warn or error")
	fs.StringVar(&o.logFormat, "log-format", config.String("LOG_FORMAT", "text"), "text, json or pretty")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	for _, u := range strings.Split(leaderboards, ",") {
		if u = strings.TrimSpace(u); u != "" {
			o.leaderboards = append(o.leaderboards, u)
		}
	}
	if len(o.leaderboards) == 0 {
		return o, fmt.Errorf("at least one leaderboard is required")
	}
	if o.flushGames <= 0 {
		o.flushGames = 200
	}
	if o.flushEvery <= 0 {
		o.flushEvery = time.Hour
	}
	if o.workers <= 0 {
		return o, fmt.Errorf("workers must be positive, got %d", o.workers)
	}
	return o, nil
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
	logger, err := logging.New(os.Stderr, level, opts.logFormat)
	if err != nil {
		slog.Error("build logger", "err", err)
		os.Exit(2)
	}
	slog.SetDefault(logger)

	written, err := store.OpenWrittenLog(opts.logPath)
	if err != nil {
		logger.Error("open written log", "path", opts.logPath, "err", err)
		os.Exit(1)
	}
	defer written.Close()

	logger.Info("starting scraper",
		"out_dir", opts.outDir,
		"written_log", opts.logPath,
		"already_written", written.Count(),
		"leaderboards", opts.leaderboards,
		"budget", opts.budget,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	disc := discovery.NewWorker(discovery.Config{
		LeaderboardURLs: opts.leaderboards,
		RequestDelay:    opts.requestDelay,
		MaxPlayers:      opts.maxPlayers,
		UserAgent:       discovery.DefaultConfig().UserAgent,
	}, written.Snapshot(), logger.With("component", "discovery"))

	dlConfig := downloader.DefaultConfig()
	dlConfig.EngineURL = opts.engineURL
	dlConfig.NumWorkers = opts.workers
	dl := downloader.NewWorker(dlConfig, logger.With("component", "downloader"))

	ids := make(chan string, 1000)
	go func() {
		defer close(ids)
		if err := disc.Discover(ctx, ids); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("discovery", "err", err)
		}
	}()

	games := make(chan *downloader.Game, opts.workers)
	go dl.Start(ctx, ids, games)

	engineCfg := minimax.DefaultConfig
	engineCfg.MaxDepth = opts.maxDepth
	replayer := &replay.Replayer{
		Engine: minimax.NewEngine(engineCfg, nil),
		Budget: opts.budget,
		Logger: logger.With("component", "replay"),
	}

	s := newSink(opts.outDir, opts.flushGames, written, logger)
	ticker := time.NewTicker(opts.flushEvery)
	defer ticker.Stop()
	s.run(ctx, games, replayer, ticker.C)

	st := dl.GetStats()
	logger.Info("scraping complete",
		"downloaded", st.GamesDownloaded,
		"failed", st.GamesFailed,
		"frames", st.FramesTotal,
		"batches", s.batches,
		"rows", s.rows,
	)
}

// sink replays downloaded games into parquet batches. A game id is appended
// to the written log only after the batch holding it is on disk.
type sink struct {
	outDir     string
	flushGames int
	written    *store.WrittenLog
	logger     *slog.Logger

	writer  *store.BatchWriter[store.ReplayRow]
	pending []string

	batches int
	rows    int
}

func newSink(outDir string, flushGames int, written *store.WrittenLog, logger *slog.Logger) *sink {
	return &sink{outDir: outDir, flushGames: flushGames, written: written, logger: logger}
}

// run consumes games until the channel closes, flushing on count and on
// every tick. Once ctx is done the remaining games are dropped unarchived.
func (s *sink) run(ctx context.Context, games <-chan *downloader.Game, r *replay.Replayer, tick <-chan time.Time) {
	for {
		select {
		case <-tick:
			s.flush("ticker")
		case g, ok := <-games:
			if !ok {
				s.flush("final")
				return
			}
			if ctx.Err() != nil {
				continue
			}
			if s.written.Has(g.ID) {
				continue
			}
			if err := s.add(g.ID, r.Game(ctx, g)); err != nil {
				s.logger.Error("write game", "game_id", g.ID, "err", err)
				continue
			}
			if len(s.pending) >= s.flushGames {
				s.flush("count")
			}
		}
	}
}

func (s *sink) add(gameID string, rows []store.ReplayRow) error {
	if s.writer == nil {
		w, err := store.NewBatchWriter[store.ReplayRow](s.outDir, "replay", store.ReplaySchema)
		if err != nil {
			return err
		}
		s.writer = w
	}
	if err := s.writer.WriteGame(rows); err != nil {
		return err
	}
	s.pending = append(s.pending, gameID)
	return nil
}

func (s *sink) flush(reason string) {
	if s.writer == nil {
		return
	}
	games, rows := s.writer.Games(), s.writer.Rows()
	path, err := s.writer.Finalize()
	s.writer = nil
	if err != nil {
		s.logger.Error("flush failed", "reason", reason, "games", games, "err", err)
		s.pending = s.pending[:0]
		return
	}
	// A game with no rows is still done; logging it stops a re-download.
	if err := s.written.AddMany(s.pending); err != nil {
		s.logger.Error("written log append failed", "reason", reason, "err", err)
	}
	s.pending = s.pending[:0]
	if path != "" {
		s.batches++
		s.rows += rows
	}
	s.logger.Info("flushed batch", "reason", reason, "games", games, "rows", rows, "path", path)
}
