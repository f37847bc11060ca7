// Command executor runs arena games between the minimax engine and a baseline
// policy on worker goroutines, archives every turn to Parquet and shows
// progress in a terminal UI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/squadsnek/config"
	"github.com/brensch/squadsnek/executor/minimax"
	"github.com/brensch/squadsnek/executor/selfplay"
	"github.com/brensch/squadsnek/logging"
	"github.com/brensch/squadsnek/scraper/store"
)

var totalTurns atomic.Int64
var totalGames atomic.Int64

type GameUpdate struct {
	WorkerID int
	Result   selfplay.GameResult
	Rows     int
}

type model struct {
	gamesPlayed int
	wins        map[string]int
	rows        int
	turns       int64
	startTime   time.Time
	recentGames []string
	updates     <-chan GameUpdate
}

func initialModel(updates <-chan GameUpdate) model {
	return model{
		startTime: time.Now(),
		wins:      map[string]int{},
		updates:   updates,
	}
}

type TickMsg time.Time

// doneMsg means the workers have stopped and the update channel is closed.
type doneMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), tickCmd())
}

func waitForUpdate(updates <-chan GameUpdate) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-updates
		if !ok {
			return doneMsg{}
		}
		return u
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case TickMsg:
		m.turns = totalTurns.Load()
		return m, tickCmd()
	case doneMsg:
		return m, tea.Quit
	case GameUpdate:
		m.gamesPlayed++
		m.rows += msg.Rows
		winner := msg.Result.Winner
		if winner == "" {
			winner = "draw"
		}
		m.wins[winner]++
		line := fmt.Sprintf("worker %d: %s in %d turns (%s)", msg.WorkerID, winner, msg.Result.Turns, msg.Result.GameID)
		m.recentGames = append([]string{line}, m.recentGames...)
		if len(m.recentGames) > 10 {
			m.recentGames = m.recentGames[:10]
		}
		return m, waitForUpdate(m.updates)
	}
	return m, nil
}

func (m model) View() string {
	duration := time.Since(m.startTime)
	gamesPerSec, turnsPerSec := 0.0, 0.0
	if duration >= time.Second {
		gamesPerSec = float64(m.gamesPlayed) / duration.Seconds()
		turnsPerSec = float64(m.turns) / duration.Seconds()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Games Played:  %d\n", m.gamesPlayed)
	fmt.Fprintf(&sb, "Blue Wins:     %d\n", m.wins["blue"])
	fmt.Fprintf(&sb, "Red Wins:      %d\n", m.wins["red"])
	fmt.Fprintf(&sb, "Draws:         %d\n", m.wins["draw"])
	fmt.Fprintf(&sb, "Rows Archived: %d\n", m.rows)
	fmt.Fprintf(&sb, "Total Turns:   %d\n", m.turns)
	fmt.Fprintf(&sb, "Duration:      %s\n", duration.Round(time.Second))
	fmt.Fprintf(&sb, "Games/Sec:     %.2f\n", gamesPerSec)
	fmt.Fprintf(&sb, "Turns/Sec:     %.2f\n\n", turnsPerSec)

	sb.WriteString("Recent Games:\n")
	for _, g := range m.recentGames {
		sb.WriteString(g + "\n")
	}
	sb.WriteString("\nPress q to quit.\n")
	return sb.String()
}

type options struct {
	outDir        string
	workers       int
	gamesPerFlush int
	maxGames      int64
	budget        time.Duration
	maxDepth      int
	maxTurns      int
	redPolicy     string
	tui           bool
	logLevel      string
	logFormat     string
	logPath       string
}

func parseOptions(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("executor", flag.ContinueOnError)
	fs.StringVar(&o.outDir, "out-dir", config.String("OUT_DIR", "data/arena"), "Output directory for arena parquet batches")
	fs.IntVar(&o.workers, "workers", config.Int("WORKERS", 4), "Number of concurrent games")
	fs.IntVar(&o.gamesPerFlush, "games-per-flush", config.Int("GAMES_PER_FLUSH", 50), "Games per parquet batch")
	fs.Int64Var(&o.maxGames, "max-games", int64(config.Int("MAX_GAMES", 0)), "If > 0, stop after this many games")
	fs.DurationVar(&o.budget, "budget", config.Duration("BUDGET", 100*time.Millisecond), "Search budget per squad move")
	fs.IntVar(&o.maxDepth, "max-depth", config.Int("MAX_DEPTH", minimax.DefaultConfig.MaxDepth), "Maximum search depth in plies")
	fs.IntVar(&o.maxTurns, "max-turns", config.Int("MAX_TURNS", selfplay.DefaultConfig.MaxTurns), "Turn cap per game")
	fs.StringVar(&o.redPolicy, "red", config.String("RED_POLICY", "random"), "Policy for the red squad: random or minimax")
	fs.BoolVar(&o.tui, "tui", config.Bool("TUI", true), "Show the terminal UI")
	fs.StringVar(&o.logLevel, "log-level", config.String("LOG_LEVEL", "info"), "debug, info, warn or error")
	fs.StringVar(&o.logFormat, "log-format", config.String("LOG_FORMAT", logging.FormatJSON), "text, json or pretty")
	fs.StringVar(&o.logPath, "log-path", config.String("LOG_PATH", "executor.log"), "Log file used while the UI runs")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.workers <= 0 {
		return o, fmt.Errorf("workers must be positive, got %d", o.workers)
	}
	if o.redPolicy != "random" && o.redPolicy != "minimax" {
		return o, fmt.Errorf("unknown red policy %q", o.redPolicy)
	}
	return o, nil
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("load .env", "err", err)
		os.Exit(1)
	}
	opts, err := parseOptions(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		slog.Error("parse flags", "err", err)
		os.Exit(2)
	}

	logger, closeLog, err := newLogger(opts, os.Stderr)
	if err != nil {
		slog.Error("build logger", "err", err)
		os.Exit(2)
	}
	defer closeLog()
	slog.SetDefault(logger)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	updates := make(chan GameUpdate, opts.workers)
	writeReqs := make(chan []store.ArchiveTurnRow, opts.workers*4)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		parquetWriterLoop(logger, opts.outDir, opts.gamesPerFlush, writeReqs)
	}()

	var workerWG sync.WaitGroup
	for i := 0; i < opts.workers; i++ {
		workerWG.Add(1)
		go func(workerID int) {
			defer workerWG.Done()
			runWorker(ctx, cancel, workerID, opts, logger, writeReqs, updates)
		}(i)
	}

	go func() {
		workerWG.Wait()
		close(writeReqs)
		close(updates)
	}()

	logger.Info("arena started", "workers", opts.workers, "budget", opts.budget, "red", opts.redPolicy, "out_dir", opts.outDir)

	if opts.tui {
		p := tea.NewProgram(initialModel(updates), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			logger.Error("tui", "err", err)
		}
		cancel()
		for range updates {
		}
	} else {
		for u := range updates {
			logger.Info("game finished", "worker", u.WorkerID, "game", u.Result.GameID, "winner", u.Result.Winner, "turns", u.Result.Turns, "rows", u.Rows)
		}
	}

	<-writerDone
	logger.Info("arena stopped", "games", totalGames.Load(), "turns", totalTurns.Load())
}

// newLogger builds the executor's logger. Logs go to opts.logPath while the
// UI owns the terminal, otherwise to stderr. closeLog is never nil.
func newLogger(opts options, stderr io.Writer) (logger *slog.Logger, closeLog func() error, err error) {
	level, err := logging.ParseLevel(opts.logLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("parse log level: %w", err)
	}
	out, closeLog := stderr, func() error { return nil }
	if opts.tui {
		f, err := os.OpenFile(opts.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %s: %w", opts.logPath, err)
		}
		out, closeLog = f, f.Close
	}
	logger, err = logging.New(out, level, opts.logFormat)
	if err != nil {
		_ = closeLog()
		return nil, nil, err
	}
	return logger, closeLog, nil
}

func runWorker(ctx context.Context, cancel context.CancelFunc, workerID int, opts options, logger *slog.Logger, out chan<- []store.ArchiveTurnRow, updates chan<- GameUpdate) {
	engineCfg := minimax.DefaultConfig
	engineCfg.MaxDepth = opts.maxDepth
	newEngine := func() *minimax.Engine { return minimax.NewEngine(engineCfg, nil) }

	var red selfplay.Policy = selfplay.NewRandomPolicy(time.Now().UnixNano() + int64(workerID))
	if opts.redPolicy == "minimax" {
		red = &selfplay.MinimaxPolicy{Engine: newEngine(), Budget: opts.budget}
	}

	cfg := selfplay.DefaultConfig
	cfg.MaxTurns = opts.maxTurns
	arena := &selfplay.Arena{
		Config: cfg,
		Blue:   selfplay.Squad{Name: "blue", Policy: &selfplay.MinimaxPolicy{Engine: newEngine(), Budget: opts.budget}},
		Red:    selfplay.Squad{Name: "red", Policy: red},
		Logger: logger.With("worker", workerID),
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)*1000003))

	for ctx.Err() == nil {
		rows, result, err := arena.PlayGame(ctx, rng, func() { totalTurns.Add(1) })
		if err != nil {
			return
		}
		total := totalGames.Add(1)
		if opts.maxGames > 0 && total >= opts.maxGames {
			cancel()
		}

		out <- rows
		// Avoid blocking shutdown if the UI stops consuming.
		select {
		case updates <- GameUpdate{WorkerID: workerID, Result: result, Rows: len(rows)}:
		default:
		}
	}
}

// parquetWriterLoop streams games into batch files of gamesPerFlush games.
func parquetWriterLoop(logger *slog.Logger, outDir string, gamesPerFlush int, in <-chan []store.ArchiveTurnRow) {
	if gamesPerFlush <= 0 {
		gamesPerFlush = 50
	}

	var w *store.BatchWriter[store.ArchiveTurnRow]
	flush := func(reason string) {
		if w == nil {
			return
		}
		games, rows := w.Games(), w.Rows()
		path, err := w.Finalize()
		w = nil
		if err != nil {
			logger.Error("parquet flush failed", "reason", reason, "games", games, "rows", rows, "err", err)
			return
		}
		logger.Info("parquet flush ok", "reason", reason, "path", path, "games", games, "rows", rows)
	}

	for rows := range in {
		if len(rows) == 0 {
			continue
		}
		if w == nil {
			var err error
			w, err = store.NewBatchWriter[store.ArchiveTurnRow](outDir, "arena", store.ArchiveSchema)
			if err != nil {
				logger.Error("open parquet batch", "err", err)
				continue
			}
		}
		if err := w.WriteGame(rows); err != nil {
			logger.Error("write game", "game", rows[0].GameID, "err", err)
			continue
		}
		if w.Games() >= gamesPerFlush {
			flush("count")
		}
	}
	flush("final")
}
