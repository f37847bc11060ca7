// Package downloader fetches finished games from the Battlesnake engine's
// websocket event stream and converts their frames into game states.
package downloader

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brensch/squadsnek/game"
)

// Config holds downloader configuration
type Config struct {
	NumWorkers     int
	EngineURL      string // WebSocket URL template, %s is the game id
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		NumWorkers:     4,
		EngineURL:      "wss://engine.battlesnake.com/games/%s/events",
		ConnectTimeout: 10 * time.Second,
		ReadTimeout:    30 * time.Second,
	}
}

// Stats holds download statistics
type Stats struct {
	GamesDownloaded int64
	GamesFailed     int64
	FramesTotal     int64
}

// GameEvent represents an event from the WebSocket stream
type GameEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// GameInfo from the "game_info" event
type GameInfo struct {
	Game    GameDetails `json:"game"`
	Ruleset RulesetInfo `json:"ruleset"`
}

type GameDetails struct {
	ID      string `json:"id"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Timeout int    `json:"timeout"`
}

type RulesetInfo struct {
	Name     string          `json:"name"`
	Version  string          `json:"version"`
	Settings json.RawMessage `json:"settings"`
}

// FrameData from "frame" events
type FrameData struct {
	Turn   int         `json:"turn"`
	Snakes []SnakeData `json:"snakes"`
	Food   []Coord     `json:"food"`
	Board  BoardData   `json:"board,omitempty"`
}

type SnakeData struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Squad  string  `json:"squad,omitempty"`
	Health int     `json:"health"`
	Body   []Coord `json:"body"`
	Author string  `json:"author,omitempty"`
	Death  *Death  `json:"death,omitempty"`
}

func (s SnakeData) alive() bool { return s.Death == nil && s.Health > 0 && len(s.Body) > 0 }

type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c Coord) point() game.Point { return game.Point{X: int32(c.X), Y: int32(c.Y)} }

type BoardData struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Death struct {
	Cause string `json:"cause"`
	Turn  int    `json:"turn"`
}

// Game is a downloaded game: its info event and every frame in turn order.
type Game struct {
	ID     string
	Info   GameInfo
	Frames []FrameData
	Winner string
}

// Size returns the board dimensions, preferring the frame's own board over
// the game info. Standard 11x11 when neither says.
func (g *Game) Size(frame *FrameData) (int32, int32) {
	w, h := frame.Board.Width, frame.Board.Height
	if w == 0 || h == 0 {
		w, h = g.Info.Game.Width, g.Info.Game.Height
	}
	if w == 0 || h == 0 {
		w, h = 11, 11
	}
	return int32(w), int32(h)
}

// State converts frame i into a game state holding only live snakes.
func (g *Game) State(i int) *game.GameState {
	frame := &g.Frames[i]
	w, h := g.Size(frame)
	state := &game.GameState{Width: w, Height: h, Turn: int32(frame.Turn)}
	for _, f := range frame.Food {
		state.Food = append(state.Food, f.point())
	}
	for _, s := range frame.Snakes {
		if !s.alive() {
			continue
		}
		body := make([]game.Point, len(s.Body))
		for j, c := range s.Body {
			body[j] = c.point()
		}
		state.Snakes = append(state.Snakes, game.Snake{Id: s.ID, Squad: s.Squad, Health: int32(s.Health), Body: body})
	}
	return state
}

// PlayedMove returns the move snake id made between frame i and frame i+1,
// or MoveNone when it cannot be read off the frames.
func (g *Game) PlayedMove(i int, id string) game.Move {
	if i+1 >= len(g.Frames) {
		return game.MoveNone
	}
	before := findSnake(&g.Frames[i], id)
	after := findSnake(&g.Frames[i+1], id)
	if before == nil || after == nil || !before.alive() || len(after.Body) == 0 {
		return game.MoveNone
	}
	return game.MoveBetween(before.Body[0].point(), after.Body[0].point())
}

func findSnake(frame *FrameData, id string) *SnakeData {
	for i := range frame.Snakes {
		if frame.Snakes[i].ID == id {
			return &frame.Snakes[i]
		}
	}
	return nil
}

// Worker manages a pool of game downloaders
type Worker struct {
	config Config
	logger *slog.Logger
	stats  Stats
}

func NewWorker(config Config, logger *slog.Logger) *Worker {
	if config.NumWorkers <= 0 {
		config.NumWorkers = 1
	}
	return &Worker{config: config, logger: logger}
}

// Start downloads every id from ids and sends the results to out. It returns
// once ids is drained or ctx is done, and closes out.
func (w *Worker) Start(ctx context.Context, ids <-chan string, out chan<- *Game) {
	var wg sync.WaitGroup
	for i := 0; i < w.config.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.worker(ctx, i, ids, out)
		}()
	}
	wg.Wait()
	close(out)
}

func (w *Worker) worker(ctx context.Context, id int, ids <-chan string, out chan<- *Game) {
	for {
		var gameID string
		select {
		case <-ctx.Done():
			return
		case next, ok := <-ids:
			if !ok {
				return
			}
			gameID = next
		}

		g, err := DownloadGame(ctx, gameID, w.config)
		if err != nil {
			w.logger.Warn("download failed", "worker", id, "game_id", gameID, "err", err)
			atomic.AddInt64(&w.stats.GamesFailed, 1)
			continue
		}
		atomic.AddInt64(&w.stats.GamesDownloaded, 1)
		atomic.AddInt64(&w.stats.FramesTotal, int64(len(g.Frames)))
		w.logger.Debug("downloaded", "worker", id, "game_id", gameID, "turns", len(g.Frames), "winner", g.Winner)

		select {
		case out <- g:
		case <-ctx.Done():
			return
		}
	}
}

// DownloadGame connects to the game websocket and reads every frame.
func DownloadGame(ctx context.Context, gameID string, config Config) (*Game, error) {
	url := fmt.Sprintf(config.EngineURL, gameID)

	dialer := websocket.Dialer{
		HandshakeTimeout: config.ConnectTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	// Unblock the read below when ctx ends.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	g := &Game{ID: gameID}

read:
	for {
		if config.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(config.ReadTimeout))
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Connection closed normally
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				break
			}
			// Timeout or unexpected close
			if len(g.Frames) > 0 {
				// We got some data, use it
				break
			}
			return nil, fmt.Errorf("read error: %w", err)
		}

		var event GameEvent
		if err := json.Unmarshal(message, &event); err != nil {
			continue
		}

		switch event.Type {
		case "game_info":
			if err := json.Unmarshal(event.Data, &g.Info); err != nil {
				return nil, fmt.Errorf("parse game_info: %w", err)
			}

		case "frame":
			var frame FrameData
			if err := json.Unmarshal(event.Data, &frame); err != nil {
				continue
			}
			g.Frames = append(g.Frames, frame)

		case "game_end":
			break read
		}
	}

	if len(g.Frames) == 0 {
		return nil, fmt.Errorf("game %s: no frames", gameID)
	}
	g.Winner = determineWinner(&g.Frames[len(g.Frames)-1])
	return g, nil
}

// determineWinner returns the squad whose snakes are the only ones alive in
// the final frame. Snakes without a squad count as a squad of their own name.
func determineWinner(frame *FrameData) string {
	winner := ""
	for _, snake := range frame.Snakes {
		if !snake.alive() {
			continue
		}
		squad := snake.Squad
		if squad == "" {
			squad = snake.Name
		}
		if winner != "" && winner != squad {
			return "draw"
		}
		winner = squad
	}
	if winner == "" {
		return "draw"
	}
	return winner
}

// GetStats returns current statistics
func (w *Worker) GetStats() Stats {
	return Stats{
		GamesDownloaded: atomic.LoadInt64(&w.stats.GamesDownloaded),
		GamesFailed:     atomic.LoadInt64(&w.stats.GamesFailed),
		FramesTotal:     atomic.LoadInt64(&w.stats.FramesTotal),
	}
}
