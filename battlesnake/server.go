package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/brensch/squadsnek/game"
)

// Decider picks a move for every requested teammate.
type Decider interface {
	Decide(ctx context.Context, state *game.GameState, team []string, budget time.Duration) map[string]game.Move
}

// decision is one squad search for one turn. done closes once moves is set.
type decision struct {
	done  chan struct{}
	moves map[string]game.Move
}

// Server answers the Battlesnake API and remembers each turn's squad decision
// so the second teammate gets the move the first one committed to.
type Server struct {
	cfg    Config
	engine Decider
	logger *slog.Logger

	mu    sync.Mutex
	games map[string]map[int]*decision
}

func NewServer(cfg Config, engine Decider, logger *slog.Logger) *Server {
	return &Server{
		cfg:    cfg,
		engine: engine,
		logger: logger,
		games:  make(map[string]map[int]*decision),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/start", s.handleStart)
	mux.HandleFunc("/move", s.handleMove)
	mux.HandleFunc("/end", s.handleEnd)
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, InfoResponse{
		APIVersion: "1",
		Author:     s.cfg.Author,
		Color:      s.cfg.Color,
		Head:       "default",
		Tail:       "default",
		Version:    "1.0.0",
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	req, ok := decode(w, r)
	if !ok {
		return
	}
	s.logger.Info("game started", "game", req.Game.ID, "you", req.You.ID, "squad", req.You.Squad, "timeout_ms", req.Game.Timeout)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req, ok := decode(w, r)
	if !ok {
		return
	}

	state := toGameState(req)
	team := state.SquadOf(req.You.ID)
	budget := s.cfg.budget(req.Game.Timeout)

	ctx, cancel := context.WithTimeout(r.Context(), budget)
	defer cancel()

	move, shared := s.decide(ctx, req.Game.ID, req.Turn, state, team, budget)
	s.logger.Debug("move",
		"game", req.Game.ID,
		"turn", req.Turn,
		"you", req.You.ID,
		"team", team,
		"move", move,
		"shared", shared,
		"elapsed", time.Since(start),
	)

	resp := MoveResponse{Move: move.String()}
	if shared {
		resp.Shout = "following squad plan"
	}
	writeJSON(w, resp)
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	req, ok := decode(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	delete(s.games, req.Game.ID)
	s.mu.Unlock()

	result := "lost"
	for _, snake := range req.Board.Snakes {
		if snake.ID == req.You.ID || (req.You.Squad != "" && snake.Squad == req.You.Squad) {
			result = "won"
			break
		}
	}
	if len(req.Board.Snakes) == 0 {
		result = "draw"
	}
	s.logger.Info("game ended", "game", req.Game.ID, "turn", req.Turn, "you", req.You.ID, "result", result)
	w.WriteHeader(http.StatusOK)
}

// decide returns the move for team[0]. The first request of a turn runs the
// search; later requests for the same game and turn wait for it and reuse it.
// shared reports whether the move came from another request's search.
func (s *Server) decide(ctx context.Context, gameID string, turn int, state *game.GameState, team []string, budget time.Duration) (game.Move, bool) {
	you := team[0]

	s.mu.Lock()
	turns := s.games[gameID]
	if turns == nil {
		turns = make(map[int]*decision)
		s.games[gameID] = turns
	}
	d, found := turns[turn]
	if !found {
		d = &decision{done: make(chan struct{})}
		turns[turn] = d
		for t := range turns {
			if t < turn-1 {
				delete(turns, t)
			}
		}
	}
	s.mu.Unlock()

	if found {
		select {
		case <-d.done:
			if m, ok := d.moves[you]; ok {
				return m, true
			}
		case <-ctx.Done():
		}
		// The earlier search did not cover us, or is still running past our
		// deadline: search alone with what is left.
		return s.search(ctx, state, []string{you}, budget), false
	}

	d.moves = s.engine.Decide(ctx, state, team, budget)
	close(d.done)
	if m, ok := d.moves[you]; ok {
		return m, false
	}
	return game.DefaultMove, false
}

func (s *Server) search(ctx context.Context, state *game.GameState, team []string, budget time.Duration) game.Move {
	if deadline, ok := ctx.Deadline(); ok {
		budget = min(budget, time.Until(deadline))
	}
	if m, ok := s.engine.Decide(ctx, state, team, budget)[team[0]]; ok {
		return m
	}
	return game.DefaultMove
}

func decode(w http.ResponseWriter, r *http.Request) (*GameRequest, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}
	var req GameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("decode request: %v", err), http.StatusBadRequest)
		return nil, false
	}
	if req.You.ID == "" {
		http.Error(w, "request has no you.id", http.StatusBadRequest)
		return nil, false
	}
	return &req, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
