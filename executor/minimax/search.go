package minimax

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/brensch/squadsnek/game"
)

// Config tunes the search.
type Config struct {
	// MaxDepth caps the number of plies below the root.
	MaxDepth int
	// HeuristicTime is what one full evaluation is assumed to cost. Nodes with
	// less budget than HeuristicTime+ReturnTime evaluate instead of expanding,
	// and nodes with less than HeuristicTime skip the reachability term.
	HeuristicTime time.Duration
	// ReturnTime is kept back at every node for unwinding.
	ReturnTime time.Duration
}

// DefaultConfig is tuned for a 500ms game timeout with a latency reserve.
var DefaultConfig = Config{
	MaxDepth:      24,
	HeuristicTime: 5 * time.Millisecond,
	ReturnTime:    15 * time.Millisecond,
}

// Result is the outcome of a root search. Moves are indexed like Board.Team.
type Result struct {
	Moves    [2]game.Move
	Score    int
	Nodes    int
	MaxDepth int
	Elapsed  time.Duration
}

// Engine runs searches. The zero value uses DefaultConfig and no logging.
type Engine struct {
	Config Config
	Logger *slog.Logger

	// now is swapped in tests.
	now func() time.Time
}

func NewEngine(config Config, logger *slog.Logger) *Engine {
	return &Engine{Config: config, Logger: logger}
}

func (e *Engine) config() Config {
	if e.Config == (Config{}) {
		return DefaultConfig
	}
	return e.Config
}

func (e *Engine) clock() func() time.Time {
	if e.now != nil {
		return e.now
	}
	return time.Now
}

type searcher struct {
	ctx      context.Context
	cfg      Config
	eval     *Evaluator
	now      func() time.Time
	nodes    int
	maxDepth int
}

// Decide returns a move for every id in team. Ids past the first two, and ids
// not on the board, get game.DefaultMove.
func (e *Engine) Decide(ctx context.Context, state *game.GameState, team []string, budget time.Duration) map[string]game.Move {
	b := NewBoard(state, team)
	res := e.Search(ctx, b, budget)

	out := make(map[string]game.Move, len(team))
	for _, id := range team {
		out[id] = game.DefaultMove
	}
	for i, slot := range b.Team {
		if i < len(team) && b.Snakes[slot] != nil {
			out[team[i]] = res.Moves[i]
		}
	}
	if e.Logger != nil {
		e.Logger.Debug("search finished",
			"turn", state.Turn,
			"team", team,
			"moves", out,
			"score", res.Score,
			"nodes", res.Nodes,
			"depth", res.MaxDepth,
			"elapsed", res.Elapsed,
		)
	}
	return out
}

// Search returns the best joint move for the team within budget. A deadline
// on ctx shortens the budget; cancelling ctx stops the search between nodes.
func (e *Engine) Search(ctx context.Context, b *Board, budget time.Duration) Result {
	now := e.clock()
	start := now()
	if deadline, ok := ctx.Deadline(); ok {
		if left := deadline.Sub(start); left < budget {
			budget = left
		}
	}
	s := &searcher{ctx: ctx, cfg: e.config(), eval: NewEvaluator(), now: now}

	children := s.ordered(b, true, budget)
	best := Result{Moves: children[0].Moves, Score: LossScore}
	first := true
	for i, child := range children {
		left := budget - now().Sub(start)
		if !first && (left <= 0 || ctx.Err() != nil) {
			break
		}
		share := left / time.Duration(len(children)-i)
		value := s.minimax(child.Board, 1, false, best.Score, WinScore, share)
		if first || value > best.Score {
			best.Moves = child.Moves
			best.Score = value
		}
		first = false
		if value == WinScore {
			break
		}
	}

	best.Nodes = s.nodes
	best.MaxDepth = s.maxDepth
	best.Elapsed = now().Sub(start)
	return best
}

// ordered simulates the side to move and sorts children best first for that
// side. The sort is stable so equal scores keep generation order.
func (s *searcher) ordered(b *Board, ours bool, budget time.Duration) []Child {
	children := b.Simulate(ours)
	full := budget >= s.cfg.HeuristicTime
	scores := make(map[*Board]int, len(children))
	for _, c := range children {
		scores[c.Board] = s.eval.Evaluate(c.Board, full)
	}
	sort.SliceStable(children, func(i, j int) bool {
		if ours {
			return scores[children[i].Board] > scores[children[j].Board]
		}
		return scores[children[i].Board] < scores[children[j].Board]
	})
	return children
}

func (s *searcher) leaf(b *Board, budget time.Duration) int {
	return s.eval.Evaluate(b, budget >= s.cfg.HeuristicTime)
}

func (s *searcher) minimax(b *Board, depth int, maximizing bool, alpha, beta int, budget time.Duration) int {
	start := s.now()
	s.nodes++
	if depth > s.maxDepth {
		s.maxDepth = depth
	}

	if depth >= s.cfg.MaxDepth || budget <= s.cfg.HeuristicTime+s.cfg.ReturnTime || s.ctx.Err() != nil {
		return s.leaf(b, budget)
	}
	if m := s.eval.Material(b); IsSentinel(m) {
		return m
	}

	children := s.ordered(b, maximizing, budget)
	top := s.eval.Evaluate(children[0].Board, budget >= s.cfg.HeuristicTime)
	if (maximizing && top == WinScore) || (!maximizing && top == LossScore) {
		return top
	}

	best := WinScore
	if maximizing {
		best = LossScore
	}
	for i, child := range children {
		left := budget - s.now().Sub(start) - s.cfg.ReturnTime
		if left <= 0 || s.ctx.Err() != nil {
			if i == 0 {
				return s.leaf(b, left)
			}
			return best
		}
		share := left / time.Duration(len(children)-i)
		value := s.minimax(child.Board, depth+1, !maximizing, alpha, beta, share)
		if maximizing {
			best = max(best, value)
			alpha = max(alpha, best)
			if best >= beta {
				break
			}
		} else {
			best = min(best, value)
			beta = min(beta, best)
			if best <= alpha {
				break
			}
		}
	}
	return best
}
