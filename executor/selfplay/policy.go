package selfplay

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/brensch/squadsnek/executor/minimax"
	"github.com/brensch/squadsnek/game"
	"github.com/brensch/squadsnek/rules"
)

// Decision is what a policy chose for one snake. Search fields are zero for
// policies that do not search.
type Decision struct {
	Move  game.Move
	Score int
	Depth int
	Nodes int
}

// Policy controls a squad. Moves returns a decision for each id in team that
// it can move; the arena plays game.DefaultMove for the rest.
type Policy interface {
	Name() string
	Moves(ctx context.Context, state *game.GameState, team []string) map[string]Decision
}

// MinimaxPolicy searches the squad's joint move with the engine.
type MinimaxPolicy struct {
	Engine *minimax.Engine
	Budget time.Duration
}

func (p *MinimaxPolicy) Name() string { return "minimax" }

func (p *MinimaxPolicy) Moves(ctx context.Context, state *game.GameState, team []string) map[string]Decision {
	b := minimax.NewBoard(state, team)
	res := p.Engine.Search(ctx, b, p.Budget)

	out := make(map[string]Decision, len(team))
	for i, slot := range b.Team {
		if i < len(team) && b.Snakes[slot] != nil {
			out[team[i]] = Decision{
				Move:  res.Moves[i],
				Score: res.Score,
				Depth: res.MaxDepth,
				Nodes: res.Nodes,
			}
		}
	}
	return out
}

// RandomPolicy picks uniformly among each snake's referee-legal moves. It is
// the baseline the engine is measured against.
type RandomPolicy struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomPolicy(seed int64) *RandomPolicy {
	return &RandomPolicy{rng: rand.New(rand.NewSource(seed))}
}

func (p *RandomPolicy) Name() string { return "random" }

func (p *RandomPolicy) Moves(_ context.Context, state *game.GameState, team []string) map[string]Decision {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]Decision, len(team))
	for _, id := range team {
		if state.Snake(id) == nil {
			continue
		}
		legal := rules.GetLegalMoves(state, id)
		if len(legal) == 0 {
			out[id] = Decision{Move: game.DefaultMove}
			continue
		}
		out[id] = Decision{Move: legal[p.rng.Intn(len(legal))]}
	}
	return out
}
