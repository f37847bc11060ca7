// Package replay runs the squad engine over downloaded games and records,
// turn by turn, whether it agrees with the move each snake actually played.
package replay

import (
	"context"
	"log/slog"
	"time"

	"github.com/brensch/squadsnek/executor/minimax"
	"github.com/brensch/squadsnek/game"
	"github.com/brensch/squadsnek/scraper/downloader"
	"github.com/brensch/squadsnek/scraper/store"
)

// Replayer searches every squad position of a game once per turn.
type Replayer struct {
	Engine *minimax.Engine
	Budget time.Duration
	Logger *slog.Logger
}

// Game returns one row per live snake per turn that has a following frame.
// Squads past two snakes get rows for the extra snakes with no engine move.
func (r *Replayer) Game(ctx context.Context, g *downloader.Game) []store.ReplayRow {
	var rows []store.ReplayRow
	for i := 0; i+1 < len(g.Frames); i++ {
		if ctx.Err() != nil {
			break
		}
		state := g.State(i)
		done := make(map[string]bool, len(state.Snakes))
		for _, s := range state.Snakes {
			if done[s.Id] {
				continue
			}
			squad := state.SquadOf(s.Id)
			for _, id := range squad {
				done[id] = true
			}
			rows = append(rows, r.squad(ctx, g, i, state, squad)...)
		}
	}
	if r.Logger != nil {
		agree := 0
		for _, row := range rows {
			if row.Agree {
				agree++
			}
		}
		r.Logger.Debug("game replayed", "game_id", g.ID, "rows", len(rows), "agree", agree)
	}
	return rows
}

func (r *Replayer) squad(ctx context.Context, g *downloader.Game, frame int, state *game.GameState, squad []string) []store.ReplayRow {
	b := minimax.NewBoard(state, squad)
	res := r.Engine.Search(ctx, b, r.Budget)

	rows := make([]store.ReplayRow, 0, len(squad))
	for i, id := range squad {
		engineMove := game.MoveNone
		if i < len(b.Team) {
			engineMove = res.Moves[i]
		}
		played := g.PlayedMove(frame, id)
		rows = append(rows, store.ReplayRow{
			GameID:     g.ID,
			Turn:       state.Turn,
			SnakeID:    id,
			Squad:      state.Snake(id).Squad,
			PlayedMove: store.MoveCode(played),
			EngineMove: store.MoveCode(engineMove),
			Agree:      played != game.MoveNone && played == engineMove,
			Score:      int64(res.Score),
			Depth:      int32(res.MaxDepth),
			Nodes:      int64(res.Nodes),
			ElapsedUS:  res.Elapsed.Microseconds(),
		})
	}
	return rows
}
