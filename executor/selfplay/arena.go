// Package selfplay runs arena games between squads and archives every turn.
package selfplay

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/brensch/squadsnek/game"
	"github.com/brensch/squadsnek/rules"
	"github.com/brensch/squadsnek/scraper/store"
)

// Squad is one side of an arena game.
type Squad struct {
	Name   string
	Policy Policy
}

type Config struct {
	Width    int32
	Height   int32
	MaxTurns int
	Food     game.FoodSettings
	// Trace logs the board every turn at debug level.
	Trace bool
}

var DefaultConfig = Config{Width: 11, Height: 11, MaxTurns: 500, Food: game.DefaultFoodSettings}

type GameResult struct {
	GameID string
	// Winner is the surviving squad's name, empty for a draw or a game cut
	// off at MaxTurns.
	Winner string
	Turns  int
}

// Arena plays games. It is safe to share between workers as long as the
// squads' policies are.
type Arena struct {
	Config Config
	Blue   Squad
	Red    Squad
	Logger *slog.Logger
}

// PlayGame plays one game to the end and returns its archive rows: one per
// turn before moves are applied, plus the terminal position. A cancelled ctx
// abandons the game and returns ctx.Err().
func (a *Arena) PlayGame(ctx context.Context, rng *rand.Rand, onTurn func()) ([]store.ArchiveTurnRow, GameResult, error) {
	cfg := a.Config
	if cfg.Width == 0 || cfg.Height == 0 {
		cfg = DefaultConfig
	}
	gameID := uuid.NewString()
	state := InitialState(cfg.Width, cfg.Height, a.Blue.Name, a.Red.Name)
	game.ApplyFoodSettings(state, rng, game.FoodSettings{MinimumFood: max(cfg.Food.MinimumFood, 1)})

	rows := make([]store.ArchiveTurnRow, 0, 128)
	for !rules.IsGameOver(state) && (cfg.MaxTurns <= 0 || int(state.Turn) < cfg.MaxTurns) {
		if err := ctx.Err(); err != nil {
			return nil, GameResult{GameID: gameID, Turns: int(state.Turn)}, err
		}
		if cfg.Trace && a.Logger != nil {
			a.Logger.Debug("turn", "game", gameID, "turn", state.Turn, "board", "\n"+Render(state))
		}

		decisions := a.decide(ctx, state)
		moves := make(map[string]game.Move, len(decisions))
		for id, d := range decisions {
			moves[id] = d.Move
		}

		rows = append(rows, a.archiveRow(gameID, state, decisions))
		if onTurn != nil {
			onTurn()
		}

		state = rules.NextStateSimultaneous(state, moves)
		game.ApplyFoodSettings(state, rng, cfg.Food)
	}

	result := GameResult{GameID: gameID, Winner: rules.Winner(state), Turns: int(state.Turn)}
	rows = append(rows, a.archiveRow(gameID, state, nil))
	for i := range rows {
		rows[i].Winner = result.Winner
	}

	if a.Logger != nil {
		a.Logger.Debug("game finished", "game", gameID, "winner", result.Winner, "turns", result.Turns)
	}
	return rows, result, nil
}

// decide asks both squads for moves at once.
func (a *Arena) decide(ctx context.Context, state *game.GameState) map[string]Decision {
	out := make(map[string]Decision, len(state.Snakes))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, squad := range []Squad{a.Blue, a.Red} {
		team := squadIDs(state, squad.Name)
		if len(team) == 0 {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := squad.Policy.Moves(ctx, state.Clone(), team)
			mu.Lock()
			defer mu.Unlock()
			for _, id := range team {
				if d, ok := got[id]; ok {
					out[id] = d
				} else {
					out[id] = Decision{Move: game.DefaultMove}
				}
			}
		}()
	}
	wg.Wait()
	return out
}

func squadIDs(state *game.GameState, squad string) []string {
	var ids []string
	for _, s := range state.Snakes {
		if s.Squad == squad {
			ids = append(ids, s.Id)
		}
	}
	return ids
}

func (a *Arena) policyName(squad string) string {
	switch squad {
	case a.Blue.Name:
		return a.Blue.Policy.Name()
	case a.Red.Name:
		return a.Red.Policy.Name()
	}
	return ""
}

// archiveRow snapshots state with the decisions made from it. Snakes are
// sorted by id so rows from different games line up.
func (a *Arena) archiveRow(gameID string, state *game.GameState, decisions map[string]Decision) store.ArchiveTurnRow {
	row := store.ArchiveTurnRow{
		GameID: gameID,
		Turn:   state.Turn,
		Width:  state.Width,
		Height: state.Height,
		Source: "arena",
	}
	row.FoodX, row.FoodY = store.Points(state.Food)

	snakes := make([]game.Snake, len(state.Snakes))
	copy(snakes, state.Snakes)
	sort.Slice(snakes, func(i, j int) bool { return snakes[i].Id < snakes[j].Id })

	row.Snakes = make([]store.ArchiveSnake, 0, len(snakes))
	for _, s := range snakes {
		snake := store.ArchiveSnake{
			ID:     s.Id,
			Squad:  s.Squad,
			Alive:  s.Health > 0 && len(s.Body) > 0,
			Health: s.Health,
			Policy: a.policyName(s.Squad),
			Move:   store.NoMove,
		}
		snake.BodyX, snake.BodyY = store.Points(s.Body)
		if d, ok := decisions[s.Id]; ok {
			snake.Move = store.MoveCode(d.Move)
			snake.Score = int64(d.Score)
			snake.Depth = int32(d.Depth)
			snake.Nodes = int64(d.Nodes)
		}
		row.Snakes = append(row.Snakes, snake)
	}
	return row
}

// InitialState places two squads of two in the four corners one cell in from
// the walls, blue along the bottom. Bodies start stacked three deep.
func InitialState(width, height int32, blue, red string) *game.GameState {
	stacked := func(x, y int32) []game.Point {
		p := game.Point{X: x, Y: y}
		return []game.Point{p, p, p}
	}
	left, right := int32(1), width-2
	bottom, top := int32(1), height-2
	return &game.GameState{
		Width:  width,
		Height: height,
		Snakes: []game.Snake{
			{Id: fmt.Sprintf("%s-1", blue), Squad: blue, Health: 100, Body: stacked(left, bottom)},
			{Id: fmt.Sprintf("%s-2", blue), Squad: blue, Health: 100, Body: stacked(right, bottom)},
			{Id: fmt.Sprintf("%s-1", red), Squad: red, Health: 100, Body: stacked(left, top)},
			{Id: fmt.Sprintf("%s-2", red), Squad: red, Health: 100, Body: stacked(right, top)},
		},
	}
}
