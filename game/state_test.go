package game

import (
	"math/rand"
	"strings"
	"testing"
)

// dumpState is a test helper to visualize board state.
func dumpState(state *GameState) string {
	grid := make([][]byte, state.Height)
	for y := int32(0); y < state.Height; y++ {
		grid[y] = []byte(strings.Repeat(".", int(state.Width)))
	}
	for _, f := range state.Food {
		if f.InBounds(state.Width, state.Height) {
			grid[f.Y][f.X] = '*'
		}
	}
	for i, s := range state.Snakes {
		sym := byte('a' + i)
		for j, p := range s.Body {
			if !p.InBounds(state.Width, state.Height) {
				continue
			}
			if j == 0 {
				grid[p.Y][p.X] = sym - 32
			} else {
				grid[p.Y][p.X] = sym
			}
		}
	}
	var sb strings.Builder
	for y := state.Height - 1; y >= 0; y-- {
		sb.Write(grid[y])
		sb.WriteByte('\n')
	}
	return sb.String()
}

func TestClone_IsDeep(t *testing.T) {
	orig := &GameState{
		Width:  7,
		Height: 7,
		Snakes: []Snake{{Id: "a", Squad: "red", Health: 90, Body: []Point{{1, 1}, {1, 0}}}},
		Food:   []Point{{3, 3}},
	}
	c := orig.Clone()
	c.Snakes[0].Body[0] = Point{5, 5}
	c.Snakes[0].Health = 1
	c.Food[0] = Point{0, 0}

	if orig.Snakes[0].Body[0] != (Point{1, 1}) || orig.Snakes[0].Health != 90 || orig.Food[0] != (Point{3, 3}) {
		t.Fatalf("clone shares memory with original:\n%s", dumpState(orig))
	}
	if c.Snakes[0].Squad != "red" {
		t.Errorf("squad not copied")
	}
}

func TestSquadOf(t *testing.T) {
	s := &GameState{Snakes: []Snake{
		{Id: "a", Squad: "red"},
		{Id: "b", Squad: "blue"},
		{Id: "c", Squad: "red"},
		{Id: "d"},
	}}

	if got := s.SquadOf("c"); len(got) != 2 || got[0] != "c" || got[1] != "a" {
		t.Errorf("SquadOf(c) = %v, want [c a]", got)
	}
	if got := s.SquadOf("d"); len(got) != 1 || got[0] != "d" {
		t.Errorf("SquadOf(d) = %v, want [d]", got)
	}
	if got := s.SquadOf("missing"); len(got) != 1 || got[0] != "missing" {
		t.Errorf("SquadOf(missing) = %v", got)
	}
}

func TestMoves(t *testing.T) {
	p := Point{X: 4, Y: 4}
	cases := []struct {
		m    Move
		want Point
	}{
		{MoveUp, Point{4, 5}},
		{MoveDown, Point{4, 3}},
		{MoveLeft, Point{3, 4}},
		{MoveRight, Point{5, 4}},
		{MoveNone, Point{4, 4}},
	}
	for _, c := range cases {
		if got := p.Step(c.m); got != c.want {
			t.Errorf("Step(%s) = %v, want %v", c.m, got, c.want)
		}
		if c.m == MoveNone {
			continue
		}
		if got := MoveBetween(p, c.want); got != c.m {
			t.Errorf("MoveBetween -> %s, want %s", got, c.m)
		}
	}
	if got := MoveBetween(p, Point{6, 6}); got != MoveNone {
		t.Errorf("MoveBetween non-adjacent = %s, want none", got)
	}
}

func TestStep_InvalidMovePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for invalid move")
		}
	}()
	Point{}.Step(Move(9))
}

func TestApplyFoodSettings_Minimum(t *testing.T) {
	state := &GameState{
		Width:  3,
		Height: 3,
		Snakes: []Snake{{Id: "a", Health: 100, Body: []Point{{0, 0}, {1, 0}, {2, 0}}}},
	}
	ApplyFoodSettings(state, rand.New(rand.NewSource(1)), FoodSettings{MinimumFood: 2})
	t.Logf("\n%s", dumpState(state))

	if len(state.Food) != 2 {
		t.Fatalf("food count = %d, want 2", len(state.Food))
	}
	for _, f := range state.Food {
		if f.Y == 0 {
			t.Errorf("food spawned on snake at %v", f)
		}
	}
	if state.Food[0] == state.Food[1] {
		t.Errorf("food spawned twice on %v", state.Food[0])
	}
}

func TestApplyFoodSettings_FullBoard(t *testing.T) {
	state := &GameState{
		Width:  2,
		Height: 1,
		Snakes: []Snake{{Id: "a", Health: 100, Body: []Point{{0, 0}, {1, 0}}}},
	}
	ApplyFoodSettings(state, nil, FoodSettings{MinimumFood: 3, FoodSpawnChance: 100})
	if len(state.Food) != 0 {
		t.Fatalf("food spawned on a full board: %v", state.Food)
	}
}
