package rules

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/brensch/squadsnek/game"
)

func dumpState(state *game.GameState) string {
	if state == nil {
		return "<nil state>"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Turn=%d Size=%dx%d You=%s\n", state.Turn, state.Width, state.Height, state.YouId)

	fmt.Fprintf(&b, "Food(%d):", len(state.Food))
	for _, f := range state.Food {
		fmt.Fprintf(&b, " (%d,%d)", f.X, f.Y)
	}
	b.WriteString("\n")

	snakes := make([]game.Snake, len(state.Snakes))
	copy(snakes, state.Snakes)
	sort.Slice(snakes, func(i, j int) bool { return snakes[i].Id < snakes[j].Id })
	for _, s := range snakes {
		fmt.Fprintf(&b, "Snake %s Squad=%s Health=%d Len=%d Body:", s.Id, s.Squad, s.Health, len(s.Body))
		for _, p := range s.Body {
			fmt.Fprintf(&b, " (%d,%d)", p.X, p.Y)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func logNextStateSimultaneous(t *testing.T, name string, before *game.GameState, moves map[string]game.Move, after *game.GameState) {
	t.Helper()
	ids := make([]string, 0, len(moves))
	for id := range moves {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var mv strings.Builder
	mv.WriteString("Moves:")
	for _, id := range ids {
		fmt.Fprintf(&mv, " %s=%s", id, moves[id])
	}
	mv.WriteByte('\n')
	t.Logf("=== %s ===\nBefore:\n%s%sAfter:\n%s", name, dumpState(before), mv.String(), dumpState(after))
}

func assertBody(t *testing.T, label string, got, want []game.Point) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s len=%d want=%d", label, len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%s body[%d]=%v want=%v", label, i, got[i], want[i])
		}
	}
}

func TestGetLegalMoves_AvoidsNeckWallsAndBodies(t *testing.T) {
	state := &game.GameState{
		Width:  5,
		Height: 5,
		Snakes: []game.Snake{
			{Id: "me", Health: 100, Body: []game.Point{{X: 0, Y: 2}, {X: 1, Y: 2}, {X: 2, Y: 2}}},
			{Id: "them", Health: 100, Body: []game.Point{{X: 0, Y: 4}, {X: 0, Y: 3}}},
		},
	}
	got := GetLegalMoves(state, "me")
	if len(got) != 1 || got[0] != game.MoveDown {
		t.Fatalf("legal moves = %v, want [down]", got)
	}
	if got := GetLegalMoves(state, "ghost"); got != nil {
		t.Fatalf("legal moves for missing snake = %v", got)
	}
}

func TestNextStateSimultaneous_NormalMove_NoFood(t *testing.T) {
	before := &game.GameState{
		Width:  7,
		Height: 7,
		Snakes: []game.Snake{{Id: "me", Health: 10, Body: []game.Point{{X: 3, Y: 3}, {X: 3, Y: 2}, {X: 3, Y: 1}}}},
	}
	moves := map[string]game.Move{"me": game.MoveUp}
	after := NextStateSimultaneous(before, moves)
	logNextStateSimultaneous(t, "normal move", before, moves, after)

	assertBody(t, "me", after.Snakes[0].Body, []game.Point{{X: 3, Y: 4}, {X: 3, Y: 3}, {X: 3, Y: 2}})
	if after.Snakes[0].Health != 9 {
		t.Fatalf("health=%d want=9", after.Snakes[0].Health)
	}
	if after.Turn != 1 {
		t.Fatalf("turn=%d want=1", after.Turn)
	}
}

func TestNextStateSimultaneous_EatFood_GrowsByAppendingTail(t *testing.T) {
	before := &game.GameState{
		Width:  7,
		Height: 7,
		Snakes: []game.Snake{{Id: "me", Health: 10, Body: []game.Point{{X: 3, Y: 3}, {X: 3, Y: 2}, {X: 3, Y: 1}}}},
		Food:   []game.Point{{X: 3, Y: 4}},
	}
	moves := map[string]game.Move{"me": game.MoveUp}
	after := NextStateSimultaneous(before, moves)
	logNextStateSimultaneous(t, "eat food", before, moves, after)

	assertBody(t, "me", after.Snakes[0].Body, []game.Point{{X: 3, Y: 4}, {X: 3, Y: 3}, {X: 3, Y: 2}, {X: 3, Y: 2}})
	if after.Snakes[0].Health != 100 {
		t.Fatalf("health=%d want=100", after.Snakes[0].Health)
	}
	if len(after.Food) != 0 {
		t.Fatalf("food len=%d want=0", len(after.Food))
	}
}

func TestNextStateSimultaneous_HeadToHead(t *testing.T) {
	cases := []struct {
		name      string
		lenA      int
		lenB      int
		survivors []string
	}{
		{"equal lengths both die", 3, 3, nil},
		{"longer survives", 4, 3, []string{"a"}},
		{"shorter dies", 3, 5, []string{"b"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			bodyA := []game.Point{{X: 1, Y: 3}}
			for i := 1; i < c.lenA; i++ {
				bodyA = append(bodyA, game.Point{X: 1, Y: int32(3 - i)})
			}
			bodyB := []game.Point{{X: 3, Y: 3}}
			for i := 1; i < c.lenB; i++ {
				bodyB = append(bodyB, game.Point{X: 3, Y: int32(3 - i)})
			}
			if c.lenB > 4 {
				bodyB = append(bodyB[:4], game.Point{X: 4, Y: 0})
			}
			before := &game.GameState{
				Width:  7,
				Height: 7,
				Snakes: []game.Snake{
					{Id: "a", Squad: "red", Health: 50, Body: bodyA},
					{Id: "b", Squad: "blue", Health: 50, Body: bodyB},
				},
			}
			moves := map[string]game.Move{"a": game.MoveRight, "b": game.MoveLeft}
			after := NextStateSimultaneous(before, moves)
			logNextStateSimultaneous(t, c.name, before, moves, after)

			var got []string
			for _, s := range after.Snakes {
				got = append(got, s.Id)
			}
			if fmt.Sprint(got) != fmt.Sprint(c.survivors) {
				t.Fatalf("survivors=%v want=%v", got, c.survivors)
			}
		})
	}
}

func TestNextStateSimultaneous_BodyAndWallDeaths(t *testing.T) {
	before := &game.GameState{
		Width:  5,
		Height: 5,
		Snakes: []game.Snake{
			{Id: "wall", Health: 50, Body: []game.Point{{X: 0, Y: 0}, {X: 1, Y: 0}}},
			{Id: "body", Health: 50, Body: []game.Point{{X: 2, Y: 3}, {X: 3, Y: 3}}},
			{Id: "long", Health: 50, Body: []game.Point{{X: 1, Y: 4}, {X: 1, Y: 3}, {X: 1, Y: 2}, {X: 1, Y: 1}}},
			{Id: "starve", Health: 1, Body: []game.Point{{X: 4, Y: 1}, {X: 4, Y: 0}}},
		},
	}
	moves := map[string]game.Move{"wall": game.MoveLeft, "body": game.MoveLeft, "long": game.MoveRight, "starve": game.MoveUp}
	after := NextStateSimultaneous(before, moves)
	logNextStateSimultaneous(t, "deaths", before, moves, after)

	if len(after.Snakes) != 1 || after.Snakes[0].Id != "long" {
		t.Fatalf("survivors=%v want [long]", after.Snakes)
	}
}

func TestIsGameOverAndWinner(t *testing.T) {
	state := &game.GameState{Snakes: []game.Snake{
		{Id: "a", Squad: "red", Health: 10},
		{Id: "b", Squad: "red", Health: 10},
	}}
	if !IsGameOver(state) || Winner(state) != "red" {
		t.Fatalf("one squad left: over=%v winner=%q", IsGameOver(state), Winner(state))
	}

	state.Snakes = append(state.Snakes, game.Snake{Id: "c", Squad: "blue", Health: 10})
	if IsGameOver(state) || Winner(state) != "" {
		t.Fatalf("two squads left should not be over")
	}

	state.Snakes = nil
	if !IsGameOver(state) || Winner(state) != "" {
		t.Fatalf("empty board should be a draw")
	}
}
