package minimax

import (
	"slices"
	"testing"

	"github.com/brensch/squadsnek/game"
)

func TestMaterial_Sentinels(t *testing.T) {
	live := func() *Snake { return snake(100, 3, 3, 3, 2) }
	cases := []struct {
		name string
		b    *Board
		want int
	}{
		{"team gone", newTestBoard(7, 7, nil, nil, nil, live(), live()), LossScore},
		{"opponents gone", newTestBoard(7, 7, nil, live(), nil, nil, nil), WinScore},
		{"everyone gone", newTestBoard(7, 7, nil, nil, nil, nil, nil), LossScore},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := NewEvaluator()
			if got := e.Material(tc.b); got != tc.want {
				t.Fatalf("material = %d, want %d", got, tc.want)
			}
			if got := e.Evaluate(tc.b, true); got != tc.want {
				t.Fatalf("full evaluation = %d, want the sentinel %d", got, tc.want)
			}
		})
	}
}

func TestMaterial_Terms(t *testing.T) {
	b := newTestBoard(11, 11, nil,
		snake(10, 1, 1, 1, 2, 1, 3),
		nil,
		snake(100, 5, 5, 5, 6),
		snake(100, 8, 8, 8, 9),
	)
	// health -10, length (3-4)*8, one of our slots empty -20
	if got := material(b); got != -38 {
		t.Fatalf("material = %d, want -38", got)
	}
}

func TestEvaluate_Memoized(t *testing.T) {
	b := newTestBoard(11, 11, pts(5, 5),
		snake(80, 2, 2, 2, 1),
		snake(80, 8, 2, 8, 1),
		snake(80, 2, 8, 2, 9),
		snake(80, 8, 8, 8, 9),
	)
	e := NewEvaluator()
	first := e.Evaluate(b, true)
	second := e.Evaluate(b, true)
	if first != second {
		t.Fatalf("evaluations differ: %d then %d", first, second)
	}
	if e.Hits != 1 || e.Calls != 2 {
		t.Fatalf("hits=%d calls=%d, want 1 and 2", e.Hits, e.Calls)
	}
	if got := e.Evaluate(b.Clone(), true); got != first {
		t.Fatalf("equal board evaluated to %d, want %d", got, first)
	}

	cheap := e.Material(b)
	if cheap != material(b) {
		t.Fatalf("cached material = %d, want %d", cheap, material(b))
	}

	hits := e.Hits
	e.Evaluate(b.Simulate(true)[0].Board, true)
	if e.Hits != hits {
		t.Fatalf("advanced board served from the parent's entry")
	}
}

func TestReachability_ShorterSnakeSeedsFirst(t *testing.T) {
	b := newTestBoard(11, 11, pts(1, 1),
		snake(100, 2, 2),
		nil,
		snake(100, 5, 6, 5, 7),
		nil,
	)
	t.Logf("\n%s", b)
	claims := Reachability(b)

	ours, theirs := claims[0], claims[2]
	if !slices.Contains(ours, game.Point{X: 5, Y: 0}) {
		t.Fatalf("(5,0) should be ours")
	}
	if !slices.Contains(theirs, game.Point{X: 5, Y: 5}) {
		t.Fatalf("(5,5) should be theirs")
	}
	if !slices.Contains(ours, game.Point{X: 5, Y: 2}) {
		t.Fatalf("(5,2) should be ours")
	}
	if slices.Contains(ours, game.Point{X: 5, Y: 7}) || slices.Contains(theirs, game.Point{X: 5, Y: 7}) {
		t.Fatalf("the opponent's neck should block the fill")
	}
	if got := len(ours) + len(theirs); got != 11*11-1 {
		t.Fatalf("claimed %d cells, want every free cell plus the heads", got)
	}
}

func TestReachability_TieGoesToShorter(t *testing.T) {
	// (3,0) is two steps from both heads.
	b := newTestBoard(7, 1, nil,
		snake(100, 1, 0),
		nil,
		snake(100, 5, 0, 6, 0),
		nil,
	)
	claims := Reachability(b)
	if !slices.Contains(claims[0], game.Point{X: 3, Y: 0}) {
		t.Fatalf("contested cell went to the longer snake: ours=%v theirs=%v", claims[0], claims[2])
	}
}

func TestReachabilityScore_Trapped(t *testing.T) {
	b := newTestBoard(4, 1, nil, snake(100, 0, 0, 1, 0, 2, 0), nil, snake(100, 3, 0), nil)
	// Both claim only their head; ours is two short of its length.
	if got := reachabilityScore(b); got != -2*dangerWeight {
		t.Fatalf("reachability = %d, want %d", got, -2*dangerWeight)
	}
}
