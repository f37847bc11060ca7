// Package minimax is the squad search engine: a compact two-vs-two board
// model, legal move generation, round simulation with elimination, a
// material plus reachability heuristic, and time budgeted alpha-beta search.
package minimax

import (
	"strings"

	"github.com/brensch/squadsnek/game"
)

// Snake is a live snake on a compact board. Body runs head first.
type Snake struct {
	Health int32
	Body   []game.Point
}

func (s *Snake) Head() game.Point { return s.Body[0] }
func (s *Snake) Tail() game.Point { return s.Body[len(s.Body)-1] }
func (s *Snake) Len() int         { return len(s.Body) }

// tailRetracts reports whether the tail cell empties when the snake moves
// without eating. A tail stacked on the previous segment stays put.
func (s *Snake) tailRetracts() bool {
	n := len(s.Body)
	return n > 1 && s.Body[n-1] != s.Body[n-2]
}

func (s *Snake) clone() *Snake {
	body := make([]game.Point, len(s.Body))
	copy(body, s.Body)
	return &Snake{Health: s.Health, Body: body}
}

// Board is the search model of a game. Slots never move: a nil slot is a
// snake that has been eliminated (or was never on the board), and Team and
// Opps keep pointing at the same slots for the whole search.
type Board struct {
	Width  int32
	Height int32
	Snakes []*Snake
	Food   []game.Point
	Team   [2]int
	Opps   [2]int
}

// NewBoard builds a compact board from a game state. team lists our snake
// ids in the order results should come back in; any id missing from the
// state becomes an empty slot. The first two other snakes become opponents.
func NewBoard(state *game.GameState, team []string) *Board {
	b := &Board{
		Width:  state.Width,
		Height: state.Height,
		Snakes: make([]*Snake, 0, 4),
	}
	if len(state.Food) > 0 {
		b.Food = make([]game.Point, len(state.Food))
		copy(b.Food, state.Food)
	}

	ours := make(map[string]bool, len(team))
	for _, id := range team {
		ours[id] = true
	}

	add := func(s *game.Snake) int {
		if s == nil || s.Health <= 0 || len(s.Body) == 0 {
			b.Snakes = append(b.Snakes, nil)
		} else {
			body := make([]game.Point, len(s.Body))
			copy(body, s.Body)
			b.Snakes = append(b.Snakes, &Snake{Health: s.Health, Body: body})
		}
		return len(b.Snakes) - 1
	}

	for i := range b.Team {
		var s *game.Snake
		if i < len(team) && (i == 0 || team[i] != team[0]) {
			s = state.Snake(team[i])
		}
		b.Team[i] = add(s)
	}

	opp := 0
	for i := range state.Snakes {
		if opp == len(b.Opps) {
			break
		}
		if ours[state.Snakes[i].Id] {
			continue
		}
		b.Opps[opp] = add(&state.Snakes[i])
		opp++
	}
	for ; opp < len(b.Opps); opp++ {
		b.Opps[opp] = add(nil)
	}
	return b
}

// Clone deep copies slots, bodies and food.
func (b *Board) Clone() *Board {
	out := &Board{
		Width:  b.Width,
		Height: b.Height,
		Snakes: make([]*Snake, len(b.Snakes)),
		Team:   b.Team,
		Opps:   b.Opps,
	}
	for i, s := range b.Snakes {
		if s != nil {
			out.Snakes[i] = s.clone()
		}
	}
	if len(b.Food) > 0 {
		out.Food = make([]game.Point, len(b.Food))
		copy(out.Food, b.Food)
	}
	return out
}

// Side returns the slot pair of the side to move.
func (b *Board) Side(ours bool) [2]int {
	if ours {
		return b.Team
	}
	return b.Opps
}

func (b *Board) hasFood(p game.Point) bool {
	for _, f := range b.Food {
		if f == p {
			return true
		}
	}
	return false
}

func (b *Board) inBounds(p game.Point) bool {
	return p.InBounds(b.Width, b.Height)
}

// Hash folds every slot, body segment, health and food item into a 64 bit
// key. Equal boards hash equally; it keys the evaluator memo.
func (b *Board) Hash() uint64 {
	h := splitmix64(uint64(b.Width)<<32 | uint64(uint32(b.Height)))
	mix := func(v uint64) { h = splitmix64(h ^ v) }
	for slot, s := range b.Snakes {
		if s == nil {
			mix(0xdead0000 | uint64(slot))
			continue
		}
		mix(uint64(slot)<<40 | uint64(uint32(s.Health)))
		for _, p := range s.Body {
			mix(pointKey(p))
		}
	}
	mix(uint64(len(b.Food)))
	for _, f := range b.Food {
		mix(pointKey(f))
	}
	return h
}

func pointKey(p game.Point) uint64 {
	return uint64(uint32(p.X))<<32 | uint64(uint32(p.Y))
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// String draws the board top row first. Team snakes are A/B (heads) and a/b,
// opponents are X/Y and x/y, food is f.
func (b *Board) String() string {
	grid := make([][]byte, b.Height)
	for y := range grid {
		grid[y] = []byte(strings.Repeat(".", int(b.Width)))
	}
	put := func(p game.Point, c byte) {
		if b.inBounds(p) {
			grid[p.Y][p.X] = c
		}
	}
	for _, f := range b.Food {
		put(f, 'f')
	}
	draw := func(slots [2]int, bodyChars string) {
		for i, slot := range slots {
			s := b.Snakes[slot]
			if s == nil {
				continue
			}
			for j := len(s.Body) - 1; j >= 0; j-- {
				c := bodyChars[i]
				if j == 0 {
					c -= 'a' - 'A'
				}
				put(s.Body[j], c)
			}
		}
	}
	draw(b.Team, "ab")
	draw(b.Opps, "xy")

	var sb strings.Builder
	for y := b.Height - 1; y >= 0; y-- {
		sb.Write(grid[y])
		sb.WriteByte('\n')
	}
	return sb.String()
}
