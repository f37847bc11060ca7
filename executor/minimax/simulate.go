package minimax

import "github.com/brensch/squadsnek/game"

// Child is one joint move of a side and the board it leads to.
type Child struct {
	Moves [2]game.Move
	Board *Board
}

// Off-board positions for empty slots. They differ so two empty slots never
// look like teammates colliding.
var absentHeads = [2]game.Point{{X: -2, Y: -1}, {X: -1, Y: -2}}

// Simulate returns every joint move of one side with its resulting board.
// Our ply leaves eliminations pending; the opponent ply closes the round and
// resolves them. Pairs sending both teammates to the same cell are skipped.
// The result is never empty: if every pair collides the default joint move
// is played anyway.
func (b *Board) Simulate(ours bool) []Child {
	side := b.Side(ours)
	first := b.movesOrDefault(side[0])
	second := b.movesOrDefault(side[1])

	children := make([]Child, 0, len(first)*len(second))
	for _, m0 := range first {
		for _, m1 := range second {
			moves := [2]game.Move{m0, m1}
			heads := b.nextHeads(side, moves)
			if heads[0] == heads[1] {
				continue
			}
			children = append(children, Child{Moves: moves, Board: b.advance(side, heads, !ours)})
		}
	}

	if len(children) == 0 {
		moves := [2]game.Move{game.DefaultMove, game.DefaultMove}
		children = append(children, Child{Moves: moves, Board: b.advance(side, b.nextHeads(side, moves), !ours)})
	}
	return children
}

func (b *Board) nextHeads(side [2]int, moves [2]game.Move) [2]game.Point {
	var heads [2]game.Point
	for i, slot := range side {
		if s := b.Snakes[slot]; s != nil {
			heads[i] = s.Head().Step(moves[i])
		} else {
			heads[i] = absentHeads[i]
		}
	}
	return heads
}

// advance clones the board and moves the side's live snakes onto heads.
func (b *Board) advance(side [2]int, heads [2]game.Point, endOfRound bool) *Board {
	next := b.Clone()
	for i, slot := range side {
		s := next.Snakes[slot]
		if s == nil {
			continue
		}
		body := make([]game.Point, 0, s.Len()+1)
		body = append(body, heads[i])
		if next.eat(heads[i]) {
			body = append(body, s.Body...)
			s.Health = 100
		} else {
			body = append(body, s.Body[:s.Len()-1]...)
			s.Health--
		}
		s.Body = body
	}
	if endOfRound {
		next.killSnakes()
	}
	return next
}

// eat removes food at p and reports whether there was any.
func (b *Board) eat(p game.Point) bool {
	for i, f := range b.Food {
		if f == p {
			b.Food = append(b.Food[:i], b.Food[i+1:]...)
			return true
		}
	}
	return false
}

// killSnakes eliminates starved, out of bounds and collided snakes. Every
// check reads the same post-move snapshot; removals happen together after.
func (b *Board) killSnakes() {
	var dead []int
	for i, s := range b.Snakes {
		if s == nil {
			continue
		}
		if s.Health <= 0 || !b.inBounds(s.Head()) || b.collides(i) {
			dead = append(dead, i)
		}
	}
	for _, i := range dead {
		b.Snakes[i] = nil
	}
}

// collides reports whether the head of slot lies on a body segment, or on
// another head whose snake is at least as long.
func (b *Board) collides(slot int) bool {
	me := b.Snakes[slot]
	head := me.Head()
	for i, other := range b.Snakes {
		if other == nil {
			continue
		}
		for j, p := range other.Body {
			if p != head {
				continue
			}
			if j > 0 {
				return true
			}
			if i != slot && other.Len() >= me.Len() {
				return true
			}
		}
	}
	return false
}
