package minimax

import "github.com/brensch/squadsnek/game"

// SafeMoves returns the moves for the snake in slot that do not kill it
// outright, assuming slot moves in its own side's ply of the round (team
// first, opponents second). It prunes the tree; it does not promise
// survival, elimination still judges the resulting board. An empty slot has
// no moves.
func (b *Board) SafeMoves(slot int) []game.Move {
	me := b.Snakes[slot]
	if me == nil {
		return nil
	}
	head := me.Head()
	moves := make([]game.Move, 0, 4)
	for _, m := range game.Moves {
		next := head.Step(m)
		switch {
		case me.Len() > 1 && me.Body[1] != head && next == me.Body[1]:
			// neck
		case !b.inBounds(next):
		case b.blockedBySelf(me, next):
		case b.blockedByOthers(slot, next):
		default:
			moves = append(moves, m)
		}
	}
	return moves
}

// movesOrDefault never returns an empty list, so a side always has something
// to play.
func (b *Board) movesOrDefault(slot int) []game.Move {
	if moves := b.SafeMoves(slot); len(moves) > 0 {
		return moves
	}
	return []game.Move{game.DefaultMove}
}

func (b *Board) blockedBySelf(me *Snake, next game.Point) bool {
	last := me.Len() - 1
	for i, p := range me.Body {
		if p != next {
			continue
		}
		if i == last && me.tailRetracts() {
			continue
		}
		return true
	}
	return false
}

// blockedByOthers checks next against every other snake. Snakes still to
// move this round may vacate their tail: it counts as free when it is not
// stacked and no food sits next to that snake's head. Team snakes have
// already moved when an opponent moves, so their tails stay, but their new
// heads are contested cells that elimination settles by length.
func (b *Board) blockedByOthers(slot int, next game.Point) bool {
	moverIsOpp := b.isOpp(slot)
	for i, other := range b.Snakes {
		if i == slot || other == nil {
			continue
		}
		moved := moverIsOpp && b.isTeam(i)
		last := other.Len() - 1
		for j, p := range other.Body {
			if p != next {
				continue
			}
			if moved && j == 0 {
				continue
			}
			if !moved && j == last && other.tailRetracts() && !b.mayEat(other) {
				continue
			}
			return true
		}
	}
	return false
}

func (b *Board) mayEat(s *Snake) bool {
	for _, n := range s.Head().Neighbors() {
		if b.inBounds(n) && b.hasFood(n) {
			return true
		}
	}
	return false
}

func (b *Board) isTeam(slot int) bool { return slot == b.Team[0] || slot == b.Team[1] }
func (b *Board) isOpp(slot int) bool  { return slot == b.Opps[0] || slot == b.Opps[1] }
