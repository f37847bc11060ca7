package game

import "fmt"

// Move is one of the four cardinal directions. MoveNone is only used to ask
// where a snake currently is; it is never sent to the game engine.
type Move uint8

const (
	MoveUp Move = iota
	MoveDown
	MoveLeft
	MoveRight
	MoveNone
)

// DefaultMove is played whenever nothing better is known.
const DefaultMove = MoveDown

// Moves lists the real moves in index order.
var Moves = [4]Move{MoveUp, MoveDown, MoveLeft, MoveRight}

var moveNames = [...]string{"up", "down", "left", "right", "none"}

func (m Move) String() string {
	if int(m) < len(moveNames) {
		return moveNames[m]
	}
	return fmt.Sprintf("move(%d)", uint8(m))
}

// MoveBetween returns the move that takes from to the adjacent point to.
// It returns MoveNone when the points are not neighbours.
func MoveBetween(from, to Point) Move {
	for _, m := range Moves {
		if from.Step(m) == to {
			return m
		}
	}
	return MoveNone
}
