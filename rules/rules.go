// Package rules is the referee: it advances complete game states for every
// snake at once using standard Battlesnake rules, with squads as teams.
//
// The search engine carries its own compact simulation; this package is the
// ground truth the arena plays by and the engine is checked against.
package rules

import (
	"github.com/brensch/squadsnek/game"
)

// GetLegalMoves returns the moves that keep snake id on the board and off
// every body segment, including tails. The neck is excluded explicitly.
func GetLegalMoves(state *game.GameState, id string) []game.Move {
	you := state.Snake(id)
	if you == nil || you.Health <= 0 || len(you.Body) == 0 {
		return nil
	}

	head := you.Head()
	moves := make([]game.Move, 0, 4)
	for _, m := range game.Moves {
		if isSafe(state, head.Step(m), you.Body) {
			moves = append(moves, m)
		}
	}
	return moves
}

func isSafe(state *game.GameState, p game.Point, myBody []game.Point) bool {
	// 1. Bounds
	if !p.InBounds(state.Width, state.Height) {
		return false
	}

	// 2. Collisions with snakes. Conservative: tails count as occupied.
	for _, s := range state.Snakes {
		for _, bp := range s.Body {
			if p == bp {
				return false
			}
		}
	}

	// 3. Neck check, in case body logic above is relaxed.
	if len(myBody) > 1 && p == myBody[1] {
		return false
	}

	return true
}

// NextStateSimultaneous advances the game state with one move per snake.
// Snakes missing from moves play game.DefaultMove.
func NextStateSimultaneous(state *game.GameState, moves map[string]game.Move) *game.GameState {
	newState := state.Clone()
	newState.Turn++

	// 1. New heads
	newHeads := make(map[string]game.Point, len(newState.Snakes))
	for _, s := range newState.Snakes {
		if s.Health <= 0 || len(s.Body) == 0 {
			continue
		}
		move, ok := moves[s.Id]
		if !ok {
			move = game.DefaultMove
		}
		newHeads[s.Id] = s.Head().Step(move)
	}

	// 2. Food
	snakeAte := make(map[string]bool)
	remainingFood := newState.Food[:0:0]
	for _, f := range newState.Food {
		eaten := false
		for id, head := range newHeads {
			if head == f {
				eaten = true
				snakeAte[id] = true
			}
		}
		if !eaten {
			remainingFood = append(remainingFood, f)
		}
	}
	newState.Food = remainingFood

	// 3. Bodies
	for i := range newState.Snakes {
		s := &newState.Snakes[i]
		newHead, ok := newHeads[s.Id]
		if !ok {
			continue
		}
		// Normal move first (tail advances), then growth duplicates the new tail.
		newBody := make([]game.Point, 0, len(s.Body)+1)
		newBody = append(newBody, newHead)
		newBody = append(newBody, s.Body[:len(s.Body)-1]...)
		if snakeAte[s.Id] {
			s.Health = 100
			newBody = append(newBody, newBody[len(newBody)-1])
		} else {
			s.Health--
		}
		s.Body = newBody
	}

	// 4. Eliminations, all judged on the post-move snapshot.
	dead := make(map[string]bool)
	for _, s := range newState.Snakes {
		if _, moved := newHeads[s.Id]; !moved {
			continue
		}
		head := s.Head()
		if s.Health <= 0 || !head.InBounds(newState.Width, newState.Height) {
			dead[s.Id] = true
			continue
		}
		for _, other := range newState.Snakes {
			if _, moved := newHeads[other.Id]; !moved {
				continue
			}
			for i, p := range other.Body {
				if p != head {
					continue
				}
				if i > 0 {
					dead[s.Id] = true
				} else if other.Id != s.Id && len(other.Body) >= len(s.Body) {
					dead[s.Id] = true
				}
			}
		}
	}

	finalSnakes := make([]game.Snake, 0, len(newState.Snakes))
	for _, s := range newState.Snakes {
		if dead[s.Id] || s.Health <= 0 {
			continue
		}
		finalSnakes = append(finalSnakes, s)
	}
	newState.Snakes = finalSnakes

	return newState
}

// squadKey groups snakes for win detection: the squad name, or the id when unset.
func squadKey(s game.Snake) string {
	if s.Squad != "" {
		return s.Squad
	}
	return s.Id
}

// IsGameOver returns true when at most one squad has snakes left.
func IsGameOver(state *game.GameState) bool {
	squads := make(map[string]bool)
	for _, s := range state.Snakes {
		if s.Health > 0 {
			squads[squadKey(s)] = true
		}
	}
	return len(squads) <= 1
}

// Winner returns the squad with snakes left on a finished board, or "" for a
// draw or an unfinished game.
func Winner(state *game.GameState) string {
	if !IsGameOver(state) {
		return ""
	}
	for _, s := range state.Snakes {
		if s.Health > 0 {
			return squadKey(s)
		}
	}
	return ""
}
