// food.go implements food spawning for arena games.

package game

import (
	"math/rand"
)

// FoodSettings controls food spawning behaviour.
type FoodSettings struct {
	MinimumFood     int // Guaranteed minimum on board at all times
	FoodSpawnChance int // Percentage chance (0-100) to spawn extra food each turn
}

// DefaultFoodSettings matches standard Battlesnake rules (1 minimum, 15% chance each turn).
var DefaultFoodSettings = FoodSettings{MinimumFood: 1, FoodSpawnChance: 15}

func (s *GameState) occupied() map[Point]bool {
	occupied := make(map[Point]bool, len(s.Food)+4*len(s.Snakes))
	for _, sn := range s.Snakes {
		for _, p := range sn.Body {
			occupied[p] = true
		}
	}
	for _, f := range s.Food {
		occupied[f] = true
	}
	return occupied
}

// spawnFood places one food on a free cell. It returns false when the board is full.
func (s *GameState) spawnFood(occupied map[Point]bool, pick func(n int) int) bool {
	free := make([]Point, 0, int(s.Width*s.Height)-len(occupied))
	for y := int32(0); y < s.Height; y++ {
		for x := int32(0); x < s.Width; x++ {
			p := Point{X: x, Y: y}
			if !occupied[p] {
				free = append(free, p)
			}
		}
	}
	if len(free) == 0 {
		return false
	}
	p := free[pick(len(free))]
	s.Food = append(s.Food, p)
	occupied[p] = true
	return true
}

// ApplyFoodSettings spawns food after a state transition.
// If rng is nil a deterministic hash of the turn is used instead.
func ApplyFoodSettings(state *GameState, rng *rand.Rand, settings FoodSettings) {
	const salt = 0xDEADBEEF
	occupied := state.occupied()

	draw := func(n int, mix uint64) int {
		if rng != nil {
			return rng.Intn(n)
		}
		return int(deterministicU64Fast(uint64(state.Turn), salt^mix) % uint64(n))
	}

	for len(state.Food) < settings.MinimumFood {
		if !state.spawnFood(occupied, func(n int) int { return draw(n, uint64(len(state.Food))) }) {
			break
		}
	}

	if settings.FoodSpawnChance > 0 && draw(100, 0xF00D) < settings.FoodSpawnChance {
		state.spawnFood(occupied, func(n int) int { return draw(n, 0xBEEF) })
	}
}

// deterministicU64Fast is a splitmix64 style hasher for reproducibility.
func deterministicU64Fast(a, b uint64) uint64 {
	x := a + b
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
