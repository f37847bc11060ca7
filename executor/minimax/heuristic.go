package minimax

import (
	"math"
	"sort"

	"github.com/brensch/squadsnek/game"
)

// Sentinel scores. They mean the game is decided and pass through the search
// untouched.
const (
	LossScore = math.MinInt32
	WinScore  = math.MaxInt32
)

// Heuristic weights.
const (
	LowHealth    = 20
	healthWeight = 1
	lengthWeight = 8
	deathWeight  = 20
	spaceWeight  = 1
	dangerWeight = 4
)

// IsSentinel reports whether v is a decided score.
func IsSentinel(v int) bool { return v == LossScore || v == WinScore }

type memoEntry struct {
	material int
	full     int
	hasFull  bool
}

// Evaluator scores boards from the team's point of view and memoizes by
// board hash. It belongs to a single search and is not safe for concurrent
// use.
type Evaluator struct {
	memo  map[uint64]memoEntry
	Hits  int
	Calls int
}

func NewEvaluator() *Evaluator {
	return &Evaluator{memo: make(map[uint64]memoEntry, 1024)}
}

// Evaluate returns the material term, plus the reachability term when full is
// set and the material term is not already decided.
func (e *Evaluator) Evaluate(b *Board, full bool) int {
	e.Calls++
	key := b.Hash()
	entry, ok := e.memo[key]
	if ok && (!full || entry.hasFull || IsSentinel(entry.material)) {
		e.Hits++
	} else if !ok {
		entry.material = material(b)
	}
	if IsSentinel(entry.material) {
		e.memo[key] = entry
		return entry.material
	}
	if full && !entry.hasFull {
		entry.full = entry.material + reachabilityScore(b)
		entry.hasFull = true
	}
	e.memo[key] = entry
	if full {
		return entry.full
	}
	return entry.material
}

// Material is the cheap term alone: length, low health and deaths, or a
// sentinel when one side has no snakes left.
func (e *Evaluator) Material(b *Board) int { return e.Evaluate(b, false) }

func material(b *Board) int {
	var health, length, deaths int
	alive := 0
	for _, slot := range b.Team {
		s := b.Snakes[slot]
		if s == nil {
			deaths--
			continue
		}
		alive++
		length += s.Len()
		if s.Health < LowHealth {
			health -= LowHealth - int(s.Health)
		}
	}
	if alive == 0 {
		return LossScore
	}
	alive = 0
	for _, slot := range b.Opps {
		s := b.Snakes[slot]
		if s == nil {
			deaths++
			continue
		}
		alive++
		length -= s.Len()
		if s.Health < LowHealth {
			health += LowHealth - int(s.Health)
		}
	}
	if alive == 0 {
		return WinScore
	}
	return health*healthWeight + length*lengthWeight + deaths*deathWeight
}

func reachabilityScore(b *Board) int {
	claims := Reachability(b)
	var space, danger int
	score := func(slots [2]int, sign int) {
		for _, slot := range slots {
			s := b.Snakes[slot]
			if s == nil {
				continue
			}
			n := len(claims[slot])
			space += sign * n
			if n < s.Len() {
				danger -= sign * (s.Len() - n)
			}
		}
	}
	score(b.Team, 1)
	score(b.Opps, -1)
	return space*spaceWeight + danger*dangerWeight
}

type floodItem struct {
	slot int
	p    game.Point
}

// Reachability runs one breadth-first fill from every live head at once and
// returns the cells each slot claims. Shorter snakes are seeded first so they
// win ties. Body segments other than heads block the fill.
func Reachability(b *Board) map[int][]game.Point {
	width, height := int(b.Width), int(b.Height)
	blocked := make([]bool, width*height)
	idx := func(p game.Point) int { return int(p.Y)*width + int(p.X) }

	var seeds []floodItem
	for slot, s := range b.Snakes {
		if s == nil {
			continue
		}
		seeds = append(seeds, floodItem{slot: slot, p: s.Head()})
		for _, p := range s.Body[1:] {
			if b.inBounds(p) {
				blocked[idx(p)] = true
			}
		}
	}
	sort.SliceStable(seeds, func(i, j int) bool {
		return b.Snakes[seeds[i].slot].Len() < b.Snakes[seeds[j].slot].Len()
	})

	claims := make(map[int][]game.Point, len(seeds))
	for _, s := range seeds {
		claims[s.slot] = nil
	}

	visited := make([]bool, width*height)
	queue := seeds
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		if !b.inBounds(it.p) {
			continue
		}
		i := idx(it.p)
		if visited[i] || (blocked[i] && !isHead(b, it)) {
			continue
		}
		visited[i] = true
		claims[it.slot] = append(claims[it.slot], it.p)
		for _, n := range it.p.Neighbors() {
			if b.inBounds(n) && !visited[idx(n)] && !blocked[idx(n)] {
				queue = append(queue, floodItem{slot: it.slot, p: n})
			}
		}
	}
	return claims
}

func isHead(b *Board, it floodItem) bool {
	return b.Snakes[it.slot].Head() == it.p
}
