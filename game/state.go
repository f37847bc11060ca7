// Package game defines the core game state types for squad Battlesnake.
//
// These types are the wire-independent snapshot shared by the referee rules,
// the search engine, the arena and the replay tools. The state is cheap to
// clone so callers can advance copies freely.
package game

// Point is a board coordinate.
// Coordinates follow Battlesnake conventions: (0,0) is bottom-left.
type Point struct {
	X int32
	Y int32
}

// Step returns the point one cell away in direction m. MoveNone returns p.
func (p Point) Step(m Move) Point {
	switch m {
	case MoveUp:
		return Point{X: p.X, Y: p.Y + 1}
	case MoveDown:
		return Point{X: p.X, Y: p.Y - 1}
	case MoveLeft:
		return Point{X: p.X - 1, Y: p.Y}
	case MoveRight:
		return Point{X: p.X + 1, Y: p.Y}
	case MoveNone:
		return p
	}
	panic("game: invalid move " + m.String())
}

// Neighbors returns the four orthogonal neighbours of p, in move order.
func (p Point) Neighbors() [4]Point {
	return [4]Point{p.Step(MoveUp), p.Step(MoveDown), p.Step(MoveLeft), p.Step(MoveRight)}
}

// InBounds reports whether p lies on a width x height board.
func (p Point) InBounds(width, height int32) bool {
	return p.X >= 0 && p.X < width && p.Y >= 0 && p.Y < height
}

type Snake struct {
	Id     string
	Squad  string
	Health int32
	Body   []Point
}

// Head returns the first body segment. The snake must have a body.
func (s *Snake) Head() Point { return s.Body[0] }

// GameState is the complete state needed for rules and search.
// YouId selects the ego snake, the one an API request was made for.
type GameState struct {
	Width  int32
	Height int32
	Snakes []Snake
	Food   []Point
	YouId  string
	Turn   int32
}

// Snake returns the snake with the given id, or nil.
func (s *GameState) Snake(id string) *Snake {
	for i := range s.Snakes {
		if s.Snakes[i].Id == id {
			return &s.Snakes[i]
		}
	}
	return nil
}

// SquadOf returns the ids of every snake sharing a squad with id, id first.
// A snake without a squad is alone in its own.
func (s *GameState) SquadOf(id string) []string {
	me := s.Snake(id)
	if me == nil {
		return []string{id}
	}
	out := []string{id}
	if me.Squad == "" {
		return out
	}
	for _, other := range s.Snakes {
		if other.Id != id && other.Squad == me.Squad {
			out = append(out, other.Id)
		}
	}
	return out
}

// Clone performs a deep copy of the game state.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}

	out := &GameState{
		Width:  s.Width,
		Height: s.Height,
		YouId:  s.YouId,
		Turn:   s.Turn,
	}

	if len(s.Food) > 0 {
		out.Food = make([]Point, len(s.Food))
		copy(out.Food, s.Food)
	}

	if len(s.Snakes) > 0 {
		out.Snakes = make([]Snake, len(s.Snakes))
		for i := range s.Snakes {
			out.Snakes[i] = Snake{Id: s.Snakes[i].Id, Squad: s.Snakes[i].Squad, Health: s.Snakes[i].Health}
			if len(s.Snakes[i].Body) > 0 {
				out.Snakes[i].Body = make([]Point, len(s.Snakes[i].Body))
				copy(out.Snakes[i].Body, s.Snakes[i].Body)
			}
		}
	}

	return out
}
