// visualize.go - text boards for tracing arena games.

package selfplay

import (
	"fmt"
	"sort"
	"strings"

	"github.com/brensch/squadsnek/game"
)

// Render draws state top row first. Snakes get letters in id order, upper
// case for the head; food is F. A legend line per snake follows the grid.
func Render(state *game.GameState) string {
	grid := make([][]byte, state.Height)
	for y := range grid {
		grid[y] = []byte(strings.Repeat(".", int(state.Width)))
	}
	put := func(p game.Point, c byte) {
		if p.InBounds(state.Width, state.Height) {
			grid[p.Y][p.X] = c
		}
	}
	for _, f := range state.Food {
		put(f, 'F')
	}

	snakes := make([]game.Snake, len(state.Snakes))
	copy(snakes, state.Snakes)
	sort.Slice(snakes, func(i, j int) bool { return snakes[i].Id < snakes[j].Id })

	var legend strings.Builder
	for i, s := range snakes {
		body := byte('a' + i%26)
		for j := len(s.Body) - 1; j >= 0; j-- {
			c := body
			if j == 0 {
				c = body - 'a' + 'A'
			}
			put(s.Body[j], c)
		}
		fmt.Fprintf(&legend, "%c %s squad=%s health=%d len=%d\n", body-'a'+'A', s.Id, s.Squad, s.Health, len(s.Body))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "turn %d\n", state.Turn)
	for y := state.Height - 1; y >= 0; y-- {
		for x := range grid[y] {
			sb.WriteByte(grid[y][x])
			sb.WriteByte(' ')
		}
		sb.WriteByte('\n')
	}
	sb.WriteString(legend.String())
	return sb.String()
}
