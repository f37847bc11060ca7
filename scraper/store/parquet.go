// Package store writes the arena and replay archives as zstd Parquet files
// and keeps the append-only log of games already archived.
package store

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/brensch/squadsnek/game"
)

// Schema tags stored in each file's key/value metadata.
const (
	ArchiveSchema = "squad_archive_turn_v1"
	ReplaySchema  = "squad_replay_v1"
)

// NoMove marks a move that is unknown or not applicable.
const NoMove int32 = -1

// MoveCode is the archived form of m.
func MoveCode(m game.Move) int32 {
	if m > game.MoveRight {
		return NoMove
	}
	return int32(m)
}

// ArchiveTurnRow is one (game, turn) snapshot of an arena game: the board as
// it was before the turn's moves, with what every snake then chose.
type ArchiveTurnRow struct {
	GameID string `parquet:"game_id,dict"`
	Turn   int32  `parquet:"turn"`
	Width  int32  `parquet:"width"`
	Height int32  `parquet:"height"`

	FoodX []int32 `parquet:"food_x"`
	FoodY []int32 `parquet:"food_y"`

	Snakes []ArchiveSnake `parquet:"snakes"`

	Source string `parquet:"source,dict"`
	// Winner is the winning squad, set on every row once the game is over.
	// Empty for a draw.
	Winner string `parquet:"winner,dict"`
}

type ArchiveSnake struct {
	ID     string `parquet:"id,dict"`
	Squad  string `parquet:"squad,dict"`
	Alive  bool   `parquet:"alive"`
	Health int32  `parquet:"health"`

	BodyX []int32 `parquet:"body_x"`
	BodyY []int32 `parquet:"body_y"`

	// Policy names what controlled the snake, e.g. "minimax" or "random".
	Policy string `parquet:"policy,dict"`
	// Move is 0=Up, 1=Down, 2=Left, 3=Right, or NoMove.
	Move  int32 `parquet:"move"`
	Score int64 `parquet:"score"`
	Depth int32 `parquet:"depth"`
	Nodes int64 `parquet:"nodes"`
}

// ReplayRow compares the move a snake actually played in a downloaded game
// with the move the engine picks from the same position.
type ReplayRow struct {
	GameID     string `parquet:"game_id,dict"`
	Turn       int32  `parquet:"turn"`
	SnakeID    string `parquet:"snake_id,dict"`
	Squad      string `parquet:"squad,dict"`
	PlayedMove int32  `parquet:"played_move"`
	EngineMove int32  `parquet:"engine_move"`
	Agree      bool   `parquet:"agree"`
	Score      int64  `parquet:"score"`
	Depth      int32  `parquet:"depth"`
	Nodes      int64  `parquet:"nodes"`
	ElapsedUS  int64  `parquet:"elapsed_us"`
}

// Points splits points into the parallel x/y columns the archive uses.
func Points(points []game.Point) (xs, ys []int32) {
	if len(points) == 0 {
		return nil, nil
	}
	xs = make([]int32, len(points))
	ys = make([]int32, len(points))
	for i, p := range points {
		xs[i], ys[i] = p.X, p.Y
	}
	return xs, ys
}

// ToPoints is the inverse of Points.
func ToPoints(xs, ys []int32) []game.Point {
	n := min(len(xs), len(ys))
	if n == 0 {
		return nil
	}
	out := make([]game.Point, n)
	for i := range out {
		out[i] = game.Point{X: xs[i], Y: ys[i]}
	}
	return out
}

func writerOptions(schema string) []parquet.WriterOption {
	return []parquet.WriterOption{
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", schema),
	}
}

// ReadFile loads every row of a Parquet file written by this package.
func ReadFile[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := parquet.NewGenericReader[T](f)
	defer reader.Close()

	out := make([]T, 0, int(reader.NumRows()))
	for {
		// Fresh buffer each time: rows hold slices the reader may reuse.
		buf := make([]T, 256)
		n, err := reader.Read(buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet %s: %w", path, err)
		}
	}
}

// FileSchema returns the schema tag a file was written with.
func FileSchema(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return "", err
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return "", fmt.Errorf("open parquet %s: %w", path, err)
	}
	schema, ok := pf.Lookup("schema")
	if !ok {
		return "", fmt.Errorf("%s has no schema tag", path)
	}
	return schema, nil
}
