package downloader

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brensch/squadsnek/game"
	"github.com/brensch/squadsnek/logging"
)

func frame(turn int, snakes ...SnakeData) FrameData {
	return FrameData{Turn: turn, Snakes: snakes, Food: []Coord{{5, 5}}}
}

func sd(id, squad string, health int, death *Death, xy ...int) SnakeData {
	s := SnakeData{ID: id, Name: id, Squad: squad, Health: health, Death: death}
	for i := 0; i+1 < len(xy); i += 2 {
		s.Body = append(s.Body, Coord{xy[i], xy[i+1]})
	}
	return s
}

func testFrames() []FrameData {
	return []FrameData{
		frame(0,
			sd("a", "blue", 100, nil, 1, 1, 1, 1, 1, 1),
			sd("x", "red", 100, nil, 9, 9, 9, 9, 9, 9),
		),
		frame(1,
			sd("a", "blue", 99, nil, 1, 2, 1, 1, 1, 1),
			sd("x", "red", 99, nil, 8, 9, 9, 9, 9, 9),
		),
		frame(2,
			sd("a", "blue", 98, nil, 2, 2, 1, 2, 1, 1),
			sd("x", "red", 0, &Death{Cause: "snake-collision", Turn: 2}, 7, 9, 8, 9, 9, 9),
		),
	}
}

// eventServer streams info, the frames and game_end for any game id.
func eventServer(t *testing.T, frames []FrameData) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		send := func(kind string, data any) {
			raw, _ := json.Marshal(data)
			if err := conn.WriteJSON(GameEvent{Type: kind, Data: raw}); err != nil {
				t.Errorf("write %s: %v", kind, err)
			}
		}
		id := strings.Split(strings.TrimPrefix(r.URL.Path, "/games/"), "/")[0]
		send("game_info", GameInfo{Game: GameDetails{ID: id, Width: 11, Height: 11}, Ruleset: RulesetInfo{Name: "squad"}})
		conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		for _, f := range frames {
			send("frame", f)
		}
		send("game_end", struct{}{})
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
}

func testConfig(srv *httptest.Server) Config {
	return Config{
		NumWorkers:     2,
		EngineURL:      "ws" + strings.TrimPrefix(srv.URL, "http") + "/games/%s/events",
		ConnectTimeout: time.Second,
		ReadTimeout:    time.Second,
	}
}

func TestDownloadGame(t *testing.T) {
	srv := eventServer(t, testFrames())
	defer srv.Close()

	g, err := DownloadGame(context.Background(), "g1", testConfig(srv))
	if err != nil {
		t.Fatalf("DownloadGame: %v", err)
	}
	if g.Info.Game.ID != "g1" || g.Info.Ruleset.Name != "squad" {
		t.Fatalf("info = %+v", g.Info)
	}
	if len(g.Frames) != 3 {
		t.Fatalf("frames = %d", len(g.Frames))
	}
	if g.Winner != "blue" {
		t.Fatalf("winner = %q", g.Winner)
	}
}

func TestDownloadGame_NoServer(t *testing.T) {
	srv := eventServer(t, nil)
	srv.Close()
	if _, err := DownloadGame(context.Background(), "g1", testConfig(srv)); err == nil {
		t.Fatalf("expected a dial error")
	}
}

func TestState(t *testing.T) {
	g := &Game{ID: "g", Info: GameInfo{Game: GameDetails{Width: 7, Height: 7}}, Frames: testFrames()}

	first := g.State(0)
	if first.Width != 7 || first.Height != 7 || len(first.Snakes) != 2 || first.Turn != 0 {
		t.Fatalf("state 0 = %+v", first)
	}
	if sq := first.Snake("a").Squad; sq != "blue" {
		t.Fatalf("squad = %q", sq)
	}
	if len(first.Food) != 1 || first.Food[0] != (game.Point{X: 5, Y: 5}) {
		t.Fatalf("food = %v", first.Food)
	}

	last := g.State(2)
	if len(last.Snakes) != 1 || last.Snakes[0].Id != "a" {
		t.Fatalf("dead snakes should be dropped: %+v", last.Snakes)
	}
}

func TestPlayedMove(t *testing.T) {
	g := &Game{Frames: testFrames()}
	cases := []struct {
		turn int
		id   string
		want game.Move
	}{
		{0, "a", game.MoveUp},
		{0, "x", game.MoveLeft},
		{1, "a", game.MoveRight},
		{1, "x", game.MoveLeft},
		{2, "a", game.MoveNone},
		{0, "ghost", game.MoveNone},
	}
	for _, tc := range cases {
		if got := g.PlayedMove(tc.turn, tc.id); got != tc.want {
			t.Errorf("turn %d %s: got %s, want %s", tc.turn, tc.id, got, tc.want)
		}
	}
}

func TestDetermineWinner(t *testing.T) {
	frames := testFrames()
	if w := determineWinner(&frames[0]); w != "draw" {
		t.Fatalf("two squads alive: %q", w)
	}
	solo := frame(5, sd("s", "", 10, nil, 0, 0))
	if w := determineWinner(&solo); w != "s" {
		t.Fatalf("squadless survivor: %q", w)
	}
	empty := frame(5, sd("s", "", 0, &Death{Cause: "starvation"}, 0, 0))
	if w := determineWinner(&empty); w != "draw" {
		t.Fatalf("nobody alive: %q", w)
	}
}

func TestWorker(t *testing.T) {
	srv := eventServer(t, testFrames())
	defer srv.Close()

	w := NewWorker(testConfig(srv), logging.Discard())
	ids := make(chan string, 3)
	ids <- "g1"
	ids <- "g2"
	ids <- "g3"
	close(ids)

	out := make(chan *Game, 3)
	w.Start(context.Background(), ids, out)

	seen := map[string]bool{}
	for g := range out {
		seen[g.ID] = true
	}
	if len(seen) != 3 {
		t.Fatalf("games = %v", seen)
	}
	if st := w.GetStats(); st.GamesDownloaded != 3 || st.FramesTotal != 9 || st.GamesFailed != 0 {
		t.Fatalf("stats = %+v", st)
	}
}
