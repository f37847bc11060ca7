// Package discovery crawls Battlesnake leaderboards for game ids: every
// player listed on a leaderboard, then the games linked from that player's
// stats page.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Config holds discovery worker configuration
type Config struct {
	LeaderboardURLs []string      // Leaderboards to crawl, absolute URLs
	RequestDelay    time.Duration // Delay between HTTP requests to be polite
	MaxPlayers      int           // Maximum players to check per leaderboard (0 = unlimited)
	UserAgent       string
}

func DefaultConfig() Config {
	return Config{
		LeaderboardURLs: []string{
			"https://play.battlesnake.com/leaderboard/standard",
			"https://play.battlesnake.com/leaderboard/standard-duels",
		},
		RequestDelay: 500 * time.Millisecond,
		MaxPlayers:   100,
		UserAgent:    "squadsnek-replay/1.0",
	}
}

var (
	gameIDRe = regexp.MustCompile(`/game/([a-f0-9-]+)`)
	// /leaderboard/{arena}/{username}/stats
	playerRe = regexp.MustCompile(`/leaderboard/[^/]+/([^/]+)/stats`)
	arenaRe  = regexp.MustCompile(`/leaderboard/([^/]+)/?$`)
)

// Worker discovers game ids not seen before.
type Worker struct {
	config Config
	client *http.Client
	logger *slog.Logger

	knownMu  sync.Mutex
	knownIDs map[string]bool
}

func NewWorker(config Config, existingIDs map[string]bool, logger *slog.Logger) *Worker {
	if existingIDs == nil {
		existingIDs = make(map[string]bool)
	}
	return &Worker{
		config:   config,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
		knownIDs: existingIDs,
	}
}

type player struct {
	username string
	statsURL string
}

// Discover sends every new game id to out and returns when all leaderboards
// are crawled or ctx is done. Failures on one page are logged and skipped.
func (w *Worker) Discover(ctx context.Context, out chan<- string) error {
	total := 0
	for _, leaderboardURL := range w.config.LeaderboardURLs {
		players, arena, err := w.leaderboardPlayers(ctx, leaderboardURL)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Warn("leaderboard failed", "url", leaderboardURL, "err", err)
			continue
		}
		if w.config.MaxPlayers > 0 && len(players) > w.config.MaxPlayers {
			players = players[:w.config.MaxPlayers]
		}
		w.logger.Info("leaderboard players", "arena", arena, "players", len(players))

		found := 0
		for i, p := range players {
			ids, err := w.playerGames(ctx, p.statsURL)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.logger.Warn("player games failed", "player", p.username, "err", err)
				continue
			}
			for _, id := range ids {
				if !w.markKnown(id) {
					continue
				}
				select {
				case out <- id:
					found++
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			w.logger.Debug("player checked", "arena", arena, "player", p.username, "n", i+1, "of", len(players))

			if w.config.RequestDelay > 0 {
				select {
				case <-time.After(w.config.RequestDelay):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
		w.logger.Info("leaderboard done", "arena", arena, "new_games", found)
		total += found
	}
	w.logger.Info("discovery complete", "new_games", total)
	return nil
}

// markKnown records id and reports whether it was new.
func (w *Worker) markKnown(id string) bool {
	w.knownMu.Lock()
	defer w.knownMu.Unlock()
	if w.knownIDs[id] {
		return false
	}
	w.knownIDs[id] = true
	return true
}

func (w *Worker) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	if w.config.UserAgent != "" {
		req.Header.Set("User-Agent", w.config.UserAgent)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", pageURL, resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	return doc, nil
}

func (w *Worker) leaderboardPlayers(ctx context.Context, leaderboardURL string) ([]player, string, error) {
	base, err := url.Parse(leaderboardURL)
	if err != nil {
		return nil, "", fmt.Errorf("parse leaderboard url: %w", err)
	}
	doc, err := w.fetch(ctx, leaderboardURL)
	if err != nil {
		return nil, "", err
	}

	arena := "unknown"
	if m := arenaRe.FindStringSubmatch(base.Path); len(m) >= 2 {
		arena = m[1]
	}

	var players []player
	seen := make(map[string]bool)
	doc.Find("a[href*='/leaderboard/']").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		m := playerRe.FindStringSubmatch(href)
		if len(m) < 2 || seen[m[1]] {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		seen[m[1]] = true
		players = append(players, player{username: m[1], statsURL: base.ResolveReference(ref).String()})
	})
	return players, arena, nil
}

// ParseGameIDs returns the distinct game ids linked from a page, in page order.
func ParseGameIDs(doc *goquery.Document) []string {
	var ids []string
	seen := make(map[string]bool)
	doc.Find("a[href*='/game/']").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		m := gameIDRe.FindStringSubmatch(href)
		if len(m) >= 2 && !seen[m[1]] {
			seen[m[1]] = true
			ids = append(ids, m[1])
		}
	})
	return ids
}

func (w *Worker) playerGames(ctx context.Context, statsURL string) ([]string, error) {
	doc, err := w.fetch(ctx, statsURL)
	if err != nil {
		return nil, err
	}
	return ParseGameIDs(doc), nil
}
