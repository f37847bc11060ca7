package minimax

import (
	"slices"
	"testing"

	"github.com/brensch/squadsnek/game"
)

func TestSafeMoves_NeverReversesOntoNeck(t *testing.T) {
	head := game.Point{X: 5, Y: 5}
	for _, neckDir := range game.Moves {
		t.Run(neckDir.String(), func(t *testing.T) {
			neck := head.Step(neckDir)
			s := &Snake{Health: 100, Body: []game.Point{head, neck, neck.Step(neckDir)}}
			b := newTestBoard(11, 11, nil, s, nil, nil, nil)

			moves := b.SafeMoves(0)
			if slices.Contains(moves, neckDir) {
				t.Fatalf("moves %v include the neck direction %s", moves, neckDir)
			}
			if len(moves) != 3 {
				t.Fatalf("got %v, want the three other directions", moves)
			}
		})
	}
}

func TestSafeMoves_Walls(t *testing.T) {
	b := newTestBoard(11, 11, nil, snake(100, 0, 0, 1, 0), nil, nil, nil)
	got := b.SafeMoves(0)
	if !slices.Equal(got, []game.Move{game.MoveUp}) {
		t.Fatalf("corner moves = %v, want [up]", got)
	}
}

func TestSafeMoves_OwnTail(t *testing.T) {
	// A ring of four: the head can chase its own tail.
	ring := snake(100, 1, 1, 1, 2, 2, 2, 2, 1)
	b := newTestBoard(5, 5, nil, ring, nil, nil, nil)
	if got := b.SafeMoves(0); !slices.Contains(got, game.MoveRight) {
		t.Fatalf("moves %v should allow the retracting tail at (2,1)", got)
	}

	// Just ate: the tail is stacked and stays.
	stacked := snake(100, 1, 1, 1, 2, 2, 2, 2, 1, 2, 1)
	b = newTestBoard(5, 5, nil, stacked, nil, nil, nil)
	if got := b.SafeMoves(0); slices.Contains(got, game.MoveRight) {
		t.Fatalf("moves %v should not allow a stacked tail", got)
	}
}

func TestSafeMoves_OtherTails(t *testing.T) {
	us := snake(100, 2, 2, 1, 2)
	cases := []struct {
		name  string
		other *Snake
		food  []game.Point
		want  bool
	}{
		{
			name:  "tail retracts",
			other: snake(100, 3, 4, 3, 3, 3, 2),
			want:  true,
		},
		{
			name:  "stacked tail",
			other: snake(100, 3, 4, 3, 3, 3, 2, 3, 2),
			want:  false,
		},
		{
			name:  "food next to its head",
			other: snake(100, 3, 4, 3, 3, 3, 2),
			food:  pts(4, 4),
			want:  false,
		},
		{
			name:  "body segment",
			other: snake(100, 3, 3, 3, 2, 3, 1),
			want:  false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := newTestBoard(7, 7, tc.food, us.clone(), nil, tc.other, nil)
			t.Logf("\n%s", b)
			got := slices.Contains(b.SafeMoves(0), game.MoveRight)
			if got != tc.want {
				t.Fatalf("right allowed = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSafeMoves_OpponentPly(t *testing.T) {
	// Team snake a has already moved to (2,2). The opponent may contest that
	// cell, but not a's tail, which no longer retracts this round.
	a := snake(100, 2, 2, 1, 2, 1, 3)
	x := snake(100, 3, 2, 4, 2, 5, 2)
	b := newTestBoard(7, 7, nil, a, nil, x, nil)
	t.Logf("\n%s", b)

	if got := b.SafeMoves(2); !slices.Contains(got, game.MoveLeft) {
		t.Fatalf("opponent moves %v should contest the team head", got)
	}
	if got := b.SafeMoves(0); slices.Contains(got, game.MoveRight) {
		t.Fatalf("team moves %v should not walk into the opponent head", got)
	}

	y := snake(100, 2, 3, 3, 3, 3, 4)
	b = newTestBoard(7, 7, nil, a.clone(), nil, nil, y)
	if got := b.SafeMoves(3); slices.Contains(got, game.MoveLeft) {
		t.Fatalf("opponent moves %v should not enter the team tail at (1,3)", got)
	}
}

func TestSafeMoves_EmptySlot(t *testing.T) {
	b := newTestBoard(7, 7, nil, nil, nil, nil, nil)
	if got := b.SafeMoves(0); got != nil {
		t.Fatalf("empty slot moves = %v", got)
	}
	if got := b.movesOrDefault(0); !slices.Equal(got, []game.Move{game.DefaultMove}) {
		t.Fatalf("fallback = %v", got)
	}
}
