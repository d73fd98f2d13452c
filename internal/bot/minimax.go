package bot

import (
	"math"

	"github.com/l-t-m-f/XO-TicTacToe/internal/game"
)

// Response carries the result of one search: the backed-up score of the
// position and the move that achieves it. HasMove is false only for
// terminal positions, which still score but have nothing left to play.
type Response struct {
	Score   int
	Move    game.Cell
	HasMove bool
}

// arenaSlabSize is the number of board snapshots per slab. A full search
// from an empty board visits about 550k positions, so the arena grows to a
// few hundred slabs and then every later search inside the same call tree
// reuses them.
const arenaSlabSize = 4096

// arena bump-allocates the board snapshots one search explores. It is
// created when a top-level search starts, grows by whole slabs on demand,
// and is dropped wholesale when the search returns. Snapshots never
// outlive the search that made them, and the arena is never shared between
// searches.
type arena struct {
	slabs [][]game.Board
	slab  int
	used  int
}

func newArena() *arena {
	return &arena{slabs: [][]game.Board{make([]game.Board, arenaSlabSize)}}
}

// alloc hands out the next snapshot slot. Slots come back dirty after a
// release, so callers overwrite the whole board before use.
func (a *arena) alloc() *game.Board {
	if a.used == arenaSlabSize {
		a.slab++
		a.used = 0
		if a.slab == len(a.slabs) {
			a.slabs = append(a.slabs, make([]game.Board, arenaSlabSize))
		}
	}
	b := &a.slabs[a.slab][a.used]
	a.used++
	return b
}

// release returns every slot at once, keeping the slabs for reuse.
func (a *arena) release() {
	a.slab = 0
	a.used = 0
}

// Search finds the strongest move for side on b by exhaustive minimax.
//
// Scores are always from X's point of view: +1 when X ends with a line, -1
// when O does, 0 for a tie. X picks the child with the highest score, O
// the one with the lowest, and on equal scores the first candidate in
// column-major order (col 0..2 outer, row 0..2 inner) stays. A move that
// completes a line for side right now is taken before the tree is
// expanded, so a search never passes up an immediate win for a slower one.
// Terminal boards come back with their score and no move.
//
// b is read, never written; every hypothetical position lives in a scratch
// arena owned by this call and freed before it returns.
func Search(b *game.Board, side game.Mark) Response {
	if outcome := b.Classify(); outcome.Terminal() {
		return Response{Score: outcome.Score()}
	}

	if cell, ok := findWinningCell(b, side); ok {
		score := game.OutcomeWin.Score()
		if side == game.O {
			score = game.OutcomeLose.Score()
		}
		return Response{Score: score, Move: cell, HasMove: true}
	}

	scratch := newArena()
	defer scratch.release()
	return minimax(scratch, b, side)
}

// minimax expands every empty square with no pruning and backs up the best
// child for the side to move.
func minimax(scratch *arena, b *game.Board, side game.Mark) Response {
	if outcome := b.Classify(); outcome.Terminal() {
		return Response{Score: outcome.Score()}
	}

	best := Response{Score: math.MinInt}
	if side == game.O {
		best.Score = math.MaxInt
	}

	for ci := game.BorderMin; ci <= game.BorderMax; ci++ {
		for ri := game.BorderMin; ri <= game.BorderMax; ri++ {
			cell := game.Cell{Col: ci, Row: ri}
			if !b.IsEmpty(cell) {
				continue
			}

			child := scratch.alloc()
			*child = *b
			_ = child.Place(side, cell)
			reply := minimax(scratch, child, side.Opponent())

			if side == game.X && reply.Score > best.Score {
				best = Response{Score: reply.Score, Move: cell, HasMove: true}
			}
			if side == game.O && reply.Score < best.Score {
				best = Response{Score: reply.Score, Move: cell, HasMove: true}
			}
		}
	}
	return best
}

// findWinningCell returns the empty cell that would complete a line for
// mark this turn, scanning lines in check order.
func findWinningCell(b *game.Board, mark game.Mark) (game.Cell, bool) {
	for _, ln := range game.Lines() {
		var gap game.Cell
		mine, empties := 0, 0
		for _, c := range ln {
			switch b.At(c) {
			case mark:
				mine++
			case game.Empty:
				empties++
				gap = c
			}
		}
		if mine == 2 && empties == 1 {
			return gap, true
		}
	}
	return game.Cell{}, false
}
