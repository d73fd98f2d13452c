package game

import (
	"math/rand/v2"

	"github.com/l-t-m-f/XO-TicTacToe/internal/apperror"
)

// Board boundaries
const (
	BorderMin = 0 // First index of the board
	BorderMax = 2 // Last index of the board
)

// ParseMark maps a wire string to a mark; only "X", "O" and "" are valid.
func ParseMark(s string) (Mark, error) {
	switch s {
	case "X":
		return X, nil
	case "O":
		return O, nil
	case "":
		return Empty, nil
	}
	return Empty, apperror.ErrMalformedBoard
}

// Grid renders the board as rows of mark strings, rows outer, the shape the
// wire protocol and the store use.
func (b *Board) Grid() [][]string {
	grid := make([][]string, 3)
	for ri := range grid {
		grid[ri] = make([]string, 3)
		for ci := range grid[ri] {
			grid[ri][ci] = b.squares[ci][ri].String()
		}
	}
	return grid
}

// ParseGrid rebuilds a board from its Grid form.
func ParseGrid(grid [][]string) (*Board, error) {
	if len(grid) != 3 {
		return nil, apperror.ErrMalformedBoard
	}
	b := NewBoard()
	for ri, row := range grid {
		if len(row) != 3 {
			return nil, apperror.ErrMalformedBoard
		}
		for ci, s := range row {
			m, err := ParseMark(s)
			if err != nil {
				return nil, err
			}
			b.squares[ci][ri] = m
		}
	}
	return b, nil
}

// RandomFirstMark picks the side that opens a new game.
func RandomFirstMark() Mark {
	if rand.IntN(2) == 0 {
		return X
	}
	return O
}
