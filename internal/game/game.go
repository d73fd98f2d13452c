package game

import (
	"github.com/l-t-m-f/XO-TicTacToe/internal/apperror"
)

// Mark is the content of a single square: empty, or owned by one side.
// X is the human seat, O the computer seat.
type Mark uint8

const (
	Empty Mark = iota
	X
	O
)

// String returns the wire form of a mark: "X", "O", or "" for empty.
func (m Mark) String() string {
	switch m {
	case X:
		return "X"
	case O:
		return "O"
	default:
		return ""
	}
}

// Opponent returns the other side. Empty has no opponent and returns Empty.
func (m Mark) Opponent() Mark {
	switch m {
	case X:
		return O
	case O:
		return X
	default:
		return Empty
	}
}

// Cell addresses one square by column and row, both in 0..2.
type Cell struct {
	Col int
	Row int
}

// InRange reports whether the cell addresses one of the nine squares.
func (c Cell) InRange() bool {
	return c.Col >= BorderMin && c.Col <= BorderMax &&
		c.Row >= BorderMin && c.Row <= BorderMax
}

// Outcome classifies a board from X's point of view. The numeric values
// double as search scores: an X line is +1, an O line is -1, a full board
// with no line is 0. Ongoing marks a live position and is never a score.
type Outcome int

const (
	OutcomeLose Outcome = iota - 1
	OutcomeTie
	OutcomeWin
	OutcomeOngoing
)

// Score returns the leaf value of a terminal outcome.
func (o Outcome) Score() int { return int(o) }

// Terminal reports whether the outcome ends the game.
func (o Outcome) Terminal() bool { return o != OutcomeOngoing }

func (o Outcome) String() string {
	switch o {
	case OutcomeWin:
		return "win"
	case OutcomeLose:
		return "lose"
	case OutcomeTie:
		return "tie"
	default:
		return "ongoing"
	}
}

// Line is the three cells of a winning row, column or diagonal.
type Line [3]Cell

// lines holds the eight winning lines in check order: the three rows, the
// three columns, the main diagonal, then the anti-diagonal.
var lines = [8]Line{
	{{0, 0}, {1, 0}, {2, 0}},
	{{0, 1}, {1, 1}, {2, 1}},
	{{0, 2}, {1, 2}, {2, 2}},
	{{0, 0}, {0, 1}, {0, 2}},
	{{1, 0}, {1, 1}, {1, 2}},
	{{2, 0}, {2, 1}, {2, 2}},
	{{0, 0}, {1, 1}, {2, 2}},
	{{2, 0}, {1, 1}, {0, 2}},
}

// Lines returns the winning lines in check order.
func Lines() [8]Line { return lines }

// Board is the 3x3 grid of marks, indexed column first.
type Board struct {
	squares [3][3]Mark
}

// NewBoard returns an all-empty board.
func NewBoard() *Board {
	return &Board{}
}

// At returns the mark at c. The cell must be in range.
func (b *Board) At(c Cell) Mark {
	return b.squares[c.Col][c.Row]
}

// IsEmpty reports whether the square at c is empty. Out-of-range cells
// report false, so a move aimed at them is rejected like an occupied one.
func (b *Board) IsEmpty(c Cell) bool {
	return c.InRange() && b.squares[c.Col][c.Row] == Empty
}

// Place puts m on the square at c. Occupied squares and out-of-range cells
// leave the board untouched and return a sentinel error.
func (b *Board) Place(m Mark, c Cell) error {
	if !c.InRange() {
		return apperror.ErrCellOutOfRange
	}
	if b.squares[c.Col][c.Row] != Empty {
		return apperror.ErrCellOccupied
	}
	b.squares[c.Col][c.Row] = m
	return nil
}

// TryPlace is the reporting form of Place: true means the square was empty
// and the mark went down.
func (b *Board) TryPlace(m Mark, c Cell) bool {
	return b.Place(m, c) == nil
}

// IsFull reports whether no square is empty.
func (b *Board) IsFull() bool {
	for ci := range b.squares {
		for ri := range b.squares[ci] {
			if b.squares[ci][ri] == Empty {
				return false
			}
		}
	}
	return true
}

// WinningLine returns the first line fully owned by m, in check order.
func (b *Board) WinningLine(m Mark) (Line, bool) {
	if m == Empty {
		return Line{}, false
	}
	for _, ln := range lines {
		if b.At(ln[0]) == m && b.At(ln[1]) == m && b.At(ln[2]) == m {
			return ln, true
		}
	}
	return Line{}, false
}

// HasLine reports whether m owns a full row, column or diagonal.
func (b *Board) HasLine(m Mark) bool {
	_, ok := b.WinningLine(m)
	return ok
}

// Winner returns the mark that owns a line, checking X before O.
func (b *Board) Winner() (Mark, bool) {
	if b.HasLine(X) {
		return X, true
	}
	if b.HasLine(O) {
		return O, true
	}
	return Empty, false
}

// Classify reduces the board to an outcome. X is checked before O, so on a
// board where both somehow own a line the X result wins. A full board with
// no line is a tie; anything else is ongoing.
func (b *Board) Classify() Outcome {
	if b.HasLine(X) {
		return OutcomeWin
	}
	if b.HasLine(O) {
		return OutcomeLose
	}
	if b.IsFull() {
		return OutcomeTie
	}
	return OutcomeOngoing
}

// Empties returns the empty cells in column-major order: col 0..2 outer,
// row 0..2 inner.
func (b *Board) Empties() []Cell {
	cells := make([]Cell, 0, 9)
	for ci := range b.squares {
		for ri := range b.squares[ci] {
			if b.squares[ci][ri] == Empty {
				cells = append(cells, Cell{Col: ci, Row: ri})
			}
		}
	}
	return cells
}
