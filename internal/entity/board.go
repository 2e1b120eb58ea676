package entity

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
)

const (
	EmptyCell = ""

	// WinnerTie is the sentinel reported when the board fills with no line won.
	WinnerTie = "TIE"

	// BotName is the display name of the synthetic opponent.
	BotName = "BOT"
)

var WinCombos = [][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Board is the 3x3 grid; cells hold the mark of the player occupying them.
type Board [9]string

// Place - puts a mark at the given cell.
func (that *Board) Place(cell int, mark string) error {
	if cell < 0 || cell >= len(that) {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, cell)
	}

	if that[cell] != EmptyCell {
		return apperror.ErrCellOccupied
	}

	that[cell] = mark

	return nil
}

// Winner - evaluates all 8 lines. Returns the winning mark, WinnerTie when
// the board is full with no line won, or EmptyCell while undecided.
func (that *Board) Winner() string {
	for _, combo := range WinCombos {
		a, b, c := that[combo[0]], that[combo[1]], that[combo[2]]
		if a != EmptyCell && a == b && b == c {
			return a
		}
	}

	for _, cell := range that {
		if cell == EmptyCell {
			return EmptyCell
		}
	}

	return WinnerTie
}

// EmptyCells - indices of all unoccupied cells, in board order.
func (that *Board) EmptyCells() []int {
	cells := make([]int, 0, len(that))
	for i, cell := range that {
		if cell == EmptyCell {
			cells = append(cells, i)
		}
	}

	return cells
}

// Clear - resets every cell.
func (that *Board) Clear() {
	for i := range that {
		that[i] = EmptyCell
	}
}
