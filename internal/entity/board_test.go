package entity

import (
	"testing"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoard_Winner(t *testing.T) {
	t.Run("Every winning line is detected", func(t *testing.T) {
		// Given: each of the 8 lines filled by one mark on an otherwise
		// empty board
		for _, combo := range WinCombos {
			var board Board
			for _, cell := range combo {
				board[cell] = "Smith"
			}

			// Then: that mark is reported as the winner
			require.Equal(t, "Smith", board.Winner(), "combo %v", combo)
		}
	})

	t.Run("Full board with no line is a tie", func(t *testing.T) {
		// Given: a drawn board
		board := Board{
			"X", "O", "X",
			"X", "O", "O",
			"O", "X", "X",
		}

		require.Equal(t, WinnerTie, board.Winner())
	})

	t.Run("Anything else is undecided", func(t *testing.T) {
		var empty Board
		assert.Equal(t, EmptyCell, empty.Winner())

		partial := Board{"X", "O", "", "", "X", "", "", "", ""}
		assert.Equal(t, EmptyCell, partial.Winner())
	})
}

func TestBoard_Place(t *testing.T) {
	t.Run("Mark lands on an empty cell", func(t *testing.T) {
		var board Board

		require.NoError(t, board.Place(4, "Smith"))
		assert.Equal(t, "Smith", board[4])
	})

	t.Run("Occupied cell is rejected", func(t *testing.T) {
		var board Board
		require.NoError(t, board.Place(4, "Smith"))

		// When: the opponent hits the same cell
		err := board.Place(4, "Johnson")

		// Then: the move is rejected and the board unchanged
		require.ErrorIs(t, err, apperror.ErrCellOccupied)
		assert.Equal(t, "Smith", board[4])
	})

	t.Run("Out of range cells are rejected", func(t *testing.T) {
		var board Board

		assert.ErrorIs(t, board.Place(9, "Smith"), apperror.ErrInvalidCell)
		assert.ErrorIs(t, board.Place(-1, "Smith"), apperror.ErrInvalidCell)
	})
}

func TestBoard_EmptyCells(t *testing.T) {
	// Given: a board with exactly two holes
	board := Board{
		"X", "O", "X",
		"X", "", "O",
		"O", "X", "",
	}

	// Then: only those holes are reported, in board order
	assert.Equal(t, []int{4, 8}, board.EmptyCells())

	board.Clear()
	assert.Len(t, board.EmptyCells(), 9)
}
