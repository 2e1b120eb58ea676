package repository

import (
	"testing"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/testing/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveRepository_SaveResult(t *testing.T) {
	ctx, st := suite.New(t)

	archive := NewArchiveRepository(st.Storage)

	// Given: a finished game with a winner
	result := &entity.GameResult{
		ID:         "123",
		Players:    []string{"Smith", "Johnson"},
		Winner:     "Smith",
		FinishedAt: time.Now().UTC().Truncate(time.Second),
	}

	// When: the result is archived
	err := archive.SaveResult(ctx, result)

	// Then: it can be read back intact and the winner's counter moved
	require.NoError(t, err)

	stored, err := archive.GetByID(ctx, result.ID)
	require.NoError(t, err)
	require.Equal(t, result, stored)

	wins, err := archive.WinsByPlayer(ctx, "Smith")
	require.NoError(t, err)
	assert.Equal(t, int64(1), wins)
}

func TestArchiveRepository_GetByID_NotFound(t *testing.T) {
	ctx, st := suite.New(t)

	archive := NewArchiveRepository(st.Storage)

	// When: an unknown id is requested
	_, err := archive.GetByID(ctx, "9999999")

	// Then: the dedicated sentinel comes back
	require.ErrorIs(t, err, ErrResultNotFound)
}

func TestArchiveRepository_Ties(t *testing.T) {
	ctx, st := suite.New(t)

	archive := NewArchiveRepository(st.Storage)

	// Given: a drawn game
	result := &entity.GameResult{
		ID:         "456",
		Players:    []string{"Smith", entity.BotName},
		Winner:     entity.WinnerTie,
		FinishedAt: time.Now().UTC().Truncate(time.Second),
	}

	// When: the tie is archived
	require.NoError(t, archive.SaveResult(ctx, result))

	// Then: no win counter moves
	wins, err := archive.WinsByPlayer(ctx, entity.WinnerTie)
	require.NoError(t, err)
	assert.Zero(t, wins)

	wins, err = archive.WinsByPlayer(ctx, "Smith")
	require.NoError(t, err)
	assert.Zero(t, wins)
}
