package engine

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/protocol"
	"github.com/rocketscienceinc/tictactoe-arena/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startEngine wires an engine to a pipe and returns the gateway side of
// the conversation, with the handshake already acknowledged.
func startEngine(t *testing.T, ctx context.Context) *transport.Channel {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	left, right := net.Pipe()
	gatewaySide := transport.NewChannel(logger, left)
	engineSide := transport.NewChannel(logger, right)

	eng := New(logger, engineSide, time.Second)
	go func() {
		_ = eng.Run(ctx)
	}()

	t.Cleanup(func() {
		gatewaySide.Close()
		engineSide.Close()
	})

	// Given: the engine introduces itself as a game backend
	msg := receive(t, ctx, gatewaySide)
	handshake, ok := msg.(*protocol.Handshake)
	require.True(t, ok)
	require.Equal(t, protocol.SocketGame, handshake.SocketType)
	require.NoError(t, gatewaySide.SendAck(handshake.ID(), protocol.CodeOK, "OK"))

	return gatewaySide
}

func receive(t *testing.T, ctx context.Context, ch *transport.Channel) protocol.Message {
	t.Helper()

	msg, err := ch.Receive(ctx)
	require.NoError(t, err)

	return msg
}

func TestEngine_GameStart(t *testing.T) {
	t.Run("First mover is prompted", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		gw := startEngine(t, ctx)

		// When: the gateway starts a human-vs-human game
		require.NoError(t, gw.Send(protocol.NewGameStart([2]string{"Smith", "Johnson"})))

		// Then: the player at the front of the turn queue can move
		msg := receive(t, ctx, gw)
		prompt, ok := msg.(*protocol.YouCanMove)
		require.True(t, ok)
		assert.Equal(t, "Smith", prompt.User)
	})

	t.Run("Bot never moves first", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		gw := startEngine(t, ctx)

		// When: the bot is scheduled at the front of the pair
		require.NoError(t, gw.Send(protocol.NewGameStart([2]string{entity.BotName, "Smith"})))

		// Then: the order is swapped and the human is prompted
		msg := receive(t, ctx, gw)
		prompt, ok := msg.(*protocol.YouCanMove)
		require.True(t, ok)
		assert.Equal(t, "Smith", prompt.User)
	})
}

func TestEngine_MakeMove(t *testing.T) {
	t.Run("Move is applied and the turn rotates", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		gw := startEngine(t, ctx)
		require.NoError(t, gw.Send(protocol.NewGameStart([2]string{"Smith", "Johnson"})))
		receive(t, ctx, gw) // YouCanMove Smith

		// When: the front player takes a cell
		ack, err := gw.SendWait(protocol.NewMakeMove(0), time.Second)
		require.NoError(t, err)
		require.NotNil(t, ack)
		require.True(t, ack.IsOK())

		// Then: the snapshot shows the mark and the game undecided
		result, ok := receive(t, ctx, gw).(*protocol.Result)
		require.True(t, ok)
		assert.Equal(t, "Smith", result.GameState[0])
		assert.Equal(t, entity.EmptyCell, result.Winner)

		// Then: the opponent is prompted
		prompt, ok := receive(t, ctx, gw).(*protocol.YouCanMove)
		require.True(t, ok)
		assert.Equal(t, "Johnson", prompt.User)
	})

	t.Run("Occupied cell does not consume the turn", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		gw := startEngine(t, ctx)
		require.NoError(t, gw.Send(protocol.NewGameStart([2]string{"Smith", "Johnson"})))
		receive(t, ctx, gw) // YouCanMove Smith

		ack, err := gw.SendWait(protocol.NewMakeMove(0), time.Second)
		require.NoError(t, err)
		require.True(t, ack.IsOK())
		receive(t, ctx, gw) // Result
		receive(t, ctx, gw) // YouCanMove Johnson

		// When: Johnson hits the occupied cell
		ack, err = gw.SendWait(protocol.NewMakeMove(0), time.Second)
		require.NoError(t, err)
		require.NotNil(t, ack)

		// Then: the move is rejected with an invalid-move status and no
		// result broadcast follows
		assert.Equal(t, protocol.CodeInvalidMove, ack.Result)

		// When: Johnson then takes a free cell
		ack, err = gw.SendWait(protocol.NewMakeMove(1), time.Second)
		require.NoError(t, err)
		require.True(t, ack.IsOK())

		// Then: the turn had not been consumed, the mark is Johnson's
		result, ok := receive(t, ctx, gw).(*protocol.Result)
		require.True(t, ok)
		assert.Equal(t, "Johnson", result.GameState[1])
	})

	t.Run("Winning line ends the game", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		gw := startEngine(t, ctx)
		require.NoError(t, gw.Send(protocol.NewGameStart([2]string{"Smith", "Johnson"})))
		receive(t, ctx, gw) // YouCanMove Smith

		// When: Smith completes the first column
		for _, pos := range []int{0, 1, 3, 4, 6} {
			ack, err := gw.SendWait(protocol.NewMakeMove(pos), time.Second)
			require.NoError(t, err)
			require.True(t, ack.IsOK())

			result, ok := receive(t, ctx, gw).(*protocol.Result)
			require.True(t, ok)

			if result.Winner != entity.EmptyCell {
				break
			}

			receive(t, ctx, gw) // YouCanMove for the next player
		}

		// Then: the session ends with Smith as the winner and resets
		ended, ok := receive(t, ctx, gw).(*protocol.GameEnded)
		require.True(t, ok)
		assert.Equal(t, "Smith", ended.Winner)
	})
}

func TestEngine_BotGame(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	gw := startEngine(t, ctx)
	require.NoError(t, gw.Send(protocol.NewGameStart([2]string{entity.BotName, "Smith"})))
	receive(t, ctx, gw) // YouCanMove Smith

	// When: the human moves in a game against the bot
	ack, err := gw.SendWait(protocol.NewMakeMove(4), time.Second)
	require.NoError(t, err)
	require.True(t, ack.IsOK())

	// Then: a snapshot follows the human move
	first, ok := receive(t, ctx, gw).(*protocol.Result)
	require.True(t, ok)
	assert.Equal(t, "Smith", first.GameState[4])

	// Then: the bot answers exactly once, on a previously empty cell
	second, ok := receive(t, ctx, gw).(*protocol.Result)
	require.True(t, ok)

	botCells := 0
	for i, cell := range second.GameState {
		if cell == entity.BotName {
			botCells++
			assert.Equal(t, entity.EmptyCell, first.GameState[i], "bot overwrote cell %d", i)
		}
	}
	assert.Equal(t, 1, botCells)

	// Then: the human is prompted again
	prompt, ok := receive(t, ctx, gw).(*protocol.YouCanMove)
	require.True(t, ok)
	assert.Equal(t, "Smith", prompt.User)
}

func TestEngine_BotFillsLastCell(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Given: a board with exactly one empty cell and the bot to move
	eng := New(logger, nil, time.Second)
	eng.players = []string{entity.BotName, "Smith"}
	eng.board = entity.Board{
		"X", "O", "X",
		"X", "O", "O",
		"O", "X", "",
	}

	// When: the bot moves
	require.NoError(t, eng.botMove())

	// Then: it fills that exact cell
	assert.Equal(t, entity.BotName, eng.board[8])
	assert.Empty(t, eng.board.EmptyCells())
}

func TestEngine_Reconnected(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	gw := startEngine(t, ctx)
	require.NoError(t, gw.Send(protocol.NewGameStart([2]string{"Smith", "Johnson"})))
	receive(t, ctx, gw) // YouCanMove Smith

	ack, err := gw.SendWait(protocol.NewMakeMove(0), time.Second)
	require.NoError(t, err)
	require.True(t, ack.IsOK())
	receive(t, ctx, gw) // Result
	receive(t, ctx, gw) // YouCanMove Johnson

	// When: the player whose turn it is reconnects
	require.NoError(t, gw.Send(protocol.NewReconnected("Johnson")))

	// Then: the current snapshot is resent
	result, ok := receive(t, ctx, gw).(*protocol.Result)
	require.True(t, ok)
	assert.Equal(t, "Smith", result.GameState[0])

	// Then: the returning player gets a fresh move prompt
	prompt, ok := receive(t, ctx, gw).(*protocol.YouCanMove)
	require.True(t, ok)
	assert.Equal(t, "Johnson", prompt.User)

	// When: the player not at the front reconnects
	require.NoError(t, gw.Send(protocol.NewReconnected("Smith")))

	// Then: only the snapshot is resent; drive a move to prove no stray
	// prompt was queued in between
	_, ok = receive(t, ctx, gw).(*protocol.Result)
	require.True(t, ok)

	ack, err = gw.SendWait(protocol.NewMakeMove(1), time.Second)
	require.NoError(t, err)
	require.True(t, ack.IsOK())

	result, ok = receive(t, ctx, gw).(*protocol.Result)
	require.True(t, ok)
	assert.Equal(t, "Johnson", result.GameState[1])
}
