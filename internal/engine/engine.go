package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/protocol"
	"github.com/rocketscienceinc/tictactoe-arena/internal/transport"
)

// Engine owns one authoritative board and turn order for the backend
// connection it serves. It is idle until the gateway sends GameStart,
// plays one session, reports the outcome and goes idle again.
type Engine struct {
	logger  *slog.Logger
	channel *transport.Channel

	ackTimeout time.Duration

	board   entity.Board
	players []string // front = player to move next; empty while idle
}

func New(logger *slog.Logger, channel *transport.Channel, ackTimeout time.Duration) *Engine {
	return &Engine{
		logger:     logger.With("component", "engine"),
		channel:    channel,
		ackTimeout: ackTimeout,
	}
}

// Run - performs the backend handshake and serves gateway messages until
// the connection drops or the context is canceled.
func (that *Engine) Run(ctx context.Context) error {
	log := that.logger.With("method", "Run")

	ack, err := that.channel.SendWait(protocol.NewHandshake(protocol.SocketGame, ""), that.ackTimeout)
	if err != nil {
		return fmt.Errorf("failed to send handshake: %w", err)
	}
	if ack == nil {
		return fmt.Errorf("handshake: %w", apperror.ErrAckTimeout)
	}

	log.Info("registered with gateway", "result", ack.Result, "text", ack.Text)

	for {
		msg, err := that.channel.Receive(ctx)
		if err != nil {
			return fmt.Errorf("failed to receive message: %w", err)
		}

		if err = that.handle(msg); err != nil {
			return fmt.Errorf("failed to handle %d message: %w", msg.Type(), err)
		}
	}
}

func (that *Engine) handle(msg protocol.Message) error {
	log := that.logger.With("method", "handle")

	switch m := msg.(type) {
	case *protocol.GameStart:
		if err := that.channel.SendAck(m.MessageID, protocol.CodeOK, "OK"); err != nil {
			return err
		}
		return that.startGame(m)
	case *protocol.MakeMove:
		return that.makeMove(m)
	case *protocol.Reconnected:
		if err := that.channel.SendAck(m.MessageID, protocol.CodeOK, "OK"); err != nil {
			return err
		}
		return that.reconnected(m)
	case *protocol.SendMessage:
		if err := that.channel.SendAck(m.MessageID, protocol.CodeOK, "OK"); err != nil {
			return err
		}
		// chat passthrough: the gateway routes it to the target user
		return that.channel.Send(m)
	default:
		log.Debug("ignoring message", "type", msg.Type())
		return that.channel.SendAck(msg.ID(), protocol.CodeOK, "OK")
	}
}

// startGame - arms a new session. The bot never moves first without a
// preceding human prompt, so a bot scheduled at the front is swapped back.
func (that *Engine) startGame(start *protocol.GameStart) error {
	log := that.logger.With("method", "startGame")

	that.players = []string{start.Opponents[0], start.Opponents[1]}
	if that.players[0] == entity.BotName {
		that.players[0], that.players[1] = that.players[1], that.players[0]
	}

	that.board.Clear()

	log.Info("game started", "players", that.players)

	return that.promptMover()
}

// makeMove - applies a human move and, when the bot holds the next turn,
// the bot's answer. Occupied cells cost nothing: the move is rejected and
// the turn is not consumed.
func (that *Engine) makeMove(move *protocol.MakeMove) error {
	log := that.logger.With("method", "makeMove")

	if len(that.players) == 0 {
		log.Debug("move while idle, ignoring", "pos", move.Pos)
		return that.channel.SendAck(move.MessageID, protocol.CodeInvalidMove, "cell is invalid")
	}

	if err := that.board.Place(move.Pos, that.players[0]); err != nil {
		log.Info("rejected move", "pos", move.Pos, "error", err)
		return that.channel.SendAck(move.MessageID, protocol.CodeInvalidMove, "cell is invalid")
	}

	if err := that.channel.SendAck(move.MessageID, protocol.CodeOK, "OK"); err != nil {
		return err
	}

	that.rotate()

	if err := that.broadcastResult(); err != nil {
		return err
	}

	if that.players[0] == entity.BotName && that.board.Winner() == entity.EmptyCell {
		if err := that.botMove(); err != nil {
			return err
		}

		if err := that.broadcastResult(); err != nil {
			return err
		}
	}

	return that.settle()
}

// botMove - chooses uniformly at random among the empty cells. Exactly one
// bot move per human move; an available cell is never passed on.
func (that *Engine) botMove() error {
	log := that.logger.With("method", "botMove")

	cells := that.board.EmptyCells()
	if len(cells) == 0 {
		return apperror.ErrInvalidCell
	}

	pos := cells[rand.Intn(len(cells))] //nolint: gosec // it's ok

	if err := that.board.Place(pos, entity.BotName); err != nil {
		return fmt.Errorf("bot failed to make turn: %w", err)
	}

	log.Info("bot hit", "pos", pos)

	that.rotate()

	return nil
}

// settle - ends the session when a winner or tie is on the board,
// otherwise prompts the next mover.
func (that *Engine) settle() error {
	log := that.logger.With("method", "settle")

	winner := that.board.Winner()
	if winner == entity.EmptyCell {
		return that.promptMover()
	}

	log.Info("game ended", "winner", winner)

	if err := that.channel.Send(protocol.NewGameEnded(winner)); err != nil {
		return err
	}

	that.board.Clear()
	that.players = nil

	return nil
}

// reconnected - resends the current snapshot so the relay can bring the
// returning user up to date, plus a move prompt if it is their turn.
func (that *Engine) reconnected(msg *protocol.Reconnected) error {
	log := that.logger.With("method", "reconnected")

	if len(that.players) == 0 {
		log.Debug("reconnect while idle", "user", msg.User)
		return nil
	}

	log.Info("player reconnected", "user", msg.User)

	if err := that.broadcastResult(); err != nil {
		return err
	}

	if that.players[0] == msg.User {
		return that.promptMover()
	}

	return nil
}

func (that *Engine) promptMover() error {
	return that.channel.Send(protocol.NewYouCanMove(that.players[0]))
}

func (that *Engine) broadcastResult() error {
	return that.channel.Send(protocol.NewResult([9]string(that.board), that.board.Winner()))
}

func (that *Engine) rotate() {
	that.players[0], that.players[1] = that.players[1], that.players[0]
}
