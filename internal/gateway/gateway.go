package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-arena/internal/protocol"
	"github.com/rocketscienceinc/tictactoe-arena/internal/transport"
)

type archiveRepo interface {
	SaveResult(ctx context.Context, result *entity.GameResult) error
}

// Server accepts client and game-engine connections, matches clients into
// sessions and relays gameplay traffic between a backend and its bound
// users. One goroutine per connection; a failure in one handler releases
// that connection's registrations and touches nothing else.
type Server struct {
	logger   *slog.Logger
	registry *Registry
	archive  archiveRepo

	ackTimeout time.Duration
}

// New - creates a gateway server. The archive repository may be nil; the
// gateway then skips recording finished games.
func New(logger *slog.Logger, registry *Registry, archive archiveRepo, ackTimeout time.Duration) *Server {
	return &Server{
		logger:     logger.With("component", "gateway"),
		registry:   registry,
		archive:    archive,
		ackTimeout: ackTimeout,
	}
}

// Start - listens on the given port and serves until the context is
// canceled.
func (that *Server) Start(ctx context.Context, port string) error {
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", port, err)
	}

	return that.Serve(ctx, listener)
}

// Serve - accepts connections off an existing listener.
func (that *Server) Serve(ctx context.Context, listener net.Listener) error {
	log := that.logger.With("method", "Serve")

	go func() {
		<-ctx.Done()
		that.registry.Shutdown()

		if err := listener.Close(); err != nil {
			log.Debug("failed to close listener", "error", err)
		}
	}()

	log.Info("gateway listening", "addr", listener.Addr().String())

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to accept connection: %w", err)
		}

		go that.handleConn(ctx, conn)
	}
}

// handleConn - classifies the connection by its first message and runs the
// matching loop. Panics and errors stay confined to this handler.
func (that *Server) handleConn(ctx context.Context, conn net.Conn) {
	log := that.logger.With("method", "handleConn", "remote", conn.RemoteAddr().String())

	defer func() {
		if r := recover(); r != nil {
			log.Error("recovered from handler panic", "panic", r)
		}
	}()

	channel := transport.NewChannel(that.logger, conn)
	defer channel.Close()

	msg, err := channel.Receive(ctx)
	if err != nil {
		log.Debug("connection closed before handshake", "error", err)
		return
	}

	handshake, ok := msg.(*protocol.Handshake)
	if !ok {
		log.Error("first message is not a handshake", "type", msg.Type())
		return
	}

	switch handshake.SocketType {
	case protocol.SocketGame:
		that.handleBackend(ctx, channel, handshake)
	case protocol.SocketClient:
		that.handleClient(ctx, channel, handshake)
	default:
		log.Error("dropping connection", "error", apperror.ErrUnexpectedRole, "socket_type", handshake.SocketType)
	}
}

// handleBackend - registers a game engine and relays its session traffic
// to the bound users until the connection dies.
func (that *Server) handleBackend(ctx context.Context, channel *transport.Channel, handshake *protocol.Handshake) {
	backend := that.registry.RegisterBackend(channel)
	defer that.registry.RemoveBackend(backend)

	log := that.logger.With("method", "handleBackend", "backend", backend.ID())
	log.Info("game engine connected")

	if err := channel.SendAck(handshake.MessageID, protocol.CodeOK, "OK"); err != nil {
		log.Error("failed to ack handshake", "error", err)
		return
	}

	for {
		msg, err := channel.Receive(ctx)
		if err != nil {
			log.Info("game engine disconnected", "error", err)
			return
		}

		if err = channel.SendAck(msg.ID(), protocol.CodeOK, "OK"); err != nil {
			log.Error("failed to ack message", "error", err)
			return
		}

		switch m := msg.(type) {
		case *protocol.Result:
			that.fanOut(backend, m)
		case *protocol.GameEnded:
			that.fanOut(backend, m)
			that.finishGame(ctx, backend, m)
		case *protocol.YouCanMove:
			that.forwardTo(backend, m.User, m)
		case *protocol.SendMessage:
			that.forwardTo(backend, m.Target, m)
		default:
			log.Debug("ignoring message from game engine", "type", msg.Type())
		}
	}
}

// fanOut - sends a message, unmodified, to every non-bot user bound to
// the backend.
func (that *Server) fanOut(backend *Backend, msg protocol.Message) {
	log := that.logger.With("method", "fanOut", "backend", backend.ID())

	for _, user := range that.registry.BoundUsers(backend) {
		if user.IsBot() {
			continue
		}

		channel := user.Channel()
		if channel == nil {
			continue
		}

		if err := channel.Send(msg); err != nil {
			log.Debug("failed to send to user", "user", user.Name(), "error", err)
		}
	}
}

// forwardTo - sends a message only to the bound user with the given name.
func (that *Server) forwardTo(backend *Backend, name string, msg protocol.Message) {
	log := that.logger.With("method", "forwardTo", "backend", backend.ID())

	user := that.registry.UserOnBackend(backend, name)
	if user == nil || user.IsBot() {
		return
	}

	channel := user.Channel()
	if channel == nil {
		return
	}

	if err := channel.Send(msg); err != nil {
		log.Debug("failed to forward to user", "user", name, "error", err)
	}
}

// finishGame - discards the backend's session and archives the outcome.
func (that *Server) finishGame(ctx context.Context, backend *Backend, ended *protocol.GameEnded) {
	log := that.logger.With("method", "finishGame", "backend", backend.ID())

	users := that.registry.ResetBackend(backend)
	log.Info("game ended", "winner", ended.Winner)

	if that.archive == nil {
		return
	}

	names := make([]string, 0, len(users))
	for _, user := range users {
		names = append(names, user.Name())
	}

	result := &entity.GameResult{
		ID:         pkg.GenerateGameID(),
		Players:    names,
		Winner:     ended.Winner,
		FinishedAt: time.Now().UTC(),
	}

	if err := that.archive.SaveResult(ctx, result); err != nil {
		log.Error("failed to archive game result", "error", err)
	}
}

// handleClient - resolves the user record behind the handshake, keeping an
// existing record (and its game binding) when the username is known, then
// runs the client loop.
func (that *Server) handleClient(ctx context.Context, channel *transport.Channel, handshake *protocol.Handshake) {
	log := that.logger.With("method", "handleClient")

	var user *User

	switch {
	case handshake.Username == "":
		user = that.registry.RegisterUser("", channel)
		log.Info("new client", "user", user.Name())

		if err := channel.SendAck(handshake.MessageID, protocol.CodeOK, "Your username is "+user.Name()); err != nil {
			log.Error("failed to ack handshake", "error", err)
			return
		}
	default:
		user = that.registry.LookupUser(handshake.Username)
		if user == nil {
			// unknown name on reconnect: register it as a fresh user
			user = that.registry.RegisterUser(handshake.Username, channel)
			log.Info("new client with requested name", "user", user.Name())

			if err := channel.SendAck(handshake.MessageID, protocol.CodeOK, "Your username is "+user.Name()); err != nil {
				log.Error("failed to ack handshake", "error", err)
				return
			}
			break
		}

		log.Info("client reconnected", "user", user.Name())
		user.setChannel(channel)

		backend := user.Backend()
		if backend == nil {
			if err := channel.SendAck(handshake.MessageID, protocol.CodeOK, "Welcome back"); err != nil {
				log.Error("failed to ack handshake", "error", err)
				return
			}
			break
		}

		if err := channel.SendAck(handshake.MessageID, protocol.CodeInGame, "You were in game"); err != nil {
			log.Error("failed to ack handshake", "error", err)
			return
		}

		// the engine answers with a fresh Result snapshot and, when it is
		// this user's turn, a new YouCanMove
		if err := backend.Channel().Send(protocol.NewReconnected(user.Name())); err != nil {
			log.Error("failed to notify backend of reconnection", "error", err)
		}
	}

	defer func() {
		// keep the record for reconnection, drop only the dead channel
		if user.Channel() == channel {
			user.setChannel(nil)
		}
	}()

	that.clientLoop(ctx, channel, user)
}

// clientLoop - serves one client connection until it drops.
func (that *Server) clientLoop(ctx context.Context, channel *transport.Channel, user *User) {
	log := that.logger.With("method", "clientLoop", "user", user.Name())

	for {
		msg, err := channel.Receive(ctx)
		if err != nil {
			log.Info("client disconnected", "error", err)
			return
		}

		switch m := msg.(type) {
		case *protocol.NewGameRequest:
			that.newGame(ctx, channel, user, m)
		case *protocol.MakeMove:
			if err = channel.SendAck(m.MessageID, protocol.CodeOK, "OK"); err != nil {
				log.Error("failed to ack move", "error", err)
				return
			}
			that.forwardToBackend(user, m)
		case *protocol.SendMessage:
			that.relayChat(user, m)
		case *protocol.StopProxy:
			if err = channel.SendAck(m.MessageID, protocol.CodeOK, "OK"); err != nil {
				log.Error("failed to ack stop", "error", err)
			}
			log.Info("client asked to stop")
			return
		default:
			log.Debug("ignoring message from client", "type", msg.Type())
		}
	}
}

// forwardToBackend - passes a client message, unchanged, to the user's
// bound backend.
func (that *Server) forwardToBackend(user *User, msg protocol.Message) {
	log := that.logger.With("method", "forwardToBackend", "user", user.Name())

	backend := user.Backend()
	if backend == nil {
		log.Debug("dropping message", "error", apperror.ErrNotBound, "type", msg.Type())
		return
	}

	if err := backend.Channel().Send(msg); err != nil {
		log.Error("failed to forward to backend", "error", err)
	}
}

// relayChat - addresses a chat message to the opponent and forwards it.
func (that *Server) relayChat(user *User, msg *protocol.SendMessage) {
	log := that.logger.With("method", "relayChat", "user", user.Name())

	backend := user.Backend()
	if backend == nil {
		log.Debug("dropping chat", "error", apperror.ErrNotBound)
		return
	}

	opponent := that.registry.Opponent(backend, user)
	if opponent == nil {
		return
	}

	msg.Target = opponent.Name()

	if err := backend.Channel().Send(msg); err != nil {
		log.Error("failed to forward chat to backend", "error", err)
	}
}

// newGame - runs matchmaking for one request: acknowledge with a waiting
// status, acquire and bind a backend slot, wait for a full session, then
// confirm the match with the client before starting the game.
func (that *Server) newGame(ctx context.Context, channel *transport.Channel, user *User, request *protocol.NewGameRequest) {
	log := that.logger.With("method", "newGame", "user", user.Name())

	if err := channel.SendAck(request.MessageID, protocol.CodeWaitForEmptyServer, "wait for empty server"); err != nil {
		log.Error("failed to ack game request", "error", err)
		return
	}

	backend, err := that.registry.Match(ctx, user, request.GameType, true)
	if err != nil {
		log.Error("matchmaking failed", "error", err)
		return
	}

	log.Info("slot acquired", "backend", backend.ID())

	if err = channel.Send(protocol.NewWaitForOpponent()); err != nil {
		log.Error("failed to send wait notice", "error", err)
		return
	}

	if request.GameType == protocol.GameMultiPlayer {
		if err = that.registry.WaitFull(ctx, backend); err != nil {
			log.Error("session never filled", "error", err)
			return
		}
	}

	opponent := that.registry.Opponent(backend, user)
	if opponent == nil {
		log.Error("opponent vanished before game start")
		return
	}

	ack, err := channel.SendWait(protocol.NewGameFound(opponent.Name()), that.ackTimeout)
	if err != nil || ack == nil {
		// client dropped mid-match; do not start the game
		log.Error("client never confirmed the match", "error", err)
		return
	}

	users := that.registry.BoundUsers(backend)
	if len(users) != 2 {
		log.Error("session no longer holds two players")
		return
	}

	start := protocol.NewGameStart([2]string{users[0].Name(), users[1].Name()})
	if err = backend.Channel().Send(start); err != nil {
		log.Error("failed to start game", "error", err)
		return
	}

	log.Info("game started", "players", start.Opponents)
}
