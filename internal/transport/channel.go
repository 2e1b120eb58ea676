package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/protocol"
)

const (
	chunkSize = 1024

	// inboxSize bounds how many decoded messages can pile up before the
	// reader goroutine blocks on the consumer.
	inboxSize = 64
)

// Channel layers one-shot acknowledgement semantics on top of a framed
// byte stream. A reader goroutine splits the stream into payloads, routes
// Acks to the waiter registered under their identifier and hands every
// other message to Receive in receipt order.
type Channel struct {
	logger *slog.Logger
	conn   net.Conn

	writeMu sync.Mutex

	inbox chan protocol.Message

	mu      sync.Mutex
	waiters map[string]chan *protocol.Ack
	acks    map[string]*protocol.Ack

	closeOnce sync.Once
}

// NewChannel - wraps a connection and starts its reader goroutine.
func NewChannel(logger *slog.Logger, conn net.Conn) *Channel {
	that := &Channel{
		logger:  logger.With("component", "channel"),
		conn:    conn,
		inbox:   make(chan protocol.Message, inboxSize),
		waiters: make(map[string]chan *protocol.Ack),
		acks:    make(map[string]*protocol.Ack),
	}

	go that.readLoop()

	return that
}

// readLoop - pulls chunks off the socket, reassembles frames and routes
// decoded messages. Terminates on peer close or decode failure; either way
// the inbox is closed and only this connection is affected.
func (that *Channel) readLoop() {
	log := that.logger.With("method", "readLoop")

	defer close(that.inbox)

	var carry []byte
	buf := make([]byte, chunkSize)

	for {
		n, err := that.conn.Read(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.Debug("connection read finished", "error", err)
			}
			return
		}
		if n == 0 {
			return
		}

		var frames [][]byte
		frames, carry = protocol.ReadFrames(carry, buf[:n])

		for _, frame := range frames {
			msg, err := protocol.Decode(frame)
			if err != nil {
				log.Error("dropping connection", "error", err)
				that.Close()
				return
			}

			that.route(msg)
		}
	}
}

func (that *Channel) route(msg protocol.Message) {
	ack, ok := msg.(*protocol.Ack)
	if !ok {
		that.inbox <- msg
		return
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if waiter, found := that.waiters[ack.MessageID]; found {
		delete(that.waiters, ack.MessageID)
		waiter <- ack
		return
	}

	// no one is waiting yet; keep it for later retrieval by id
	that.acks[ack.MessageID] = ack
}

// Receive - returns the next non-Ack message, or ErrPeerClosed once the
// peer disconnects.
func (that *Channel) Receive(ctx context.Context) (protocol.Message, error) {
	select {
	case msg, ok := <-that.inbox:
		if !ok {
			return nil, apperror.ErrPeerClosed
		}
		return msg, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("receive canceled: %w", ctx.Err())
	}
}

// Send - writes a message once, without waiting for an acknowledgement.
func (that *Channel) Send(msg protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	if _, err = that.conn.Write(append(data, protocol.Delimiter)); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	return nil
}

// SendWait - writes a message once and blocks until the Ack correlated by
// the message identifier arrives or the timeout elapses. A nil Ack with a
// nil error means the peer never confirmed; that is absence, not failure.
func (that *Channel) SendWait(msg protocol.Message, timeout time.Duration) (*protocol.Ack, error) {
	waiter := make(chan *protocol.Ack, 1)

	that.mu.Lock()
	that.waiters[msg.ID()] = waiter
	that.mu.Unlock()

	if err := that.Send(msg); err != nil {
		that.mu.Lock()
		delete(that.waiters, msg.ID())
		that.mu.Unlock()

		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ack := <-waiter:
		return ack, nil
	case <-timer.C:
		that.mu.Lock()
		defer that.mu.Unlock()

		// the ack may have been routed while the timer fired
		if ack, ok := that.acks[msg.ID()]; ok {
			delete(that.acks, msg.ID())
			return ack, nil
		}
		select {
		case ack := <-waiter:
			return ack, nil
		default:
		}
		delete(that.waiters, msg.ID())

		return nil, nil
	}
}

// SendAck - acknowledges a previously received message. Acks themselves
// are never acknowledged.
func (that *Channel) SendAck(inReplyTo string, result int, text string) error {
	return that.Send(protocol.NewAck(inReplyTo, result, text))
}

// Close - closes the underlying connection; the reader goroutine winds
// down and Receive starts reporting ErrPeerClosed.
func (that *Channel) Close() {
	that.closeOnce.Do(func() {
		if err := that.conn.Close(); err != nil {
			that.logger.Debug("failed to close connection", "error", err)
		}
	})
}
