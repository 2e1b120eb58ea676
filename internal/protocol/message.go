package protocol

import (
	"github.com/rocketscienceinc/tictactoe-arena/internal/pkg"
)

// Kind tags every payload on the wire.
type Kind int

const (
	KindHandshake       Kind = 1
	KindAck             Kind = 2
	KindNewGameRequest  Kind = 3
	KindGameFound       Kind = 4
	KindWaitForOpponent Kind = 5
	KindMakeMove        Kind = 6
	KindResult          Kind = 7
	KindSendMessage     Kind = 8
	KindStopProxy       Kind = 9
	KindGameStart       Kind = 10
	KindGameEnded       Kind = 11
	KindYouCanMove      Kind = 12
	KindReconnected     Kind = 13
)

// SocketType declares what kind of peer is behind a connection.
type SocketType int

const (
	SocketGame   SocketType = 1
	SocketClient SocketType = 2
)

// GameType selects the matchmaking mode of a new game request.
type GameType int

const (
	GameSinglePlayer GameType = 1
	GameMultiPlayer  GameType = 2
)

// Ack result codes.
const (
	CodeOK                 = 0
	CodeWaitForEmptyServer = 1
	CodeInvalidMove        = 3
	CodeInGame             = 4
)

// Message is one protocol payload. Every message carries a unique,
// sender-generated identifier; the matching Ack echoes it verbatim.
type Message interface {
	ID() string
	Type() Kind
}

// Envelope holds the fields shared by every message kind.
type Envelope struct {
	MessageID   string `json:"message_id"`
	MessageType Kind   `json:"message_type"`
}

func (that Envelope) ID() string { return that.MessageID }

func (that Envelope) Type() Kind { return that.MessageType }

func newEnvelope(kind Kind) Envelope {
	return Envelope{
		MessageID:   pkg.GenerateMessageID(),
		MessageType: kind,
	}
}

// Handshake is the first message on any connection, declaring the peer
// role and, for reconnecting clients, the persistent username.
type Handshake struct {
	Envelope
	SocketType SocketType `json:"socket_type"`
	Username   string     `json:"username,omitempty"`
}

func NewHandshake(socketType SocketType, username string) *Handshake {
	return &Handshake{
		Envelope:   newEnvelope(KindHandshake),
		SocketType: socketType,
		Username:   username,
	}
}

// Ack is a one-shot acknowledgement; its identifier is the identifier of
// the message being acknowledged.
type Ack struct {
	Envelope
	Result int    `json:"result"`
	Text   string `json:"text"`
}

func NewAck(inReplyTo string, result int, text string) *Ack {
	return &Ack{
		Envelope: Envelope{MessageID: inReplyTo, MessageType: KindAck},
		Result:   result,
		Text:     text,
	}
}

func (that *Ack) IsOK() bool { return that.Result == CodeOK }

func (that *Ack) InGame() bool { return that.Result == CodeInGame }

type NewGameRequest struct {
	Envelope
	GameType GameType `json:"game_type"`
}

func NewNewGameRequest(gameType GameType) *NewGameRequest {
	return &NewGameRequest{
		Envelope: newEnvelope(KindNewGameRequest),
		GameType: gameType,
	}
}

type GameFound struct {
	Envelope
	Opponent string `json:"opponent"`
}

func NewGameFound(opponent string) *GameFound {
	return &GameFound{
		Envelope: newEnvelope(KindGameFound),
		Opponent: opponent,
	}
}

type WaitForOpponent struct {
	Envelope
}

func NewWaitForOpponent() *WaitForOpponent {
	return &WaitForOpponent{Envelope: newEnvelope(KindWaitForOpponent)}
}

type MakeMove struct {
	Envelope
	Pos int `json:"pos"`
}

func NewMakeMove(pos int) *MakeMove {
	return &MakeMove{
		Envelope: newEnvelope(KindMakeMove),
		Pos:      pos,
	}
}

// Result carries the full board snapshot; empty cells are empty strings
// and an empty winner means the game is undecided.
type Result struct {
	Envelope
	GameState [9]string `json:"game_state"`
	Winner    string    `json:"winner"`
}

func NewResult(gameState [9]string, winner string) *Result {
	return &Result{
		Envelope:  newEnvelope(KindResult),
		GameState: gameState,
		Winner:    winner,
	}
}

type SendMessage struct {
	Envelope
	Text   string `json:"text"`
	Target string `json:"target"`
}

func NewSendMessage(text, target string) *SendMessage {
	return &SendMessage{
		Envelope: newEnvelope(KindSendMessage),
		Text:     text,
		Target:   target,
	}
}

type StopProxy struct {
	Envelope
}

func NewStopProxy() *StopProxy {
	return &StopProxy{Envelope: newEnvelope(KindStopProxy)}
}

// GameStart carries both usernames in turn order.
type GameStart struct {
	Envelope
	Opponents [2]string `json:"opponents"`
}

func NewGameStart(opponents [2]string) *GameStart {
	return &GameStart{
		Envelope:  newEnvelope(KindGameStart),
		Opponents: opponents,
	}
}

type GameEnded struct {
	Envelope
	Winner string `json:"winner"`
}

func NewGameEnded(winner string) *GameEnded {
	return &GameEnded{
		Envelope: newEnvelope(KindGameEnded),
		Winner:   winner,
	}
}

type YouCanMove struct {
	Envelope
	User string `json:"user"`
}

func NewYouCanMove(user string) *YouCanMove {
	return &YouCanMove{
		Envelope: newEnvelope(KindYouCanMove),
		User:     user,
	}
}

type Reconnected struct {
	Envelope
	User string `json:"user"`
}

func NewReconnected(user string) *Reconnected {
	return &Reconnected{
		Envelope: newEnvelope(KindReconnected),
		User:     user,
	}
}
