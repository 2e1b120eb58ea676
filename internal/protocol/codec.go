package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
)

// Encode - serializes a message into a self-contained payload. The payload
// never contains the frame delimiter: encoding/json never emits raw
// newlines inside a document.
func Encode(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	return data, nil
}

// Decode - reconstructs the typed message from a payload. Unknown kind
// tags and missing identifiers are decode errors; the caller must drop
// the connection.
func Decode(data []byte) (Message, error) {
	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrDecode, err)
	}

	if envelope.MessageID == "" {
		return nil, fmt.Errorf("%w: missing message_id", apperror.ErrDecode)
	}

	msg, err := emptyMessage(envelope.MessageType)
	if err != nil {
		return nil, err
	}

	if err = json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrDecode, err)
	}

	return msg, nil
}

// emptyMessage - maps a kind tag to its concrete type, exhaustively.
func emptyMessage(kind Kind) (Message, error) {
	switch kind {
	case KindHandshake:
		return &Handshake{}, nil
	case KindAck:
		return &Ack{}, nil
	case KindNewGameRequest:
		return &NewGameRequest{}, nil
	case KindGameFound:
		return &GameFound{}, nil
	case KindWaitForOpponent:
		return &WaitForOpponent{}, nil
	case KindMakeMove:
		return &MakeMove{}, nil
	case KindResult:
		return &Result{}, nil
	case KindSendMessage:
		return &SendMessage{}, nil
	case KindStopProxy:
		return &StopProxy{}, nil
	case KindGameStart:
		return &GameStart{}, nil
	case KindGameEnded:
		return &GameEnded{}, nil
	case KindYouCanMove:
		return &YouCanMove{}, nil
	case KindReconnected:
		return &Reconnected{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown message type %d", apperror.ErrDecode, kind)
	}
}
