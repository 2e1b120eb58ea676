package apperror

import "errors"

var (
	ErrDecode            = errors.New("malformed or unknown payload")
	ErrPeerClosed        = errors.New("peer disconnected")
	ErrUnexpectedRole    = errors.New("unexpected socket role")
	ErrNoServerAvailable = errors.New("no game server available")
	ErrAckTimeout        = errors.New("no acknowledgement received")
	ErrCellOccupied      = errors.New("cell is already occupied")
	ErrInvalidCell       = errors.New("invalid cell index")
	ErrNotBound          = errors.New("user is not bound to a game server")
)
