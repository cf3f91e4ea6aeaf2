package services

import "errors"

// Lifecycle failure kinds. Both transports surface these; the handlers map
// them to HTTP statuses, the websocket path logs and drops them.
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("session not found")
	ErrForbidden     = errors.New("only the host may do this")
	ErrAlreadyJoined = errors.New("already in this session")
	ErrInvalidState  = errors.New("session is not in a valid state for this operation")
)
