package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidWeights = errors.New("fusion weights do not sum to 1.0")
	ErrLockHeld       = errors.New("lock already held")
	ErrWSDisconnect   = errors.New("websocket disconnected")
)
