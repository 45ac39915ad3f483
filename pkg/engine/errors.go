package engine

import "errors"

var (
	// ErrEngineLaunch means the engine executable could not be started.
	ErrEngineLaunch = errors.New("engine launch failed")
	// ErrChannelClosed means the engine process exited, was stopped or was
	// never started.
	ErrChannelClosed = errors.New("engine channel closed")
	// ErrEngineProtocol means the engine produced output that violates the
	// protocol, most commonly ending its output before a bestmove.
	ErrEngineProtocol = errors.New("engine protocol error")
	// ErrInvalidRequest means a search was requested without a usable limit.
	ErrInvalidRequest = errors.New("invalid search request")
	// ErrBusy means a go command is already outstanding.
	ErrBusy = errors.New("engine busy")
)
