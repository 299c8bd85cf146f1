package exception

import "errors"

var (
	ErrEngineStarted    = errors.New("engine: already started")
	ErrEngineNotStarted = errors.New("engine: not started")
	ErrTickAborted      = errors.New("engine: tick aborted")
	ErrPersistence      = errors.New("engine: persistence write failed")
)
