package exception

import "errors"

var (
	ErrInsufficientAllocation = errors.New("strategy: proposed cost exceeds allocation")
	ErrStrategyExists         = errors.New("strategy: already registered")
	ErrStrategyNotFound       = errors.New("strategy: not found")
	ErrStrategyNotSuspended   = errors.New("strategy: not suspended")
	ErrStrategyFault          = errors.New("strategy: internal fault")
)
