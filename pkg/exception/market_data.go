package exception

import "errors"

var (
	ErrDataUnavailable     = errors.New("market data: unavailable")
	ErrQuoteMissing        = errors.New("market data: quote missing for instrument")
	ErrQuoteInvalidPayload = errors.New("market data: invalid quote payload")
)
