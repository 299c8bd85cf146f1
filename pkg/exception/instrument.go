package exception

import "errors"

var (
	ErrInstrumentExists   = errors.New("instrument: already registered")
	ErrInstrumentUnknown  = errors.New("instrument: unknown symbol")
	ErrInstrumentLotSize  = errors.New("instrument: invalid lot size")
	ErrInstrumentNoSymbol = errors.New("instrument: empty symbol")
)
