package schema

// StrategyStatus tracks a strategy's lifecycle inside the engine.
type StrategyStatus uint16

const (
	StrategyInitializing StrategyStatus = iota
	StrategyActive
	StrategySuspended
)

func (s StrategyStatus) String() string {
	switch s {
	case StrategyInitializing:
		return "initializing"
	case StrategyActive:
		return "active"
	case StrategySuspended:
		return "suspended"
	default:
		return "unknown"
	}
}
