package types

// ExitReason records which rule closed a position.
type ExitReason string

const (
	ExitTakeProfit  ExitReason = "Take Profit"
	ExitStopLoss    ExitReason = "Stop Loss"
	ExitEmaBearish  ExitReason = "EMA Bearish Exit"
	ExitForcedClose ExitReason = "Forced Close"
)
