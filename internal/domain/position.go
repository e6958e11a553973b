package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is an open holding of a base asset.
// Owned by the position tracker; created on a confirmed buy, removed on a confirmed sell.
type Position struct {
	Mint              string
	PoolID            string
	OpenedAt          time.Time
	CostBasis         decimal.Decimal // quote units spent
	MinAcquiredAmount decimal.Decimal // base units guaranteed by the swap
	Name              string
	Symbol            string
}

// ExitReason names the condition that triggered a disposal.
type ExitReason string

// Exit reasons in evaluation priority order.
const (
	ExitReasonTakeProfit  ExitReason = "take_profit"
	ExitReasonStopLoss    ExitReason = "stop_loss"
	ExitReasonMaxHold     ExitReason = "max_hold_duration"
	ExitReasonNameKeyword ExitReason = "name_keyword_timeout"
)

// String returns the string representation of ExitReason.
func (r ExitReason) String() string {
	return string(r)
}
