package domain

// Side is the direction of a trade workflow.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// TradeStatus is the terminal state of a trade workflow.
type TradeStatus string

const (
	TradeStatusConfirmed TradeStatus = "confirmed"
	TradeStatusAbandoned TradeStatus = "abandoned"
	TradeStatusFailed    TradeStatus = "failed"
	TradeStatusSkipped   TradeStatus = "skipped"
)

// TradeRecord journals one terminal buy or sell workflow outcome.
// Corresponds to trade_records table in ClickHouse.
type TradeRecord struct {
	TradeID      string      // deterministic hash
	Side         Side        // buy | sell
	Mint         string      // base mint
	PoolID       string      // AMM id
	Status       TradeStatus // confirmed | abandoned | failed | skipped
	Attempts     int         // submissions made
	Signature    string      // confirmed signature, empty otherwise
	AmountIn     string      // decimal string, input units
	MinAmountOut string      // decimal string, output units
	ExitReason   string      // sells only
	Error        string      // last error or abandon reason
	StartedAt    int64       // Unix milliseconds
	FinishedAt   int64       // Unix milliseconds
}
