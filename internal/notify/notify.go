// Package notify delivers best-effort trade notifications.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Kind classifies an Event.
type Kind string

// Kinds in workflow order: a candidate passes the filters, the buy confirms
// or fails, an exit triggers, the sell confirms or fails.
const (
	KindBuyCandidate Kind = "buy_candidate"
	KindBuy          Kind = "buy"
	KindBuyFailed    Kind = "buy_failed"
	KindExitTrigger  Kind = "exit_trigger"
	KindSell         Kind = "sell"
	KindSellFailed   Kind = "sell_failed"
	KindStartup      Kind = "startup"
)

// Event is one notification. Zero-valued fields are omitted by sinks.
type Event struct {
	Kind       Kind      `json:"kind"`
	Mint       string    `json:"mint,omitempty"`
	PoolID     string    `json:"pool_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	Signature  string    `json:"signature,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	PNLPercent string    `json:"pnl_percent,omitempty"`
	Message    string    `json:"message,omitempty"`
	At         time.Time `json:"at"`
}

// Notifier delivers events. Implementations must not block the caller on delivery
// and must not return delivery failures to it.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// LogNotifier writes events to a zap logger.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, ev Event) {
	fields := []zap.Field{zap.String("kind", string(ev.Kind))}
	for _, f := range []struct{ key, val string }{
		{"mint", ev.Mint},
		{"pool", ev.PoolID},
		{"status", ev.Status},
		{"signature", ev.Signature},
		{"reason", ev.Reason},
		{"pnl_percent", ev.PNLPercent},
	} {
		if f.val != "" {
			fields = append(fields, zap.String(f.key, f.val))
		}
	}
	n.logger.Info(ev.Message, fields...)
}

// Multi fans an event out to several notifiers.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, ev Event) {
	for _, n := range m {
		n.Notify(ctx, ev)
	}
}

// Nop discards events.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, Event) {}
