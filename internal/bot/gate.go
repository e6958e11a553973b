package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"solana-sniper/internal/domain"
)

// runGate evaluates the filter gate. With a check interval and duration set,
// the pipeline is re-run every interval until ConsecutiveMatches passes in a
// row or the duration elapses.
func (e *Engine) runGate(ctx context.Context, keys *domain.PoolKeys) domain.FilterResult {
	if e.gate == nil {
		return domain.Pass()
	}
	if e.cfg.FilterCheckInterval <= 0 || e.cfg.FilterCheckDuration <= 0 {
		return e.evaluateGate(ctx, keys)
	}

	ticker := time.NewTicker(e.cfg.FilterCheckInterval)
	defer ticker.Stop()

	deadline := e.now().Add(e.cfg.FilterCheckDuration)
	matches := 0
	last := domain.Fail("filter check window elapsed")
	for {
		res := e.evaluateGate(ctx, keys)
		if res.OK {
			matches++
			e.logger.Debug("filter match",
				zap.String("mint", keys.BaseMint),
				zap.Int("matches", matches),
				zap.Int("required", e.cfg.ConsecutiveMatches),
			)
			if matches >= e.cfg.ConsecutiveMatches {
				return res
			}
		} else {
			matches = 0
			last = res
		}

		if !e.now().Before(deadline) {
			return domain.Fail(fmt.Sprintf("no %d consecutive filter matches within %s: %s",
				e.cfg.ConsecutiveMatches, e.cfg.FilterCheckDuration, last.Message))
		}
		select {
		case <-ctx.Done():
			return domain.Fail(ctx.Err().Error())
		case <-ticker.C:
		}
	}
}

func (e *Engine) evaluateGate(ctx context.Context, keys *domain.PoolKeys) domain.FilterResult {
	start := time.Now()
	res := e.gate.Evaluate(ctx, keys)
	if e.metrics != nil {
		rejectedBy := ""
		if !res.OK {
			rejectedBy = filterName(res.Message)
		}
		e.metrics.RecordFilterResult(rejectedBy, time.Since(start))
	}
	return res
}

// filterName extracts the leading "<name>:" from a failure message.
func filterName(msg string) string {
	name, _, ok := strings.Cut(msg, ":")
	if !ok {
		return "unknown"
	}
	return name
}
