// Package idhash derives deterministic identifiers.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"solana-sniper/internal/domain"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(side|mint|pool_id|started_at_ms)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(side domain.Side, mint, poolID string, startedAtMs int64) string {
	data := fmt.Sprintf("%s|%s|%s|%d", side, mint, poolID, startedAtMs)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
