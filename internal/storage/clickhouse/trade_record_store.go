package clickhouse

import (
	"context"
	"fmt"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// TradeRecordStore implements storage.TradeRecordStore using ClickHouse.
type TradeRecordStore struct {
	conn *Conn
}

// NewTradeRecordStore creates a new TradeRecordStore.
func NewTradeRecordStore(conn *Conn) *TradeRecordStore {
	return &TradeRecordStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TradeRecordStore = (*TradeRecordStore)(nil)

const tradeRecordColumns = `
	trade_id, side, mint, pool_id, status, attempts, signature,
	amount_in, min_amount_out, exit_reason, error, started_at, finished_at
`

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeRecordStore) Insert(ctx context.Context, t *domain.TradeRecord) error {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	// ReplacingMergeTree would silently replace, so uniqueness is checked first.
	exists, err := s.exists(ctx, t.TradeID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	query := `INSERT INTO trade_records (` + tradeRecordColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	err = s.conn.Exec(ctx, query,
		t.TradeID, string(t.Side), t.Mint, t.PoolID, string(t.Status), int64(t.Attempts), t.Signature,
		t.AmountIn, t.MinAmountOut, t.ExitReason, t.Error, t.StartedAt, t.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert trade record: %w", err)
	}
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeRecordStore) GetByID(ctx context.Context, tradeID string) (*domain.TradeRecord, error) {
	query := `SELECT ` + tradeRecordColumns + ` FROM trade_records FINAL WHERE trade_id = ? LIMIT 1`

	rows, err := s.conn.Query(ctx, query, tradeID)
	if err != nil {
		return nil, fmt.Errorf("query trade record: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(trades) == 0 {
		return nil, storage.ErrNotFound
	}
	return trades[0], nil
}

// GetByMint retrieves all trades for a mint, ordered by started_at ASC.
func (s *TradeRecordStore) GetByMint(ctx context.Context, mint string) ([]*domain.TradeRecord, error) {
	query := `SELECT ` + tradeRecordColumns + ` FROM trade_records FINAL
		WHERE mint = ?
		ORDER BY started_at ASC, trade_id ASC`

	rows, err := s.conn.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query by mint: %w", err)
	}
	defer rows.Close()

	return scanTradeRecords(rows)
}

// GetByTimeRange retrieves trades started within [start, end].
func (s *TradeRecordStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.TradeRecord, error) {
	query := `SELECT ` + tradeRecordColumns + ` FROM trade_records FINAL
		WHERE started_at >= ? AND started_at <= ?
		ORDER BY started_at ASC, trade_id ASC`

	rows, err := s.conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanTradeRecords(rows)
}

func (s *TradeRecordStore) exists(ctx context.Context, tradeID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM trade_records FINAL WHERE trade_id = ?`, tradeID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanTradeRecords(rows chRows) ([]*domain.TradeRecord, error) {
	var trades []*domain.TradeRecord

	for rows.Next() {
		var (
			t            domain.TradeRecord
			side, status string
			attempts     int64
		)
		err := rows.Scan(
			&t.TradeID, &side, &t.Mint, &t.PoolID, &status, &attempts, &t.Signature,
			&t.AmountIn, &t.MinAmountOut, &t.ExitReason, &t.Error, &t.StartedAt, &t.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade record row: %w", err)
		}
		t.Side = domain.Side(side)
		t.Status = domain.TradeStatus(status)
		t.Attempts = int(attempts)
		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade record rows: %w", err)
	}

	return trades, nil
}
