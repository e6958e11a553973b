package solana

import "context"

// WSClient defines Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeProgram subscribes to account changes of accounts owned by a program.
	SubscribeProgram(ctx context.Context, filter ProgramFilter) (<-chan ProgramNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// ProgramFilter selects accounts for a programSubscribe subscription.
type ProgramFilter struct {
	ProgramID string
	// DataSize, when non-zero, restricts to accounts of exactly this length.
	DataSize uint64
	Memcmp   []Memcmp
}

// Memcmp matches Bytes (base58) at Offset in account data.
type Memcmp struct {
	Offset uint64
	Bytes  string
}

// ProgramNotification represents a programSubscribe message.
type ProgramNotification struct {
	Pubkey  string
	Slot    int64
	Account AccountInfo
}
