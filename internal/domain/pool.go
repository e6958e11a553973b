package domain

// PoolKeys holds every account needed to trade against a Raydium AMM v4 pool.
// Resolved once from the pool state and its OpenBook market; read-only afterwards.
type PoolKeys struct {
	ID               string // AMM account address
	ProgramID        string // AMM program
	Authority        string // AMM authority PDA
	BaseMint         string // traded asset
	QuoteMint        string // payment asset (WSOL / USDC)
	LpMint           string
	BaseDecimals     int
	QuoteDecimals    int
	BaseVault        string
	QuoteVault       string
	LpVault          string
	OpenOrders       string
	TargetOrders     string
	WithdrawQueue    string
	MarketProgramID  string
	MarketID         string
	MarketAuthority  string
	MarketBaseVault  string
	MarketQuoteVault string
	MarketBids       string
	MarketAsks       string
	MarketEventQueue string
	OpenTime         int64  // pool open time, Unix seconds (0 = unknown)
	LpReserve        uint64 // LP amount minted at initialization
}

// PoolState is the subset of the on-chain AMM v4 account the engine reads.
type PoolState struct {
	Status          uint64
	BaseDecimals    int
	QuoteDecimals   int
	OpenTime        int64
	BaseVault       string
	QuoteVault      string
	BaseMint        string
	QuoteMint       string
	LpMint          string
	OpenOrders      string
	MarketID        string
	MarketProgramID string
	TargetOrders    string
	WithdrawQueue   string
	LpVault         string
	Owner           string
	LpReserve       uint64
}

// MarketState is the subset of an OpenBook v3 market account the engine reads.
type MarketState struct {
	ID               string
	VaultSignerNonce uint64
	BaseMint         string
	QuoteMint        string
	BaseVault        string
	QuoteVault       string
	EventQueue       string
	Bids             string
	Asks             string
}

// PoolRecord is a discovered pool kept in pool storage for sell-side resolution.
type PoolRecord struct {
	ID           string
	BaseMint     string
	QuoteMint    string
	State        PoolState
	DiscoveredAt int64 // Unix milliseconds
}
