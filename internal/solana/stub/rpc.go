package stub

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"strconv"
	"sync"

	"github.com/mr-tron/base58"

	"solana-sniper/internal/solana"
)

// ErrNotFound is returned when a token account or mint is not found.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing.
// Every submitted transaction is confirmed unless StatusFunc says otherwise.
type RPCClient struct {
	mu sync.Mutex

	Accounts    map[string]*solana.AccountInfo
	Supplies    map[string]*solana.TokenAmount
	Balances    map[string]*solana.TokenAmount
	BlockHeight uint64

	// SendFunc, when set, replaces the default signature assignment.
	SendFunc func(raw []byte) (string, error)
	// StatusFunc, when set, decides the status of a submitted signature.
	StatusFunc func(signature string) *solana.SignatureStatus

	// Blockhashes lists every blockhash handed out, in order.
	Blockhashes []string
	// Sent lists every raw transaction submitted, in order.
	Sent [][]byte
	// AccountCalls counts getAccountInfo requests per address.
	AccountCalls map[string]int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Accounts:     make(map[string]*solana.AccountInfo),
		Supplies:     make(map[string]*solana.TokenAmount),
		Balances:     make(map[string]*solana.TokenAmount),
		AccountCalls: make(map[string]int),
		BlockHeight:  1000,
	}
}

// SetAccount stores account data owned by owner.
func (c *RPCClient) SetAccount(pubkey, owner string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Accounts[pubkey] = &solana.AccountInfo{
		Lamports: 2039280,
		Owner:    owner,
		Data:     base64.StdEncoding.EncodeToString(data),
	}
}

// SetTokenSupply stores a raw mint supply.
func (c *RPCClient) SetTokenSupply(mint string, raw uint64, decimals int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Supplies[mint] = tokenAmount(raw, decimals)
}

// SetTokenBalance stores a raw token account balance.
func (c *RPCClient) SetTokenBalance(account string, raw uint64, decimals int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Balances[account] = tokenAmount(raw, decimals)
}

// SentCount returns the number of submitted transactions.
func (c *RPCClient) SentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Sent)
}

// IssuedBlockhashes returns a copy of the blockhashes handed out.
func (c *RPCClient) IssuedBlockhashes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.Blockhashes...)
}

// GetAccountInfo returns the stored account or nil.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.AccountCalls[pubkey]++
	info, ok := c.Accounts[pubkey]
	if !ok {
		return nil, nil
	}
	cp := *info
	return &cp, nil
}

// GetMultipleAccounts returns stored accounts in request order.
func (c *RPCClient) GetMultipleAccounts(ctx context.Context, pubkeys []string) ([]*solana.AccountInfo, error) {
	out := make([]*solana.AccountInfo, len(pubkeys))
	for i, pk := range pubkeys {
		info, _ := c.GetAccountInfo(ctx, pk)
		out[i] = info
	}
	return out, nil
}

// GetTokenSupply returns the stored supply.
func (c *RPCClient) GetTokenSupply(_ context.Context, mint string) (*solana.TokenAmount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	amount, ok := c.Supplies[mint]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *amount
	return &cp, nil
}

// GetTokenAccountBalance returns the stored balance.
func (c *RPCClient) GetTokenAccountBalance(_ context.Context, account string) (*solana.TokenAmount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	amount, ok := c.Balances[account]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *amount
	return &cp, nil
}

// GetLatestBlockhash returns a new distinct blockhash on every call.
func (c *RPCClient) GetLatestBlockhash(_ context.Context) (*solana.Blockhash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	seed := make([]byte, 8)
	binary.LittleEndian.PutUint64(seed, uint64(len(c.Blockhashes)))
	hash := sha256.Sum256(seed)
	bh := base58.Encode(hash[:])
	c.Blockhashes = append(c.Blockhashes, bh)
	return &solana.Blockhash{
		Blockhash:            bh,
		LastValidBlockHeight: c.BlockHeight + 150,
	}, nil
}

// GetBlockHeight returns the configured block height.
func (c *RPCClient) GetBlockHeight(_ context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.BlockHeight, nil
}

// SendTransaction records the transaction and assigns a signature.
func (c *RPCClient) SendTransaction(_ context.Context, rawTx []byte, _ *solana.SendOpts) (string, error) {
	c.mu.Lock()
	c.Sent = append(c.Sent, append([]byte(nil), rawTx...))
	n := len(c.Sent)
	send := c.SendFunc
	c.mu.Unlock()

	if send != nil {
		return send(rawTx)
	}
	return "sig-" + strconv.Itoa(n), nil
}

// GetSignatureStatuses reports every signature confirmed unless StatusFunc overrides.
func (c *RPCClient) GetSignatureStatuses(_ context.Context, signatures []string) ([]*solana.SignatureStatus, error) {
	c.mu.Lock()
	statusFn := c.StatusFunc
	c.mu.Unlock()

	out := make([]*solana.SignatureStatus, len(signatures))
	for i, sig := range signatures {
		if statusFn != nil {
			out[i] = statusFn(sig)
			continue
		}
		out[i] = &solana.SignatureStatus{ConfirmationStatus: solana.CommitmentConfirmed}
	}
	return out, nil
}

func tokenAmount(raw uint64, decimals int) *solana.TokenAmount {
	return &solana.TokenAmount{
		Amount:   strconv.FormatUint(raw, 10),
		Decimals: decimals,
	}
}
