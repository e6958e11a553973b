package solana

import (
	"encoding/binary"
	"fmt"
)

// SPL Token account sizes.
const (
	TokenAccountSize = 165
	MintAccountSize  = 82
)

// TokenAccountOwnerOffset is the owner offset in a token account, used in memcmp filters.
const TokenAccountOwnerOffset = 32

// TokenAccount is the decoded prefix of an SPL token account.
type TokenAccount struct {
	Mint   PublicKey
	Owner  PublicKey
	Amount uint64
}

// DecodeTokenAccount decodes mint(0..32), owner(32..64), amount(64..72).
func DecodeTokenAccount(data []byte) (*TokenAccount, error) {
	if len(data) < 72 {
		return nil, fmt.Errorf("token account too short: %d bytes", len(data))
	}
	return &TokenAccount{
		Mint:   PublicKeyFromBytes(data[0:32]),
		Owner:  PublicKeyFromBytes(data[32:64]),
		Amount: binary.LittleEndian.Uint64(data[64:72]),
	}, nil
}

// Mint is a decoded SPL mint account.
type Mint struct {
	MintAuthority   *PublicKey
	Supply          uint64
	Decimals        uint8
	IsInitialized   bool
	FreezeAuthority *PublicKey
}

// DecodeMint decodes an SPL mint account.
//
// Layout: mintAuthority COption<Pubkey>(0..36), supply u64(36..44),
// decimals u8(44), isInitialized bool(45), freezeAuthority COption<Pubkey>(46..82).
func DecodeMint(data []byte) (*Mint, error) {
	if len(data) < MintAccountSize {
		return nil, fmt.Errorf("mint account too short: %d bytes", len(data))
	}
	m := &Mint{
		Supply:        binary.LittleEndian.Uint64(data[36:44]),
		Decimals:      data[44],
		IsInitialized: data[45] != 0,
	}
	if binary.LittleEndian.Uint32(data[0:4]) == 1 {
		pk := PublicKeyFromBytes(data[4:36])
		m.MintAuthority = &pk
	}
	if binary.LittleEndian.Uint32(data[46:50]) == 1 {
		pk := PublicKeyFromBytes(data[50:82])
		m.FreezeAuthority = &pk
	}
	return m, nil
}

// EncodeMint is the inverse of DecodeMint. Used to build fixtures.
func EncodeMint(m *Mint) []byte {
	data := make([]byte, MintAccountSize)
	if m.MintAuthority != nil {
		binary.LittleEndian.PutUint32(data[0:4], 1)
		copy(data[4:36], m.MintAuthority[:])
	}
	binary.LittleEndian.PutUint64(data[36:44], m.Supply)
	data[44] = m.Decimals
	if m.IsInitialized {
		data[45] = 1
	}
	if m.FreezeAuthority != nil {
		binary.LittleEndian.PutUint32(data[46:50], 1)
		copy(data[50:82], m.FreezeAuthority[:])
	}
	return data
}

// EncodeTokenAccount builds a minimal initialized token account. Used to build fixtures.
func EncodeTokenAccount(a *TokenAccount) []byte {
	data := make([]byte, TokenAccountSize)
	copy(data[0:32], a.Mint[:])
	copy(data[32:64], a.Owner[:])
	binary.LittleEndian.PutUint64(data[64:72], a.Amount)
	data[108] = 1 // state: initialized
	return data
}
