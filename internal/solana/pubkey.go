package solana

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PublicKeyLength is the byte length of a Solana public key.
const PublicKeyLength = 32

// Well-known program and mint addresses.
var (
	SystemProgramID           = MustPublicKey("11111111111111111111111111111111")
	TokenProgramID            = MustPublicKey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenProgramID  = MustPublicKey("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	ComputeBudgetProgramID    = MustPublicKey("ComputeBudget111111111111111111111111111111")
	MetaplexMetadataProgramID = MustPublicKey("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")
	WrappedSOLMint            = MustPublicKey("So11111111111111111111111111111111111111112")
	USDCMint                  = MustPublicKey("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
)

// ErrNoViableBump is returned when no bump seed yields an off-curve address.
var ErrNoViableBump = errors.New("unable to find a viable program address bump seed")

// PublicKey is a 32-byte ed25519 public key or program address.
type PublicKey [PublicKeyLength]byte

// ParsePublicKey decodes a base58 address.
func ParsePublicKey(s string) (PublicKey, error) {
	var pk PublicKey
	b, err := base58.Decode(s)
	if err != nil {
		return pk, fmt.Errorf("decode public key %q: %w", s, err)
	}
	if len(b) != PublicKeyLength {
		return pk, fmt.Errorf("public key %q: invalid length %d", s, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// MustPublicKey decodes a base58 address and panics on failure.
// Only for compile-time constants.
func MustPublicKey(s string) PublicKey {
	pk, err := ParsePublicKey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// PublicKeyFromBytes copies the first 32 bytes of b into a PublicKey.
func PublicKeyFromBytes(b []byte) PublicKey {
	var pk PublicKey
	copy(pk[:], b)
	return pk
}

// String returns the base58 encoding.
func (pk PublicKey) String() string {
	return base58.Encode(pk[:])
}

// Bytes returns a copy of the key bytes.
func (pk PublicKey) Bytes() []byte {
	b := make([]byte, PublicKeyLength)
	copy(b, pk[:])
	return b
}

// IsZero reports whether the key is all zeroes.
func (pk PublicKey) IsZero() bool {
	return pk == PublicKey{}
}

// CreateProgramAddress derives a program address from seeds without bump search.
// Returns an error if the result lies on the ed25519 curve.
func CreateProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, error) {
	var data []byte
	for _, seed := range seeds {
		if len(seed) > 32 {
			return PublicKey{}, fmt.Errorf("seed too long: %d", len(seed))
		}
		data = append(data, seed...)
	}
	data = append(data, programID[:]...)
	data = append(data, []byte("ProgramDerivedAddress")...)

	hash := sha256.Sum256(data)
	if isOnCurve(hash[:]) {
		return PublicKey{}, errors.New("derived address is on curve")
	}
	return PublicKey(hash), nil
}

// FindProgramAddress searches bump seeds from 255 down for an off-curve address.
func FindProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, uint8, error) {
	for bump := 255; bump > 0; bump-- {
		withBump := append(append([][]byte{}, seeds...), []byte{byte(bump)})
		pk, err := CreateProgramAddress(withBump, programID)
		if err == nil {
			return pk, uint8(bump), nil
		}
	}
	return PublicKey{}, 0, ErrNoViableBump
}

// FindAssociatedTokenAddress derives the associated token account of owner for mint.
func FindAssociatedTokenAddress(owner, mint PublicKey) (PublicKey, error) {
	pk, _, err := FindProgramAddress([][]byte{
		owner[:],
		TokenProgramID[:],
		mint[:],
	}, AssociatedTokenProgramID)
	return pk, err
}

// FindMetadataAddress derives the Metaplex metadata PDA for a mint.
// Seeds: ["metadata", metaplex_program_id, mint]
func FindMetadataAddress(mint PublicKey) (PublicKey, error) {
	pk, _, err := FindProgramAddress([][]byte{
		[]byte("metadata"),
		MetaplexMetadataProgramID[:],
		mint[:],
	}, MetaplexMetadataProgramID)
	return pk, err
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
