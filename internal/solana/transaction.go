package solana

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// MaxTransactionSize is the largest serialized transaction a leader accepts.
const MaxTransactionSize = 1232

// ErrMissingSigner is returned when a required signer has no keypair.
var ErrMissingSigner = errors.New("missing signer")

// Keypair is an ed25519 signing key.
type Keypair struct {
	key ed25519.PrivateKey
}

// NewKeypair generates a random keypair.
func NewKeypair() (Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Keypair{}, fmt.Errorf("generate keypair: %w", err)
	}
	return Keypair{key: priv}, nil
}

// KeypairFromBase58 decodes a base58 64-byte secret key (seed followed by public key).
func KeypairFromBase58(s string) (Keypair, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return Keypair{}, fmt.Errorf("decode secret key: %w", err)
	}
	if len(b) != ed25519.PrivateKeySize {
		return Keypair{}, fmt.Errorf("secret key: invalid length %d", len(b))
	}
	priv := ed25519.NewKeyFromSeed(b[:ed25519.SeedSize])
	if !priv.Public().(ed25519.PublicKey).Equal(ed25519.PublicKey(b[ed25519.SeedSize:])) {
		return Keypair{}, errors.New("secret key: public half does not match seed")
	}
	return Keypair{key: priv}, nil
}

// PublicKey returns the public half of the keypair.
func (k Keypair) PublicKey() PublicKey {
	return PublicKeyFromBytes(k.key.Public().(ed25519.PublicKey))
}

// Sign signs message.
func (k Keypair) Sign(message []byte) [64]byte {
	var sig [64]byte
	copy(sig[:], ed25519.Sign(k.key, message))
	return sig
}

// AccountMeta describes one account referenced by an instruction.
type AccountMeta struct {
	PublicKey  PublicKey
	IsSigner   bool
	IsWritable bool
}

// Meta returns a read-only, non-signer account meta.
func Meta(pk PublicKey) AccountMeta { return AccountMeta{PublicKey: pk} }

// WritableMeta returns a writable, non-signer account meta.
func WritableMeta(pk PublicKey) AccountMeta { return AccountMeta{PublicKey: pk, IsWritable: true} }

// SignerMeta returns a signer account meta.
func SignerMeta(pk PublicKey, writable bool) AccountMeta {
	return AccountMeta{PublicKey: pk, IsSigner: true, IsWritable: writable}
}

// Instruction is a single program invocation.
type Instruction struct {
	ProgramID PublicKey
	Accounts  []AccountMeta
	Data      []byte
}

// MessageHeader counts signer and read-only accounts.
type MessageHeader struct {
	NumRequiredSignatures       uint8
	NumReadonlySignedAccounts   uint8
	NumReadonlyUnsignedAccounts uint8
}

// CompiledInstruction references accounts by index into Message.AccountKeys.
type CompiledInstruction struct {
	ProgramIDIndex uint8
	Accounts       []uint8
	Data           []byte
}

// Message is a legacy transaction message.
type Message struct {
	Header          MessageHeader
	AccountKeys     []PublicKey
	RecentBlockhash PublicKey
	Instructions    []CompiledInstruction
}

// Transaction is a legacy transaction with its signatures.
type Transaction struct {
	Signatures [][64]byte
	Message    Message
}

// NewTransaction compiles instructions into an unsigned legacy transaction paid by payer.
func NewTransaction(instructions []Instruction, recentBlockhash string, payer PublicKey) (*Transaction, error) {
	if len(instructions) == 0 {
		return nil, errors.New("transaction has no instructions")
	}
	blockhash, err := ParsePublicKey(recentBlockhash)
	if err != nil {
		return nil, fmt.Errorf("recent blockhash: %w", err)
	}

	// Collect unique accounts in first-seen order, merging privileges.
	metas := []AccountMeta{{PublicKey: payer, IsSigner: true, IsWritable: true}}
	index := map[PublicKey]int{payer: 0}
	add := func(m AccountMeta) {
		if i, ok := index[m.PublicKey]; ok {
			metas[i].IsSigner = metas[i].IsSigner || m.IsSigner
			metas[i].IsWritable = metas[i].IsWritable || m.IsWritable
			return
		}
		index[m.PublicKey] = len(metas)
		metas = append(metas, m)
	}
	for _, ix := range instructions {
		for _, acc := range ix.Accounts {
			add(acc)
		}
		add(AccountMeta{PublicKey: ix.ProgramID})
	}

	// Order: writable signers, readonly signers, writable non-signers, readonly non-signers.
	// Payer stays first.
	var ordered []AccountMeta
	for _, group := range []struct{ signer, writable bool }{
		{true, true}, {true, false}, {false, true}, {false, false},
	} {
		for _, m := range metas {
			if m.IsSigner == group.signer && m.IsWritable == group.writable {
				ordered = append(ordered, m)
			}
		}
	}
	if len(ordered) > 256 {
		return nil, fmt.Errorf("too many accounts: %d", len(ordered))
	}

	msg := Message{RecentBlockhash: blockhash}
	position := make(map[PublicKey]uint8, len(ordered))
	for i, m := range ordered {
		position[m.PublicKey] = uint8(i)
		msg.AccountKeys = append(msg.AccountKeys, m.PublicKey)
		switch {
		case m.IsSigner && !m.IsWritable:
			msg.Header.NumRequiredSignatures++
			msg.Header.NumReadonlySignedAccounts++
		case m.IsSigner:
			msg.Header.NumRequiredSignatures++
		case !m.IsWritable:
			msg.Header.NumReadonlyUnsignedAccounts++
		}
	}

	for _, ix := range instructions {
		compiled := CompiledInstruction{
			ProgramIDIndex: position[ix.ProgramID],
			Data:           ix.Data,
		}
		for _, acc := range ix.Accounts {
			compiled.Accounts = append(compiled.Accounts, position[acc.PublicKey])
		}
		msg.Instructions = append(msg.Instructions, compiled)
	}

	return &Transaction{Message: msg}, nil
}

// Serialize encodes the message in wire format.
func (m *Message) Serialize() []byte {
	buf := []byte{
		m.Header.NumRequiredSignatures,
		m.Header.NumReadonlySignedAccounts,
		m.Header.NumReadonlyUnsignedAccounts,
	}
	buf = appendCompactU16(buf, len(m.AccountKeys))
	for _, k := range m.AccountKeys {
		buf = append(buf, k[:]...)
	}
	buf = append(buf, m.RecentBlockhash[:]...)
	buf = appendCompactU16(buf, len(m.Instructions))
	for _, ix := range m.Instructions {
		buf = append(buf, ix.ProgramIDIndex)
		buf = appendCompactU16(buf, len(ix.Accounts))
		buf = append(buf, ix.Accounts...)
		buf = appendCompactU16(buf, len(ix.Data))
		buf = append(buf, ix.Data...)
	}
	return buf
}

// Sign signs the message with every required signer, replacing existing signatures.
func (tx *Transaction) Sign(signers ...Keypair) error {
	msg := tx.Message.Serialize()
	required := int(tx.Message.Header.NumRequiredSignatures)
	sigs := make([][64]byte, required)
	for i := 0; i < required; i++ {
		key := tx.Message.AccountKeys[i]
		found := false
		for _, s := range signers {
			if s.PublicKey() == key {
				sigs[i] = s.Sign(msg)
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: %s", ErrMissingSigner, key)
		}
	}
	tx.Signatures = sigs
	return nil
}

// Signature returns the base58 fee-payer signature, or "" if unsigned.
func (tx *Transaction) Signature() string {
	if len(tx.Signatures) == 0 {
		return ""
	}
	return base58.Encode(tx.Signatures[0][:])
}

// Serialize encodes the signed transaction in wire format.
func (tx *Transaction) Serialize() ([]byte, error) {
	if len(tx.Signatures) != int(tx.Message.Header.NumRequiredSignatures) {
		return nil, fmt.Errorf("transaction has %d signatures, %d required",
			len(tx.Signatures), tx.Message.Header.NumRequiredSignatures)
	}
	buf := appendCompactU16(nil, len(tx.Signatures))
	for _, s := range tx.Signatures {
		buf = append(buf, s[:]...)
	}
	buf = append(buf, tx.Message.Serialize()...)
	if len(buf) > MaxTransactionSize {
		return nil, fmt.Errorf("transaction too large: %d bytes", len(buf))
	}
	return buf, nil
}

// appendCompactU16 appends n in the shortvec encoding.
func appendCompactU16(buf []byte, n int) []byte {
	v := uint16(n)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}
