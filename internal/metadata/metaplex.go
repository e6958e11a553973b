package metadata

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// metadataV1Key is the account discriminator of Metaplex MetadataV1.
const metadataV1Key = 4

// Metaplex holds the fields of a Metaplex metadata account the filters read.
type Metaplex struct {
	UpdateAuthority      [32]byte
	Mint                 [32]byte
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	PrimarySaleHappened  bool
	IsMutable            bool
}

var errShortMetadata = errors.New("metadata account truncated")

// ParseMetaplex decodes a Metaplex metadata account.
//
// Layout: key u8, updateAuthority [32], mint [32], name/symbol/uri borsh strings,
// sellerFeeBasisPoints u16, creators Option<Vec<{[32], verified u8, share u8}>>,
// primarySaleHappened bool, isMutable bool.
func ParseMetaplex(data []byte) (*Metaplex, error) {
	if len(data) < 65 {
		return nil, errShortMetadata
	}
	if data[0] != metadataV1Key {
		return nil, fmt.Errorf("unexpected metadata key %d", data[0])
	}

	m := &Metaplex{}
	copy(m.UpdateAuthority[:], data[1:33])
	copy(m.Mint[:], data[33:65])

	r := &reader{data: data, off: 65}
	m.Name = r.str(100)
	m.Symbol = r.str(20)
	m.URI = r.str(500)
	m.SellerFeeBasisPoints = r.u16()
	if r.u8() == 1 {
		n := r.u32()
		r.skip(int(n) * 34)
	}
	m.PrimarySaleHappened = r.u8() == 1
	m.IsMutable = r.u8() == 1
	if r.err != nil {
		return nil, r.err
	}
	return m, nil
}


// reader walks borsh-encoded data, recording the first overrun.
type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || r.off+n > len(r.data) {
		r.err = errShortMetadata
		return false
	}
	return true
}

func (r *reader) skip(n int) {
	if r.need(n) {
		r.off += n
	}
}

func (r *reader) u8() byte {
	if !r.need(1) {
		return 0
	}
	v := r.data[r.off]
	r.off++
	return v
}

func (r *reader) u16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

func (r *reader) u32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

func (r *reader) str(max int) string {
	n := int(r.u32())
	if r.err != nil {
		return ""
	}
	if n > max {
		r.err = fmt.Errorf("string length %d exceeds %d", n, max)
		return ""
	}
	if !r.need(n) {
		return ""
	}
	s := strings.TrimRight(string(r.data[r.off:r.off+n]), "\x00")
	r.off += n
	return s
}
