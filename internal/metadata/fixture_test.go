package metadata

import "encoding/binary"

// encodeMetaplex is the inverse of ParseMetaplex without creators.
func encodeMetaplex(m *Metaplex) []byte {
	data := []byte{metadataV1Key}
	data = append(data, m.UpdateAuthority[:]...)
	data = append(data, m.Mint[:]...)
	for _, s := range []struct {
		v   string
		pad int
	}{{m.Name, 32}, {m.Symbol, 10}, {m.URI, 200}} {
		b := make([]byte, s.pad)
		copy(b, s.v)
		data = binary.LittleEndian.AppendUint32(data, uint32(len(b)))
		data = append(data, b...)
	}
	data = binary.LittleEndian.AppendUint16(data, m.SellerFeeBasisPoints)
	data = append(data, 0, boolByte(m.PrimarySaleHappened), boolByte(m.IsMutable))
	return data
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
