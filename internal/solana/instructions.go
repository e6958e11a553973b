package solana

import "encoding/binary"

// SetComputeUnitLimit builds a ComputeBudget SetComputeUnitLimit instruction.
func SetComputeUnitLimit(units uint32) Instruction {
	data := make([]byte, 5)
	data[0] = 2
	binary.LittleEndian.PutUint32(data[1:], units)
	return Instruction{ProgramID: ComputeBudgetProgramID, Data: data}
}

// SetComputeUnitPrice builds a ComputeBudget SetComputeUnitPrice instruction (micro-lamports per CU).
func SetComputeUnitPrice(microLamports uint64) Instruction {
	data := make([]byte, 9)
	data[0] = 3
	binary.LittleEndian.PutUint64(data[1:], microLamports)
	return Instruction{ProgramID: ComputeBudgetProgramID, Data: data}
}

// CreateAssociatedTokenAccountIdempotent creates ata for owner/mint unless it already exists.
func CreateAssociatedTokenAccountIdempotent(payer, ata, owner, mint PublicKey) Instruction {
	return Instruction{
		ProgramID: AssociatedTokenProgramID,
		Accounts: []AccountMeta{
			SignerMeta(payer, true),
			WritableMeta(ata),
			Meta(owner),
			Meta(mint),
			Meta(SystemProgramID),
			Meta(TokenProgramID),
		},
		Data: []byte{1},
	}
}

// CloseTokenAccount closes an SPL token account and sends its rent to dest.
func CloseTokenAccount(account, dest, owner PublicKey) Instruction {
	return Instruction{
		ProgramID: TokenProgramID,
		Accounts: []AccountMeta{
			WritableMeta(account),
			WritableMeta(dest),
			SignerMeta(owner, false),
		},
		Data: []byte{9},
	}
}
