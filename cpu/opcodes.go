package cpu

// AddrMode names the operand-fetch strategy for one opcode.
type AddrMode int

const (
	ModeImp AddrMode = iota // implied, no operand
	ModeAcc                 // accumulator
	ModeImm                 // #nn
	ModeZp                  // nn
	ModeZpX                 // nn,X
	ModeZpY                 // nn,Y
	ModeAbs                 // nnnn
	ModeAbsX                // nnnn,X
	ModeAbsY                // nnnn,Y
	ModeInd                 // (nnnn) -- JMP only
	ModeIzx                 // (nn,X)
	ModeIzy                 // (nn),Y
	ModeIzp                 // (nn) -- 65C02 zero-page indirect
	ModeIax                 // (nnnn,X) -- 65C02 JMP
	ModeRel                 // signed branch displacement
)

// Variant identifies which CPU family an opcode belongs to.
type Variant int

const (
	Variant6502 Variant = iota
	Variant65C02
)

// OpcodeInfo is the static metadata the interpreter, the disassembler and
// the step-mode controller all share for one opcode byte.
type OpcodeInfo struct {
	Mnemonic string
	Mode     AddrMode
	Cycles   int // base cycles, not counting branch/page-cross adjustments
	Variant  Variant
	Len      int // total instruction length including the opcode byte
}

// Defined reports whether this table slot names a real opcode.
func (o OpcodeInfo) Defined() bool { return o.Mnemonic != "" }

func modeLen(mode AddrMode) int {
	switch mode {
	case ModeImp, ModeAcc:
		return 1
	case ModeImm, ModeZp, ModeZpX, ModeZpY, ModeIzx, ModeIzy, ModeIzp, ModeRel:
		return 2
	case ModeAbs, ModeAbsX, ModeAbsY, ModeInd, ModeIax:
		return 3
	}
	return 1
}

func op(mnemonic string, mode AddrMode, cycles int, variant Variant) OpcodeInfo {
	return OpcodeInfo{Mnemonic: mnemonic, Mode: mode, Cycles: cycles, Variant: variant, Len: modeLen(mode)}
}

// Table is the 256-entry opcode table. Unfilled slots are undefined
// opcodes; encountering one is a fatal decode error (spec.md §4.B).
var Table = buildTable()

func buildTable() [256]OpcodeInfo {
	var t [256]OpcodeInfo

	c6 := func(mnemonic string, mode AddrMode, cycles int) OpcodeInfo { return op(mnemonic, mode, cycles, Variant6502) }
	c02 := func(mnemonic string, mode AddrMode, cycles int) OpcodeInfo { return op(mnemonic, mode, cycles, Variant65C02) }

	// 0x00-0x0F
	t[0x00] = c6("BRK", ModeImp, 7)
	t[0x01] = c6("ORA", ModeIzx, 6)
	t[0x04] = c02("TSB", ModeZp, 5)
	t[0x05] = c6("ORA", ModeZp, 3)
	t[0x06] = c6("ASL", ModeZp, 5)
	t[0x08] = c6("PHP", ModeImp, 3)
	t[0x09] = c6("ORA", ModeImm, 2)
	t[0x0A] = c6("ASL", ModeAcc, 2)
	t[0x0C] = c02("TSB", ModeAbs, 6)
	t[0x0D] = c6("ORA", ModeAbs, 4)
	t[0x0E] = c6("ASL", ModeAbs, 6)

	// 0x10-0x1F
	t[0x10] = c6("BPL", ModeRel, 2)
	t[0x11] = c6("ORA", ModeIzy, 5)
	t[0x12] = c02("ORA", ModeIzp, 5)
	t[0x14] = c02("TRB", ModeZp, 5)
	t[0x15] = c6("ORA", ModeZpX, 4)
	t[0x16] = c6("ASL", ModeZpX, 6)
	t[0x18] = c6("CLC", ModeImp, 2)
	t[0x19] = c6("ORA", ModeAbsY, 4)
	t[0x1A] = c02("INC", ModeAcc, 2)
	t[0x1C] = c02("TRB", ModeAbs, 6)
	t[0x1D] = c6("ORA", ModeAbsX, 4)
	t[0x1E] = c6("ASL", ModeAbsX, 7)

	// 0x20-0x2F
	t[0x20] = c6("JSR", ModeAbs, 6)
	t[0x21] = c6("AND", ModeIzx, 6)
	t[0x24] = c6("BIT", ModeZp, 3)
	t[0x25] = c6("AND", ModeZp, 3)
	t[0x26] = c6("ROL", ModeZp, 5)
	t[0x28] = c6("PLP", ModeImp, 4)
	t[0x29] = c6("AND", ModeImm, 2)
	t[0x2A] = c6("ROL", ModeAcc, 2)
	t[0x2C] = c6("BIT", ModeAbs, 4)
	t[0x2D] = c6("AND", ModeAbs, 4)
	t[0x2E] = c6("ROL", ModeAbs, 6)

	// 0x30-0x3F
	t[0x30] = c6("BMI", ModeRel, 2)
	t[0x31] = c6("AND", ModeIzy, 5)
	t[0x32] = c02("AND", ModeIzp, 5)
	t[0x34] = c02("BIT", ModeZpX, 4)
	t[0x35] = c6("AND", ModeZpX, 4)
	t[0x36] = c6("ROL", ModeZpX, 6)
	t[0x38] = c6("SEC", ModeImp, 2)
	t[0x39] = c6("AND", ModeAbsY, 4)
	t[0x3A] = c02("DEC", ModeAcc, 2)
	t[0x3C] = c02("BIT", ModeAbsX, 4)
	t[0x3D] = c6("AND", ModeAbsX, 4)
	t[0x3E] = c6("ROL", ModeAbsX, 7)

	// 0x40-0x4F
	t[0x40] = c6("RTI", ModeImp, 6)
	t[0x41] = c6("EOR", ModeIzx, 6)
	t[0x45] = c6("EOR", ModeZp, 3)
	t[0x46] = c6("LSR", ModeZp, 5)
	t[0x48] = c6("PHA", ModeImp, 3)
	t[0x49] = c6("EOR", ModeImm, 2)
	t[0x4A] = c6("LSR", ModeAcc, 2)
	t[0x4C] = c6("JMP", ModeAbs, 3)
	t[0x4D] = c6("EOR", ModeAbs, 4)
	t[0x4E] = c6("LSR", ModeAbs, 6)

	// 0x50-0x5F
	t[0x50] = c6("BVC", ModeRel, 2)
	t[0x51] = c6("EOR", ModeIzy, 5)
	t[0x52] = c02("EOR", ModeIzp, 5)
	t[0x55] = c6("EOR", ModeZpX, 4)
	t[0x56] = c6("LSR", ModeZpX, 6)
	t[0x58] = c6("CLI", ModeImp, 2)
	t[0x59] = c6("EOR", ModeAbsY, 4)
	t[0x5A] = c02("PHY", ModeImp, 3)
	t[0x5D] = c6("EOR", ModeAbsX, 4)
	t[0x5E] = c6("LSR", ModeAbsX, 7)

	// 0x60-0x6F
	t[0x60] = c6("RTS", ModeImp, 6)
	t[0x61] = c6("ADC", ModeIzx, 6)
	t[0x65] = c6("ADC", ModeZp, 3)
	t[0x66] = c6("ROR", ModeZp, 5)
	t[0x68] = c6("PLA", ModeImp, 4)
	t[0x69] = c6("ADC", ModeImm, 2)
	t[0x6A] = c6("ROR", ModeAcc, 2)
	t[0x6C] = c6("JMP", ModeInd, 5)
	t[0x6D] = c6("ADC", ModeAbs, 4)
	t[0x6E] = c6("ROR", ModeAbs, 6)

	// 0x70-0x7F
	t[0x70] = c6("BVS", ModeRel, 2)
	t[0x71] = c6("ADC", ModeIzy, 5)
	t[0x72] = c02("ADC", ModeIzp, 5)
	t[0x74] = c02("STZ", ModeZpX, 4)
	t[0x75] = c6("ADC", ModeZpX, 4)
	t[0x76] = c6("ROR", ModeZpX, 6)
	t[0x78] = c6("SEI", ModeImp, 2)
	t[0x79] = c6("ADC", ModeAbsY, 4)
	t[0x7A] = c02("PLY", ModeImp, 4)
	t[0x7C] = c02("JMP", ModeIax, 6)
	t[0x7D] = c6("ADC", ModeAbsX, 4)
	t[0x7E] = c6("ROR", ModeAbsX, 7)

	// 0x80-0x8F
	t[0x80] = c02("BRA", ModeRel, 2)
	t[0x81] = c6("STA", ModeIzx, 6)
	t[0x84] = c6("STY", ModeZp, 3)
	t[0x85] = c6("STA", ModeZp, 3)
	t[0x86] = c6("STX", ModeZp, 3)
	t[0x88] = c6("DEY", ModeImp, 2)
	t[0x89] = c02("BIT", ModeImm, 2)
	t[0x8A] = c6("TXA", ModeImp, 2)
	t[0x8C] = c6("STY", ModeAbs, 4)
	t[0x8D] = c6("STA", ModeAbs, 4)
	t[0x8E] = c6("STX", ModeAbs, 4)

	// 0x90-0x9F
	t[0x90] = c6("BCC", ModeRel, 2)
	t[0x91] = c6("STA", ModeIzy, 6)
	t[0x92] = c02("STA", ModeIzp, 5)
	t[0x94] = c6("STY", ModeZpX, 4)
	t[0x95] = c6("STA", ModeZpX, 4)
	t[0x96] = c6("STX", ModeZpY, 4)
	t[0x98] = c6("TYA", ModeImp, 2)
	t[0x99] = c6("STA", ModeAbsY, 5)
	t[0x9A] = c6("TXS", ModeImp, 2)
	t[0x9C] = c02("STZ", ModeAbs, 4)
	t[0x9D] = c6("STA", ModeAbsX, 5)
	t[0x9E] = c02("STZ", ModeAbsX, 5)

	// 0xA0-0xAF
	t[0xA0] = c6("LDY", ModeImm, 2)
	t[0xA1] = c6("LDA", ModeIzx, 6)
	t[0xA2] = c6("LDX", ModeImm, 2)
	t[0xA4] = c6("LDY", ModeZp, 3)
	t[0xA5] = c6("LDA", ModeZp, 3)
	t[0xA6] = c6("LDX", ModeZp, 3)
	t[0xA8] = c6("TAY", ModeImp, 2)
	t[0xA9] = c6("LDA", ModeImm, 2)
	t[0xAA] = c6("TAX", ModeImp, 2)
	t[0xAC] = c6("LDY", ModeAbs, 4)
	t[0xAD] = c6("LDA", ModeAbs, 4)
	t[0xAE] = c6("LDX", ModeAbs, 4)

	// 0xB0-0xBF
	t[0xB0] = c6("BCS", ModeRel, 2)
	t[0xB1] = c6("LDA", ModeIzy, 5)
	t[0xB2] = c02("LDA", ModeIzp, 5)
	t[0xB4] = c6("LDY", ModeZpX, 4)
	t[0xB5] = c6("LDA", ModeZpX, 4)
	t[0xB6] = c6("LDX", ModeZpY, 4)
	t[0xB8] = c6("CLV", ModeImp, 2)
	t[0xB9] = c6("LDA", ModeAbsY, 4)
	t[0xBA] = c6("TSX", ModeImp, 2)
	t[0xBC] = c6("LDY", ModeAbsX, 4)
	t[0xBD] = c6("LDA", ModeAbsX, 4)
	t[0xBE] = c6("LDX", ModeAbsY, 4)

	// 0xC0-0xCF
	t[0xC0] = c6("CPY", ModeImm, 2)
	t[0xC1] = c6("CMP", ModeIzx, 6)
	t[0xC4] = c6("CPY", ModeZp, 3)
	t[0xC5] = c6("CMP", ModeZp, 3)
	t[0xC6] = c6("DEC", ModeZp, 5)
	t[0xC8] = c6("INY", ModeImp, 2)
	t[0xC9] = c6("CMP", ModeImm, 2)
	t[0xCA] = c6("DEX", ModeImp, 2)
	t[0xCC] = c6("CPY", ModeAbs, 4)
	t[0xCD] = c6("CMP", ModeAbs, 4)
	t[0xCE] = c6("DEC", ModeAbs, 6)

	// 0xD0-0xDF
	t[0xD0] = c6("BNE", ModeRel, 2)
	t[0xD1] = c6("CMP", ModeIzy, 5)
	t[0xD2] = c02("CMP", ModeIzp, 5)
	t[0xD5] = c6("CMP", ModeZpX, 4)
	t[0xD6] = c6("DEC", ModeZpX, 6)
	t[0xD8] = c6("CLD", ModeImp, 2)
	t[0xD9] = c6("CMP", ModeAbsY, 4)
	t[0xDA] = c02("PHX", ModeImp, 3)
	t[0xDD] = c6("CMP", ModeAbsX, 4)
	t[0xDE] = c6("DEC", ModeAbsX, 7)

	// 0xE0-0xEF
	t[0xE0] = c6("CPX", ModeImm, 2)
	t[0xE1] = c6("SBC", ModeIzx, 6)
	t[0xE4] = c6("CPX", ModeZp, 3)
	t[0xE5] = c6("SBC", ModeZp, 3)
	t[0xE6] = c6("INC", ModeZp, 5)
	t[0xE8] = c6("INX", ModeImp, 2)
	t[0xE9] = c6("SBC", ModeImm, 2)
	t[0xEA] = c6("NOP", ModeImp, 2)
	t[0xEC] = c6("CPX", ModeAbs, 4)
	t[0xED] = c6("SBC", ModeAbs, 4)
	t[0xEE] = c6("INC", ModeAbs, 6)

	// 0xF0-0xFF
	t[0xF0] = c6("BEQ", ModeRel, 2)
	t[0xF1] = c6("SBC", ModeIzy, 5)
	t[0xF2] = c02("SBC", ModeIzp, 5)
	t[0xF5] = c6("SBC", ModeZpX, 4)
	t[0xF6] = c6("INC", ModeZpX, 6)
	t[0xF8] = c6("SED", ModeImp, 2)
	t[0xF9] = c6("SBC", ModeAbsY, 4)
	t[0xFA] = c02("PLX", ModeImp, 4)
	t[0xFD] = c6("SBC", ModeAbsX, 4)
	t[0xFE] = c6("INC", ModeAbsX, 7)

	return t
}
