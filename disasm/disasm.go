// Package disasm renders a single 6502/65C02 instruction as mnemonic text,
// substituting debug-info symbol names for numeric operands when available.
package disasm

import (
	"fmt"
	"strings"

	"github.com/opcode65/sim65dbg/cpu"
	"github.com/opcode65/sim65dbg/dbginfo"
	"github.com/opcode65/sim65dbg/memory"
)

// Instruction is one disassembled instruction at a given address.
type Instruction struct {
	Address  uint16
	Bytes    []byte
	Mnemonic string
	Length   int
}

// HexBytes renders Bytes as space-separated uppercase hex, matching the
// teacher's disassembly line format.
func (i Instruction) HexBytes() string {
	parts := make([]string, len(i.Bytes))
	for j, b := range i.Bytes {
		parts[j] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, " ")
}

// Disassemble renders the instruction at pc. info may be nil (no symbol
// substitution).
func Disassemble(mem *memory.Memory, pc uint16, info *dbginfo.Info, variant cpu.Variant) Instruction {
	opcode := mem.Read(pc)
	meta := cpu.Table[opcode]

	if !meta.Defined() || (meta.Variant == cpu.Variant65C02 && variant == cpu.Variant6502) {
		return Instruction{
			Address:  pc,
			Bytes:    []byte{opcode},
			Mnemonic: fmt.Sprintf("DB $%02X", opcode),
			Length:   1,
		}
	}

	length := meta.Len
	data := make([]byte, length)
	for i := 0; i < length; i++ {
		data[i] = mem.Read(pc + uint16(i))
	}

	isJump := meta.Mnemonic == "JMP" || meta.Mnemonic == "JSR"

	var operand string
	switch meta.Mode {
	case cpu.ModeImp:
		operand = ""
	case cpu.ModeAcc:
		operand = "A"
	case cpu.ModeImm:
		operand = fmt.Sprintf("#$%02X", data[1])
	case cpu.ModeZp:
		operand = symbolicOperand(info, uint16(data[1]), isJump, "$%02X", "%s")
	case cpu.ModeZpX:
		operand = symbolicOperand(info, uint16(data[1]), isJump, "$%02X,X", "%s,X")
	case cpu.ModeZpY:
		operand = symbolicOperand(info, uint16(data[1]), isJump, "$%02X,Y", "%s,Y")
	case cpu.ModeAbs:
		addr := uint16(data[1]) | uint16(data[2])<<8
		operand = symbolicOperand(info, addr, isJump, "$%04X", "%s")
	case cpu.ModeAbsX:
		addr := uint16(data[1]) | uint16(data[2])<<8
		operand = symbolicOperand(info, addr, isJump, "$%04X,X", "%s,X")
	case cpu.ModeAbsY:
		addr := uint16(data[1]) | uint16(data[2])<<8
		operand = symbolicOperand(info, addr, isJump, "$%04X,Y", "%s,Y")
	case cpu.ModeInd:
		addr := uint16(data[1]) | uint16(data[2])<<8
		operand = symbolicOperand(info, addr, isJump, "($%04X)", "(%s)")
	case cpu.ModeIax:
		addr := uint16(data[1]) | uint16(data[2])<<8
		operand = symbolicOperand(info, addr, isJump, "($%04X,X)", "(%s,X)")
	case cpu.ModeIzx:
		operand = symbolicOperand(info, uint16(data[1]), isJump, "($%02X,X)", "(%s,X)")
	case cpu.ModeIzy:
		operand = symbolicOperand(info, uint16(data[1]), isJump, "($%02X),Y", "(%s),Y")
	case cpu.ModeIzp:
		operand = symbolicOperand(info, uint16(data[1]), isJump, "($%02X)", "(%s)")
	case cpu.ModeRel:
		target := uint16(int32(pc) + 2 + int32(int8(data[1])))
		operand = symbolicOperand(info, target, true, "$%04X", "%s")
	}

	mnemonic := meta.Mnemonic
	if operand != "" {
		mnemonic = meta.Mnemonic + " " + operand
	}

	return Instruction{Address: pc, Bytes: data, Mnemonic: mnemonic, Length: length}
}

// symbolicOperand formats addr numerically unless debug-info names it: an
// exact-address symbol always wins; for non-jump operands with no exact
// match, a label at addr-1 is rendered as "name+1" (spec.md §4.G).
func symbolicOperand(info *dbginfo.Info, addr uint16, isJump bool, numericFmt, symbolFmt string) string {
	if info != nil {
		if sym, ok := info.SymbolFor(uint32(addr)); ok {
			return fmt.Sprintf(symbolFmt, sym.Name)
		}
		if !isJump && addr > 0 {
			if sym, ok := info.SymbolFor(uint32(addr - 1)); ok && sym.Type == "lab" {
				return fmt.Sprintf(symbolFmt, sym.Name+"+1")
			}
		}
	}
	return fmt.Sprintf(numericFmt, addr)
}
