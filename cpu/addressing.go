package cpu

// fetchByte reads the byte at PC and advances PC by one.
func (c *CPU) fetchByte() byte {
	v := c.Memory.Read(c.PC)
	c.PC++
	return v
}

// fetchWord reads the little-endian word at PC and advances PC by two.
func (c *CPU) fetchWord() uint16 {
	v := c.Memory.ReadWord(c.PC)
	c.PC += 2
	return v
}

// readWordZpWrap reads a little-endian word from zero page, wrapping the
// high-byte fetch within page zero (used by (zp,X) and (zp),Y).
func (c *CPU) readWordZpWrap(zp byte) uint16 {
	lo := c.Memory.Read(uint16(zp))
	hi := c.Memory.Read(uint16(byte(zp + 1)))
	return uint16(lo) | uint16(hi)<<8
}

// effectiveAddr resolves mode to an address, fetching operand bytes from
// PC as needed. Not valid for ModeImp, ModeAcc, ModeImm or ModeRel, which
// the caller handles directly.
func (c *CPU) effectiveAddr(mode AddrMode) uint16 {
	switch mode {
	case ModeZp:
		return uint16(c.fetchByte())
	case ModeZpX:
		return uint16(byte(c.fetchByte() + c.X))
	case ModeZpY:
		return uint16(byte(c.fetchByte() + c.Y))
	case ModeAbs:
		return c.fetchWord()
	case ModeAbsX:
		return c.fetchWord() + uint16(c.X)
	case ModeAbsY:
		return c.fetchWord() + uint16(c.Y)
	case ModeIzx:
		zp := c.fetchByte()
		return c.readWordZpWrap(zp + c.X)
	case ModeIzy:
		zp := c.fetchByte()
		base := c.readWordZpWrap(zp)
		return base + uint16(c.Y)
	case ModeIzp:
		zp := c.fetchByte()
		return c.readWordZpWrap(zp)
	case ModeInd:
		ptr := c.fetchWord()
		if c.variant == Variant6502 {
			// Reproduces the 6502 JMP ($xxFF) page-wrap bug: the high
			// byte is fetched from the start of the same page.
			hiAddr := (ptr & 0xFF00) | uint16(byte(ptr)+1)
			lo := c.Memory.Read(ptr)
			hi := c.Memory.Read(hiAddr)
			return uint16(lo) | uint16(hi)<<8
		}
		return c.Memory.ReadWord(ptr)
	case ModeIax:
		base := c.fetchWord()
		return c.Memory.ReadWord(base + uint16(c.X))
	}
	return 0
}

// branchDisplacement fetches the signed 8-bit relative operand.
func (c *CPU) branchDisplacement() int8 {
	return int8(c.fetchByte())
}
