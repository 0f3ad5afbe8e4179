// Package memory implements the simulator's flat 64 KiB address space.
package memory

// Memory is a 64 KiB byte array with wrap-around addressing. The zero value
// is a ready-to-use all-zero image.
type Memory struct {
	bytes [65536]byte
}

// Read returns the byte at addr, wrapping the address modulo 65536.
func (m *Memory) Read(addr uint16) byte {
	return m.bytes[addr]
}

// Write stores value at addr, wrapping the address modulo 65536.
func (m *Memory) Write(addr uint16, value byte) {
	m.bytes[addr] = value
}

// ReadWord reads a little-endian 16-bit value at addr. addr+1 wraps to 0
// when addr is 0xFFFF.
func (m *Memory) ReadWord(addr uint16) uint16 {
	lo := m.bytes[addr]
	hi := m.bytes[addr+1]
	return uint16(lo) | uint16(hi)<<8
}

// WriteWord stores a little-endian 16-bit value at addr, wrapping as ReadWord does.
func (m *Memory) WriteWord(addr uint16, value uint16) {
	m.bytes[addr] = byte(value)
	m.bytes[addr+1] = byte(value >> 8)
}

// BulkLoad copies bytes into memory starting at addr, wrapping addresses
// that overflow past $FFFF back to $0000.
func (m *Memory) BulkLoad(addr uint16, data []byte) {
	a := addr
	for _, b := range data {
		m.bytes[a] = b
		a++
	}
}

// Bytes returns a slice view of the full address space, for bulk
// inspection (e.g. a debugger's read_memory request over a span).
func (m *Memory) Bytes() []byte {
	return m.bytes[:]
}
