// Package loader places a program image into guest memory, detecting the
// optional sim65 header that carries load/reset addresses and the target
// CPU variant.
package loader

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/opcode65/sim65dbg/cpu"
	"github.com/opcode65/sim65dbg/hostabi"
	"github.com/opcode65/sim65dbg/memory"
)

var magic = []byte("sim65")

const headerSize = 12

const defaultLoadAddr = 0x0200

// Result reports where the image was placed and what variant/stack base it
// declared, for the caller to configure the CPU and host ABI.
type Result struct {
	LoadAddr  uint16
	ResetAddr uint16
	SPAddr    byte
	CPUType   cpu.Variant
}

// Load writes image into mem, returning the addresses and CPU variant it
// was placed under. forcedLoadAddr, when non-nil, overrides whatever load
// address the header (or the default) would otherwise select.
func Load(mem *memory.Memory, image []byte, forcedLoadAddr *uint16) (Result, error) {
	var r Result
	payload := image
	hadHeader := len(image) >= headerSize && bytes.Equal(image[0:5], magic)

	if hadHeader {
		cpuByte := image[6]
		switch cpuByte {
		case 0:
			r.CPUType = cpu.Variant6502
		case 1:
			r.CPUType = cpu.Variant65C02
		default:
			return Result{}, fmt.Errorf("loader: unknown CPU byte 0x%02X in sim65 header", cpuByte)
		}
		r.SPAddr = image[7]
		r.LoadAddr = binary.LittleEndian.Uint16(image[8:10])
		r.ResetAddr = binary.LittleEndian.Uint16(image[10:12])
		payload = image[headerSize:]
	} else {
		r.CPUType = cpu.Variant6502
		r.LoadAddr = defaultLoadAddr
		r.ResetAddr = r.LoadAddr
	}

	if forcedLoadAddr != nil {
		r.LoadAddr = *forcedLoadAddr
		if !hadHeader {
			r.ResetAddr = r.LoadAddr
		}
	}

	mem.BulkLoad(r.LoadAddr, payload)
	mem.WriteWord(cpu.ResetVector, r.ResetAddr)
	fillHookPage(mem)

	return r, nil
}

// fillHookPage pre-fills $FFF0-$FFF9 with RTS ($60), so a guest's
// JSR to a hook address that the host ABI answers with TrapContinue falls
// straight through to a return instead of whatever byte happened to be
// there (spec.md §4.D / §6).
func fillHookPage(mem *memory.Memory) {
	for addr := uint16(hostabi.HookPageStart); addr <= uint16(hostabi.HookPageEnd); addr++ {
		mem.Write(addr, 0x60)
	}
}
