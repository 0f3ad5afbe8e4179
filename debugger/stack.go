package debugger

import (
	"github.com/opcode65/sim65dbg/cpu"
	"github.com/opcode65/sim65dbg/memory"
)

// Frame is one entry in a synthetic call stack: either the live PC (frame
// 0) or a call site reconstructed by scanning the hardware stack for a
// plausible JSR return address.
type Frame struct {
	PC uint16
}

// Backtrace scans page 1 from SP+1 upward for JSR return-address patterns
// and reconstructs up to maxFrames call frames, per spec.md's synthetic
// stack-reconstruction design (concrete scenario 5) and grounded on the
// teacher's backtrace6502 stack walk. Frame 0 is always the live PC;
// subsequent frames are call sites, most recent first. The hardware stack
// carries no frame markers, so bytes are only consumed in matching (low,
// high) pairs that decode to a genuine JSR site — a false match simply
// isn't found and the scan stops.
func Backtrace(mem *memory.Memory, pc uint16, sp byte, maxFrames int) []Frame {
	if maxFrames <= 0 {
		return nil
	}
	frames := []Frame{{PC: pc}}

	addr := uint16(0x0100) + uint16(sp) + 1
	for len(frames) < maxFrames && addr <= 0x01FE {
		lo := mem.Read(addr)
		hi := mem.Read(addr + 1)
		retAddr := uint16(hi)<<8 | uint16(lo)
		jsrAddr := retAddr - 2

		if mem.Read(jsrAddr) != opJSR {
			break
		}
		frames = append(frames, Frame{PC: jsrAddr})
		addr += 2
	}
	return frames
}

// opcodeAt is a small convenience used by the controller to fetch the byte
// about to execute without duplicating cpu.Table lookups in two places.
func opcodeAt(mem *memory.Memory, pc uint16) (byte, cpu.OpcodeInfo) {
	op := mem.Read(pc)
	return op, cpu.Table[op]
}
