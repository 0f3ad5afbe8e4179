package debugger

import "github.com/opcode65/sim65dbg/memory"

// stepKind tags which variant of the step-mode FSM is active.
type stepKind int

const (
	kindNone stepKind = iota
	kindStepIn
	kindNext
	kindRunTo
	kindStepOut
)

const (
	opJSR byte = 0x20
	opRTS byte = 0x60
)

// AddrRange is a half-open [Start, End) instruction-address range, used to
// bound StepIn/Next to the span the step started in.
type AddrRange struct {
	Start, End uint32
}

func (r AddrRange) contains(pc uint16) bool {
	return uint32(pc) >= r.Start && uint32(pc) < r.End
}

func inAnyRange(ranges []AddrRange, pc uint16) bool {
	for _, r := range ranges {
		if r.contains(pc) {
			return true
		}
	}
	return false
}

// StepMode is the tagged variant driving single-step, step-over, step-in,
// step-out, and run-to-cursor behavior (spec.md §6, "step-mode state
// machine"). The zero value is None, the terminal mode.
type StepMode struct {
	kind    stepKind
	ranges  []AddrRange // StepIn, Next
	target  uint16      // RunTo
	restore *StepMode   // RunTo
	entrySP byte        // StepOut
}

// None is the terminal mode: free-run (or halted) with no FSM in control.
func None() StepMode { return StepMode{kind: kindNone} }

// StepIn steps while PC stays within allowed, stopping (including into a
// callee) the instant it leaves.
func StepIn(allowed []AddrRange) StepMode {
	return StepMode{kind: kindStepIn, ranges: allowed}
}

// Next behaves like StepIn except a JSR is treated as one source line: it
// transitions to RunTo(PC+3, restore=Next) instead of following the call.
func Next(allowed []AddrRange) StepMode {
	return StepMode{kind: kindNext, ranges: allowed}
}

// RunTo runs free until PC == target, then applies restore's own rule once.
// restore may be nil, equivalent to None.
func RunTo(target uint16, restore *StepMode) StepMode {
	return StepMode{kind: kindRunTo, target: target, restore: restore}
}

// StepOut runs until the next RTS whose post-pull SP exceeds entrySP, then
// resolves the return address and transitions to RunTo(retAddr, None).
func StepOut(entrySP byte) StepMode {
	return StepMode{kind: kindStepOut, entrySP: entrySP}
}

// IsNone reports whether m is the terminal mode.
func (m StepMode) IsNone() bool { return m.kind == kindNone }

// decide is consulted before the instruction at pc (opcode already fetched,
// sp is the CPU's stack pointer at that moment) executes. It reports
// whether that instruction should run at all, and which mode governs the
// instruction AFTER it (ignored when execute is false).
func (m StepMode) decide(mem *memory.Memory, pc uint16, opcode byte, sp byte) (execute bool, next StepMode) {
	switch m.kind {
	case kindStepIn:
		if !inAnyRange(m.ranges, pc) {
			return false, None()
		}
		return true, m

	case kindNext:
		if !inAnyRange(m.ranges, pc) {
			return false, None()
		}
		if opcode == opJSR {
			restore := m
			return true, RunTo(pc+3, &restore)
		}
		return true, m

	case kindRunTo:
		if pc != m.target {
			return true, m
		}
		if m.restore == nil {
			return false, None()
		}
		return m.restore.decide(mem, pc, opcode, sp)

	case kindStepOut:
		if opcode == opRTS && uint16(sp)+2 > uint16(m.entrySP) {
			retAddr := readReturnAddr(mem, sp)
			return true, RunTo(retAddr, nil)
		}
		return true, m

	default: // kindNone
		return true, m
	}
}

// readReturnAddr reads the JSR-pushed return address sitting just above sp
// on the hardware stack (page 1) and adjusts for the 6502's "return-1" push
// convention, matching the teacher's backtrace6502 stack-scan arithmetic.
func readReturnAddr(mem *memory.Memory, sp byte) uint16 {
	const stackBase = 0x0100
	lo := mem.Read(stackBase + uint16(sp) + 1)
	hi := mem.Read(stackBase + uint16(sp) + 2)
	return (uint16(hi)<<8 | uint16(lo)) + 1
}
