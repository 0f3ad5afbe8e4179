// Package cpu implements the 6502/65C02 instruction interpreter: register
// file, addressing modes, opcode execution, and the trap/breakpoint hook
// the paravirtualization host and step-mode controller cooperate through.
package cpu

import (
	"errors"
	"fmt"

	"github.com/opcode65/sim65dbg/memory"
)

// Status register bits, lowest to highest.
const (
	FlagC byte = 0x01 // Carry
	FlagZ byte = 0x02 // Zero
	FlagI byte = 0x04 // Interrupt disable
	FlagD byte = 0x08 // Decimal
	FlagB byte = 0x10 // Break
	FlagU byte = 0x20 // Unused, always 1
	FlagV byte = 0x40 // Overflow
	FlagN byte = 0x80 // Negative
)

const (
	StackBase   = 0x0100
	ResetVector = 0xFFFC
	IRQVector   = 0xFFFE
	NMIVector   = 0xFFFA
)

// ErrUndefinedOpcode is returned by Step when the fetched opcode byte has
// no table entry.
var ErrUndefinedOpcode = errors.New("cpu: undefined opcode")

// ErrUnsupportedOpcode is returned by Step when the fetched opcode is a
// 65C02-only instruction and the CPU is configured as a plain 6502.
var ErrUnsupportedOpcode = errors.New("cpu: 65C02 opcode not supported on 6502")

// DecodeError carries the PC and opcode byte of a fetch/decode failure.
type DecodeError struct {
	PC     uint16
	Opcode byte
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v at $%04X (opcode $%02X)", e.Err, e.PC, e.Opcode)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// TrapResult is returned by a TrapHook to tell the CPU whether to abort the
// current step.
type TrapResult int

const (
	// TrapContinue lets the CPU proceed to fetch/decode/execute normally.
	TrapContinue TrapResult = iota
	// TrapHalt aborts the step with zero cycles consumed.
	TrapHalt
)

// TrapHook is consulted with the current PC before every instruction
// fetch. It may mutate registers and memory freely.
type TrapHook func(pc uint16) TrapResult

// Registers is a snapshot of the CPU-visible register file.
type Registers struct {
	A, X, Y, SP, P byte
	PC             uint16
}

// CPU implements the 6502/65C02 instruction interpreter described in
// spec.md §4.C.
type CPU struct {
	Memory *memory.Memory

	A, X, Y, SP, P byte
	PC             uint16

	variant Variant
	cycles  uint64

	trap        TrapHook
	breakpoints map[uint16]map[string]struct{}
}

// New creates a CPU bound to mem, defaulting to the plain 6502 variant.
func New(mem *memory.Memory) *CPU {
	return &CPU{
		Memory:      mem,
		variant:     Variant6502,
		breakpoints: make(map[uint16]map[string]struct{}),
	}
}

// SetCPUType selects which opcode set is legal.
func (c *CPU) SetCPUType(v Variant) { c.variant = v }

// CPUType returns the currently selected variant.
func (c *CPU) CPUType() Variant { return c.variant }

// SetTrapHook installs (or clears, with nil) the paravirtualization hook.
func (c *CPU) SetTrapHook(hook TrapHook) { c.trap = hook }

// Cycles returns the running total of cycles consumed since the last Reset.
func (c *CPU) Cycles() uint64 { return c.cycles }

// Reset sets the CPU to its power-on state and loads PC from the reset
// vector.
func (c *CPU) Reset() {
	c.A, c.X, c.Y = 0, 0, 0
	c.SP = 0xFF
	c.P = FlagU | FlagI
	c.cycles = 0
	c.PC = c.Memory.ReadWord(ResetVector)
}

// GetRegisters returns a copy of the register file.
func (c *CPU) GetRegisters() Registers {
	return Registers{A: c.A, X: c.X, Y: c.Y, SP: c.SP, P: c.P, PC: c.PC}
}

// SetRegisters applies every field of regs to the CPU. Use GetRegisters
// first and mutate the copy to do a partial update.
func (c *CPU) SetRegisters(regs Registers) {
	c.A, c.X, c.Y, c.SP, c.P, c.PC = regs.A, regs.X, regs.Y, regs.SP, regs.P|FlagU, regs.PC
}

// AddBreakpoint arms addr under the given group tag.
func (c *CPU) AddBreakpoint(addr uint16, group string) {
	groups, ok := c.breakpoints[addr]
	if !ok {
		groups = make(map[string]struct{})
		c.breakpoints[addr] = groups
	}
	groups[group] = struct{}{}
}

// RemoveBreakpoint disarms addr for the given group tag. The address stays
// armed if other groups still reference it.
func (c *CPU) RemoveBreakpoint(addr uint16, group string) {
	groups, ok := c.breakpoints[addr]
	if !ok {
		return
	}
	delete(groups, group)
	if len(groups) == 0 {
		delete(c.breakpoints, addr)
	}
}

// ClearBreakpoints removes every breakpoint, or only those under group
// when group is non-empty.
func (c *CPU) ClearBreakpoints(group string) {
	if group == "" {
		c.breakpoints = make(map[uint16]map[string]struct{})
		return
	}
	for addr, groups := range c.breakpoints {
		delete(groups, group)
		if len(groups) == 0 {
			delete(c.breakpoints, addr)
		}
	}
}

// HasBreakpoint reports whether addr is armed by any group.
func (c *CPU) HasBreakpoint(addr uint16) bool {
	groups, ok := c.breakpoints[addr]
	return ok && len(groups) > 0
}

// Breakpoints returns every armed address and its group set, for UI display.
func (c *CPU) Breakpoints() map[uint16]map[string]struct{} {
	return c.breakpoints
}

// Step executes exactly one instruction slice, per spec.md §4.C:
//  1. breakpoint check (unless ignoreBp)
//  2. trap hook consultation
//  3. fetch/decode/execute
//
// It returns the cycles consumed (0 if the step was blocked by a
// breakpoint or a trap halt).
func (c *CPU) Step(ignoreBp bool) (uint32, error) {
	if !ignoreBp && c.HasBreakpoint(c.PC) {
		return 0, nil
	}
	if c.trap != nil && c.trap(c.PC) == TrapHalt {
		return 0, nil
	}

	pc := c.PC
	opcode := c.Memory.Read(c.PC)
	c.PC++

	info := Table[opcode]
	if !info.Defined() {
		return 0, &DecodeError{PC: pc, Opcode: opcode, Err: ErrUndefinedOpcode}
	}
	if info.Variant == Variant65C02 && c.variant == Variant6502 {
		return 0, &DecodeError{PC: pc, Opcode: opcode, Err: ErrUnsupportedOpcode}
	}

	cycles := c.execute(info, opcode)
	c.cycles += uint64(cycles)
	return cycles, nil
}

func (c *CPU) updateNZ(v byte) {
	c.P &^= FlagZ | FlagN
	if v == 0 {
		c.P |= FlagZ
	}
	if v&0x80 != 0 {
		c.P |= FlagN
	}
}

func (c *CPU) setFlag(flag byte, set bool) {
	if set {
		c.P |= flag
	} else {
		c.P &^= flag
	}
}

func (c *CPU) getFlag(flag byte) bool { return c.P&flag != 0 }

func (c *CPU) push(v byte) {
	c.Memory.Write(StackBase+uint16(c.SP), v)
	c.SP--
}

func (c *CPU) push16(v uint16) {
	c.push(byte(v >> 8))
	c.push(byte(v))
}

func (c *CPU) pop() byte {
	c.SP++
	return c.Memory.Read(StackBase + uint16(c.SP))
}

func (c *CPU) pop16() uint16 {
	lo := c.pop()
	hi := c.pop()
	return uint16(lo) | uint16(hi)<<8
}

// handleInterrupt pushes PC and P and jumps to vector, per BRK/IRQ/NMI
// semantics (spec.md §4.C).
func (c *CPU) handleInterrupt(vector uint16, brk bool) {
	c.push16(c.PC)
	flags := c.P | FlagU
	if brk {
		flags |= FlagB
	} else {
		flags &^= FlagB
	}
	c.push(flags)
	c.setFlag(FlagI, true)
	c.PC = c.Memory.ReadWord(vector)
}
