// Package debugger implements the step-mode state machine, synthetic
// call-stack reconstruction, and source-path resolution that sit between
// the bare cpu.CPU interpreter and an embedding editor or REPL (spec.md §6).
package debugger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/opcode65/sim65dbg/cpu"
	"github.com/opcode65/sim65dbg/dbginfo"
	"github.com/opcode65/sim65dbg/hostabi"
	"github.com/opcode65/sim65dbg/memory"
)

// StopReason names why Run returned, mirroring the controller events the
// embedder side expects (spec.md §7, "stopped{reason}").
type StopReason int

const (
	ReasonEntry StopReason = iota
	ReasonBreakpoint
	ReasonStep
	ReasonPause
	ReasonTerminated
	ReasonWaitingForInput
	ReasonError
)

// sliceSize bounds how many instructions Run executes before yielding back
// to the caller even with nothing to report, per spec.md §6 ("the
// controller drives the CPU in slices... between yields to the outside
// scheduler").
const sliceSize = 1000

// maxFramesDefault is used when SetMaxFrames has never been called.
const maxFramesDefault = 64

// Controller drives a cpu.CPU through the step-mode FSM, tracks breakpoint
// groups, and answers stack/source queries for an embedding debugger UI.
type Controller struct {
	CPU    *cpu.CPU
	Memory *memory.Memory
	Info   *dbginfo.Info

	cwd       string
	maxFrames int
	mode      StepMode
	paused    bool

	host *hostabi.Host
}

// NewController wires a controller around an already-constructed CPU/memory
// pair. info may be nil when no .dbg file was loaded.
func NewController(c *cpu.CPU, mem *memory.Memory, info *dbginfo.Info) *Controller {
	cwd, _ := os.Getwd()
	return &Controller{
		CPU:       c,
		Memory:    mem,
		Info:      info,
		cwd:       cwd,
		maxFrames: maxFramesDefault,
	}
}

// SetMaxFrames bounds how many synthetic frames StackTrace reconstructs.
func (ctl *Controller) SetMaxFrames(n int) {
	if n > 0 {
		ctl.maxFrames = n
	}
}

// SetWorkingDir overrides the directory source-relative paths are joined
// against (defaults to the process's CWD).
func (ctl *Controller) SetWorkingDir(dir string) { ctl.cwd = dir }

// SetHost attaches the paravirtualization host so Run can recognize the two
// conditions only it knows about: the $FFF9 exit trap having fired, and a
// blocked $FFF6 console read (spec.md §5's suspension points 1 and 2). A
// Controller with no host attached never reports ReasonTerminated or
// ReasonWaitingForInput.
func (ctl *Controller) SetHost(h *hostabi.Host) { ctl.host = h }

// ExitCode returns the attached host's exit code. Only meaningful once Run
// has returned ReasonTerminated.
func (ctl *Controller) ExitCode() byte {
	if ctl.host == nil {
		return 0
	}
	_, code := ctl.host.Exited()
	return code
}

// AddBreakpoint arms addr under group (spec.md §6, breakpoint groups are
// opaque strings, "often file paths").
func (ctl *Controller) AddBreakpoint(addr uint16, group string) {
	ctl.CPU.AddBreakpoint(addr, group)
}

// RemoveBreakpoint disarms addr for group only.
func (ctl *Controller) RemoveBreakpoint(addr uint16, group string) {
	ctl.CPU.RemoveBreakpoint(addr, group)
}

// ClearBreakpoints removes every breakpoint in group, or every breakpoint
// at all when group is empty.
func (ctl *Controller) ClearBreakpoints(group string) {
	ctl.CPU.ClearBreakpoints(group)
}

// SetBreakpointsForFile replaces every breakpoint in group with one per
// resolved address of lines, per the embedder request
// set_breakpoints(file, lines) (spec.md §6). A line with no matching span
// in the debug info (or no debug info at all) is silently skipped, the way
// an editor breakpoint on a blank or optimized-out line resolves to nothing.
func (ctl *Controller) SetBreakpointsForFile(file string, lines []int, group string) {
	ctl.ClearBreakpoints(group)
	if ctl.Info == nil {
		return
	}
	for _, ln := range lines {
		for _, addr := range ctl.Info.AddrsForLine(file, ln) {
			ctl.AddBreakpoint(uint16(addr), group)
		}
	}
}

// Pause requests that the next Run call return ReasonPause before executing
// any instruction, without waiting for a breakpoint or step completion.
func (ctl *Controller) Pause() { ctl.paused = true }

// StepInto starts a StepIn session bounded to the span containing the
// current PC (falling back to a single-instruction range when no
// debug-info span is known).
func (ctl *Controller) StepInto() {
	ctl.mode = StepIn(ctl.currentSpanRanges())
}

// StepOver starts a Next session: JSRs inside the current span are run to
// completion rather than followed.
func (ctl *Controller) StepOver() {
	ctl.mode = Next(ctl.currentSpanRanges())
}

// StepOutOf starts a StepOut session that runs until the enclosing call
// returns.
func (ctl *Controller) StepOutOf() {
	ctl.mode = StepOut(ctl.CPU.SP)
}

// RunToCursor starts a RunTo session targeting addr with no restore mode.
func (ctl *Controller) RunToCursor(addr uint16) {
	ctl.mode = RunTo(addr, nil)
}

// currentSpanRanges resolves the current PC to its containing debug-info
// span (the smallest one, per dbginfo's specificity ordering) so StepIn/Next
// can bound themselves to "the current source line". With no debug-info
// loaded, it falls back to a single-instruction range so StepInto/StepOver
// behave like plain single-step.
func (ctl *Controller) currentSpanRanges() []AddrRange {
	pc := ctl.CPU.PC
	if ctl.Info != nil {
		if start, end, ok := ctl.Info.SpanRangeFor(uint32(pc)); ok {
			return []AddrRange{{Start: start, End: end}}
		}
	}
	_, info := opcodeAt(ctl.Memory, pc)
	length := uint32(info.Len)
	if length == 0 {
		length = 1
	}
	return []AddrRange{{Start: uint32(pc), End: uint32(pc) + length}}
}

// Run executes instructions until a breakpoint, a step-mode completion, a
// pause request, an error, or sliceSize instructions pass with nothing to
// report — mirroring spec.md §6's slice-at-a-time scheduler handoff.
func (ctl *Controller) Run() (StopReason, error) {
	for i := 0; i < sliceSize; i++ {
		if ctl.host != nil {
			if exited, _ := ctl.host.Exited(); exited {
				return ReasonTerminated, nil
			}
			if ctl.host.WaitingForInput() {
				return ReasonWaitingForInput, nil
			}
		}
		if ctl.paused {
			ctl.paused = false
			return ReasonPause, nil
		}

		pc := ctl.CPU.PC
		stepping := !ctl.mode.IsNone()
		if stepping {
			opcode, _ := opcodeAt(ctl.Memory, pc)
			execute, next := ctl.mode.decide(ctl.Memory, pc, opcode, ctl.CPU.SP)
			ctl.mode = next
			if !execute {
				return ReasonStep, nil
			}
		} else if ctl.CPU.HasBreakpoint(pc) {
			return ReasonBreakpoint, nil
		}

		if _, err := ctl.CPU.Step(stepping); err != nil {
			return ReasonError, err
		}
	}
	return ReasonStep, nil
}

// ReadMemorySegment answers the embedder request read_memory(segId,
// offset, count) (spec.md §6): count bytes starting offset bytes into the
// named debug-info segment. Returns an error if segId names no known
// segment or [offset, offset+count) runs past the segment's declared size.
func (ctl *Controller) ReadMemorySegment(segId int, offset, count uint32) ([]byte, error) {
	if ctl.Info == nil {
		return nil, ErrNoDebugInfo
	}
	seg, ok := ctl.Info.Segment(segId)
	if !ok {
		return nil, fmt.Errorf("read_memory: unknown segment %d", segId)
	}
	if offset+count > seg.Size {
		return nil, fmt.Errorf("read_memory: [%d,%d) runs past segment %q size %d", offset, offset+count, seg.Name, seg.Size)
	}
	out := make([]byte, count)
	for i := uint32(0); i < count; i++ {
		out[i] = ctl.Memory.Read(uint16(seg.Start + offset + i))
	}
	return out, nil
}

// StackTrace reconstructs the synthetic call stack from the current PC and
// SP, bounded by ctl.maxFrames (spec.md §6, "Synthetic call-stack
// reconstruction").
func (ctl *Controller) StackTrace() []Frame {
	return Backtrace(ctl.Memory, ctl.CPU.PC, ctl.CPU.SP, ctl.maxFrames)
}

// SourceFrame resolves a Frame's display name and source file path, per
// spec.md §6 "Source resolution": the scope at that PC (if any, with a
// library-flagged owning file suppressed) names the frame; the debug
// info's line-for query's file is resolved absolute, then CWD-joined, then
// retried one directory up.
type SourceFrame struct {
	PC       uint16
	Name     string // scope name, underscore-stripped; "" if unknown/library
	FilePath string // resolved source path; "" if unresolved
	Line     int    // 0 if unknown
}

// Resolve fills in name/source for one synthetic Frame.
func (ctl *Controller) Resolve(f Frame) SourceFrame {
	out := SourceFrame{PC: f.PC}
	if ctl.Info == nil {
		return out
	}

	if scopes := ctl.Info.ScopesFor(uint32(f.PC)); len(scopes) > 0 {
		scope := scopes[0]
		out.Name = strings.TrimLeft(scope.Name, "_")
	}

	line, ok := ctl.Info.LineFor(uint32(f.PC))
	if !ok {
		return out
	}
	out.Line = line.LineNum
	file, ok := ctl.Info.File(line.FileId)
	if !ok {
		return out
	}
	if file.IsLibrary {
		out.Name = ""
	}
	out.FilePath = ctl.resolveSourcePath(file.Name)
	return out
}

// resolveSourcePath implements the three-step lookup from spec.md §6:
// absolute as-is, else CWD-joined, else retried one directory up.
func (ctl *Controller) resolveSourcePath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	joined := filepath.Join(ctl.cwd, name)
	if _, err := os.Stat(joined); err == nil {
		return joined
	}
	up := filepath.Join(ctl.cwd, "..", name)
	if _, err := os.Stat(up); err == nil {
		return up
	}
	return joined
}
