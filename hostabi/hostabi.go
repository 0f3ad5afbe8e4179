// Package hostabi implements the sim65 paravirtualization host: the trap
// dispatcher at the $FFF0-$FFF9 hook page, the file-descriptor table, and
// argv marshalling over the compiled program's software stack.
package hostabi

import (
	"os"

	"github.com/opcode65/sim65dbg/cpu"
	"github.com/opcode65/sim65dbg/memory"
)

// Writer is the minimal sink the console write strategies write to.
type Writer interface {
	Write(p []byte) (int, error)
}

// Hook addresses, per spec.md §4.D / §6.
const (
	HookUnused = 0xFFF0
	HookLseek  = 0xFFF1
	HookRemove = 0xFFF2
	HookErrno  = 0xFFF3
	HookOpen   = 0xFFF4
	HookClose  = 0xFFF5
	HookRead   = 0xFFF6
	HookWrite  = 0xFFF7
	HookArgs   = 0xFFF8
	HookExit   = 0xFFF9

	HookPageStart = 0xFFF0
	HookPageEnd   = 0xFFF9
)

const firstUserFD = 3

// Host holds all paravirtualization state for one session: the
// software-stack pointer location, the descriptor table, buffered console
// input, and the argv vector (spec.md §3 "Host ABI state").
type Host struct {
	mem *memory.Memory
	cpu *cpu.CPU

	spZP uint16

	fds    map[uint16]ioStrategy
	nextFD uint16

	consoleIn       []byte
	waitingForInput bool

	args []string

	exited   bool
	exitCode byte
}

// New creates a Host bound to cpu/mem. spZP is the zero-page address of
// the two-byte software-stack pointer (sim65's sp-zp).
func New(c *cpu.CPU, mem *memory.Memory, spZP uint16) *Host {
	h := &Host{
		mem:    mem,
		cpu:    c,
		spZP:   spZP,
		fds:    make(map[uint16]ioStrategy),
		nextFD: firstUserFD,
	}
	h.fds[0] = &consoleStrategy{host: h}
	h.fds[1] = &consoleStrategy{host: h, out: nil}
	h.fds[2] = &consoleStrategy{host: h, out: nil}
	return h
}

// SetStdout/SetStderr wire the console write strategies to real streams;
// the engine core stays terminal-agnostic (SPEC_FULL.md §3).
func (h *Host) SetStdout(w Writer) { h.fds[1] = &consoleStrategy{host: h, out: w} }
func (h *Host) SetStderr(w Writer) { h.fds[2] = &consoleStrategy{host: h, out: w} }

// SetArgs installs the command-line argument vector the $FFF8 trap
// marshals into the guest.
func (h *Host) SetArgs(args []string) { h.args = args }

// FeedInput appends bytes to the buffered console input and, if the host
// was waiting for input, clears the wait flag so the next trap re-entry
// can complete.
func (h *Host) FeedInput(data []byte) {
	h.consoleIn = append(h.consoleIn, data...)
	h.waitingForInput = false
}

// WaitingForInput reports whether the $FFF6 read trap is blocked on empty
// console input (spec.md §5, suspension point 2).
func (h *Host) WaitingForInput() bool { return h.waitingForInput }

// Exited reports whether the $FFF9 exit trap has fired, and the code it
// carried.
func (h *Host) Exited() (bool, byte) { return h.exited, h.exitCode }

// Close releases every non-console fd (spec.md §5, "on session teardown
// all non-console fds are closed").
func (h *Host) Close() {
	for fd, s := range h.fds {
		if fd >= firstUserFD {
			s.Close()
			delete(h.fds, fd)
		}
	}
}

func (h *Host) ax() uint16 {
	return uint16(h.cpu.A) | uint16(h.cpu.X)<<8
}

func (h *Host) setAX(v uint16) {
	h.cpu.A = byte(v)
	h.cpu.X = byte(v >> 8)
}

// stackCursor reads parameters from the software stack without persisting
// the advance until commit() is called — this is what lets the blocking
// $FFF6 read trap "not pop parameters" when it suspends.
type stackCursor struct {
	mem *memory.Memory
	sp  uint16
}

func (h *Host) cursor() *stackCursor { return &stackCursor{mem: h.mem, sp: h.mem.ReadWord(h.spZP)} }

func (s *stackCursor) popByte() byte {
	v := s.mem.Read(s.sp)
	s.sp++
	return v
}

func (s *stackCursor) popWord() uint16 {
	lo := s.popByte()
	hi := s.popByte()
	return uint16(lo) | uint16(hi)<<8
}

func (s *stackCursor) popLong() uint32 {
	lo := s.popWord()
	hi := s.popWord()
	return uint32(lo) | uint32(hi)<<16
}

func (h *Host) commit(s *stackCursor) {
	h.mem.WriteWord(h.spZP, s.sp)
}

func (h *Host) readCString(addr uint16) string {
	var b []byte
	for {
		c := h.mem.Read(addr)
		if c == 0 {
			break
		}
		b = append(b, c)
		addr++
	}
	return string(b)
}

// Handle is installed as the CPU's TrapHook. It dispatches hook addresses
// to the corresponding ABI operation and returns TrapHalt to abort the
// step (used for exit and for a blocked console read); any other address
// yields TrapContinue, falling through to the RTS the loader pre-fills
// the hook page with (spec.md §6).
func (h *Host) Handle(pc uint16) cpu.TrapResult {
	switch pc {
	case HookLseek:
		h.doLseek()
	case HookRemove:
		h.doRemove()
	case HookErrno:
		h.setAX(0)
	case HookOpen:
		h.doOpen()
	case HookClose:
		h.doClose()
	case HookRead:
		if !h.doRead() {
			return cpu.TrapHalt
		}
	case HookWrite:
		h.doWrite()
	case HookArgs:
		h.doArgs()
	case HookExit:
		h.exited = true
		h.exitCode = h.cpu.A
		return cpu.TrapHalt
	default:
		return cpu.TrapContinue
	}
	return cpu.TrapContinue
}

func (h *Host) doLseek() {
	// whence is the last declared parameter, so it travels in AX; fd and
	// the 32-bit offset are popped from the software stack.
	whence := int(h.ax())
	s := h.cursor()
	fd := s.popWord()
	offset := int64(int32(s.popLong()))
	h.commit(s)

	strat, ok := h.fds[fd]
	if !ok {
		h.setAX(0xFFFF)
		return
	}
	pos, err := strat.Lseek(offset, whence)
	if err != nil {
		h.setAX(0xFFFF)
		return
	}
	h.setAX(uint16(pos))
}

func (h *Host) doRemove() {
	nameAddr := h.ax()
	name := h.readCString(nameAddr)
	if err := os.Remove(name); err != nil {
		h.setAX(0xFFFF)
		return
	}
	h.setAX(0)
}

func (h *Host) doOpen() {
	// mode is the last declared parameter, so it travels in AX; name and
	// flags are popped from the software stack.
	mode := h.ax()
	s := h.cursor()
	nameAddr := s.popWord()
	flags := s.popWord()
	h.commit(s)

	name := h.readCString(nameAddr)
	goFlags := translateOpenFlags(flags)
	f, err := os.OpenFile(name, goFlags, os.FileMode(mode&0o777))
	if err != nil {
		h.setAX(0xFFFF)
		return
	}
	fd := h.nextFD
	h.nextFD++
	h.fds[fd] = &hostFileStrategy{file: f}
	h.setAX(fd)
}

func (h *Host) doClose() {
	fd := h.ax()
	strat, ok := h.fds[fd]
	if !ok {
		h.setAX(0xFFFF)
		return
	}
	if err := strat.Close(); err != nil {
		h.setAX(0xFFFF)
		return
	}
	delete(h.fds, fd)
	h.setAX(0)
}

// doRead returns false when the call must suspend (blocking console read
// with no buffered input): it leaves the stack cursor uncommitted.
func (h *Host) doRead() bool {
	count := h.ax()
	s := h.cursor()
	fd := s.popWord()
	bufAddr := s.popWord()

	if fd == 0 && count > 0 && len(h.consoleIn) == 0 {
		h.waitingForInput = true
		return false
	}

	strat, ok := h.fds[fd]
	if !ok {
		h.commit(s)
		h.setAX(0xFFFF)
		return true
	}
	data, err := strat.Read(int(count))
	if err != nil {
		h.commit(s)
		h.setAX(0xFFFF)
		return true
	}
	for i, b := range data {
		h.mem.Write(bufAddr+uint16(i), b)
	}
	h.commit(s)
	h.setAX(uint16(len(data)))
	return true
}

func (h *Host) doWrite() {
	count := h.ax()
	s := h.cursor()
	fd := s.popWord()
	bufAddr := s.popWord()
	h.commit(s)

	data := make([]byte, count)
	for i := range data {
		data[i] = h.mem.Read(bufAddr + uint16(i))
	}

	strat, ok := h.fds[fd]
	if !ok {
		h.setAX(0xFFFF)
		return
	}
	n, err := strat.Write(data)
	if err != nil {
		h.setAX(0xFFFF)
		return
	}
	h.setAX(uint16(n))
}

// doArgs marshals h.args onto the software stack: each string, then a NULL
// pointer, then each string's address pushed in reverse order so argv[0]
// lands at the lowest (final) address (spec.md §4.D / concrete scenario 3).
func (h *Host) doArgs() {
	outAddr := h.ax()
	sp := h.mem.ReadWord(h.spZP)

	pushBytes := func(data []byte) uint16 {
		sp -= uint16(len(data))
		for i, b := range data {
			h.mem.Write(sp+uint16(i), b)
		}
		return sp
	}
	pushWord := func(v uint16) uint16 {
		sp -= 2
		h.mem.WriteWord(sp, v)
		return sp
	}

	addrs := make([]uint16, len(h.args))
	for i, arg := range h.args {
		addrs[i] = pushBytes(append([]byte(arg), 0))
	}

	pushWord(0) // NULL terminator
	for i := len(addrs) - 1; i >= 0; i-- {
		pushWord(addrs[i])
	}

	h.mem.WriteWord(h.spZP, sp)
	h.mem.WriteWord(outAddr, sp)
	h.setAX(uint16(len(h.args)))
}
