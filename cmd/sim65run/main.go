// Command sim65run is a headless front end over the sim65dbg engine: it
// loads a sim65-headered or raw program image, optionally attaches a cc65
// .dbg file, and either runs the program to completion or drops into a
// line-oriented debugger REPL.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/opcode65/sim65dbg/cpu"
	"github.com/opcode65/sim65dbg/dbginfo"
	"github.com/opcode65/sim65dbg/debugger"
	"github.com/opcode65/sim65dbg/disasm"
	"github.com/opcode65/sim65dbg/hostabi"
	"github.com/opcode65/sim65dbg/loader"
	"github.com/opcode65/sim65dbg/memory"
)

const spZP = 0x00FE

func main() {
	debugMode := flag.Bool("debug", false, "drop into the step/breakpoint REPL instead of running to completion")
	dbgPath := flag.String("dbg", "", "path to a cc65 .dbg file (default: auto-resolved next to the image)")
	loadAddr := flag.String("load-addr", "", "force the load address (hex, e.g. 0x0200), overriding the image header/default")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: sim65run [options] program.bin\n\nRuns a 6502/65C02 program image under the sim65 paravirtualization ABI.\n\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	imagePath := flag.Arg(0)

	var forced *uint16
	if *loadAddr != "" {
		v, err := strconv.ParseUint(strings.TrimPrefix(*loadAddr, "0x"), 16, 16)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: -load-addr: %v\n", err)
			os.Exit(1)
		}
		u := uint16(v)
		forced = &u
	}

	image, err := os.ReadFile(imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	mem := &memory.Memory{}
	result, err := loader.Load(mem, image, forced)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	c := cpu.New(mem)
	c.SetCPUType(result.CPUType)
	c.Reset()
	c.PC = result.ResetAddr

	host := hostabi.New(c, mem, spZP)
	host.SetArgs(append([]string{imagePath}, flag.Args()[1:]...))
	host.SetStdout(os.Stdout)
	host.SetStderr(os.Stderr)
	c.SetTrapHook(host.Handle)

	info := loadDebugInfo(*dbgPath, imagePath)
	ctl := debugger.NewController(c, mem, info)
	ctl.SetHost(host)

	if *debugMode {
		runREPL(ctl, host)
		return
	}
	runToCompletion(ctl, host)
}

// loadDebugInfo resolves and parses a .dbg file, per spec.md §6 "Source
// resolution" and §4.F's ResolveDebugFile search order. A missing or
// unparseable debug file is not fatal: the engine runs symbol-free.
func loadDebugInfo(explicitPath, imagePath string) *dbginfo.Info {
	path := explicitPath
	if path == "" {
		resolved, ok := dbginfo.ResolveDebugFile(imagePath)
		if !ok {
			return nil
		}
		path = resolved
	}
	info, warnings, err := dbginfo.ParseFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not read debug info %s: %v\n", path, err)
		return nil
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %v\n", w)
	}
	return info
}

// runToCompletion drives the program under a raw-mode console, the way the
// teacher's TerminalHost feeds an interactive MMIO device: stdin bytes are
// read non-blocking and handed to the host ABI's console strategy, restoring
// cooked mode on exit or error.
func runToCompletion(ctl *debugger.Controller, host *hostabi.Host) {
	console := newConsoleHost(host)
	console.Start()
	defer console.Stop()

	for {
		reason, err := ctl.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nerror: %v\n", err)
			os.Exit(1)
		}
		switch reason {
		case debugger.ReasonTerminated:
			os.Exit(int(ctl.ExitCode()))
		case debugger.ReasonBreakpoint:
			// No REPL attached in run mode: an armed breakpoint in a
			// non-debug run simply halts.
			fmt.Fprintf(os.Stderr, "\nstopped at breakpoint $%04X\n", ctl.CPU.PC)
			return
		case debugger.ReasonWaitingForInput:
			// The console host goroutine feeds bytes asynchronously;
			// avoid spinning the outer loop ahead of it.
			time.Sleep(5 * time.Millisecond)
		}
	}
}

// runREPL implements the line-oriented debugger commands from spec.md §7:
// step, next, stepout, continue, break <addr>, clear <addr>, disasm [addr],
// regs, bt, quit.
func runREPL(ctl *debugger.Controller, host *hostabi.Host) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Fprintf(os.Stderr, "sim65dbg> ")

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 {
			fmt.Fprintf(os.Stderr, "sim65dbg> ")
			continue
		}

		halt := false
		switch fields[0] {
		case "step", "s":
			ctl.StepInto()
			reason, err := ctl.Run()
			halt = reportStop(ctl, reason, err)
		case "next", "n":
			ctl.StepOver()
			reason, err := ctl.Run()
			halt = reportStop(ctl, reason, err)
		case "stepout", "o":
			ctl.StepOutOf()
			reason, err := ctl.Run()
			halt = reportStop(ctl, reason, err)
		case "continue", "c":
			reason, err := ctl.Run()
			halt = reportStop(ctl, reason, err)
		case "break", "b":
			addr, err := parseAddr(fields)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				break
			}
			ctl.AddBreakpoint(addr, "repl")
			fmt.Fprintf(os.Stderr, "breakpoint set at $%04X\n", addr)
		case "clear":
			addr, err := parseAddr(fields)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				break
			}
			ctl.RemoveBreakpoint(addr, "repl")
		case "disasm", "d":
			printDisasm(ctl, fields)
		case "regs", "r":
			printRegs(ctl.CPU)
		case "bt":
			printBacktrace(ctl)
		case "input", "i":
			host.FeedInput([]byte(strings.TrimPrefix(line, fields[0]) + "\n"))
		case "eval", "e":
			printEval(ctl, fields)
		case "quit", "q":
			return
		default:
			fmt.Fprintf(os.Stderr, "unrecognized command %q\n", fields[0])
		}

		if halt {
			return
		}
		fmt.Fprintf(os.Stderr, "sim65dbg> ")
	}
}

// reportStop prints a step/continue command's outcome and reports whether
// the REPL should stop reading further commands (the program terminated).
func reportStop(ctl *debugger.Controller, reason debugger.StopReason, err error) bool {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return false
	}
	switch reason {
	case debugger.ReasonBreakpoint:
		fmt.Fprintf(os.Stderr, "breakpoint hit at $%04X\n", ctl.CPU.PC)
	case debugger.ReasonStep:
		fmt.Fprintf(os.Stderr, "stopped at $%04X\n", ctl.CPU.PC)
	case debugger.ReasonTerminated:
		fmt.Fprintf(os.Stderr, "program exited with code %d\n", ctl.ExitCode())
		return true
	case debugger.ReasonWaitingForInput:
		fmt.Fprintf(os.Stderr, "waiting for input\n")
	}
	return false
}

func parseAddr(fields []string) (uint16, error) {
	if len(fields) < 2 {
		return 0, fmt.Errorf("usage: %s <addr>", fields[0])
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(fields[1], "$"), 16, 16)
	if err != nil {
		return 0, fmt.Errorf("bad address %q: %w", fields[1], err)
	}
	return uint16(v), nil
}

func printDisasm(ctl *debugger.Controller, fields []string) {
	addr := ctl.CPU.PC
	if len(fields) > 1 {
		if v, err := strconv.ParseUint(strings.TrimPrefix(fields[1], "$"), 16, 16); err == nil {
			addr = uint16(v)
		}
	}
	for i := 0; i < 10; i++ {
		inst := disasm.Disassemble(ctl.Memory, addr, ctl.Info, ctl.CPU.CPUType())
		fmt.Fprintf(os.Stderr, "$%04X  %-10s %s\n", addr, inst.HexBytes(), inst.Mnemonic)
		addr += uint16(inst.Length)
	}
}

func printEval(ctl *debugger.Controller, fields []string) {
	if len(fields) < 2 {
		fmt.Fprintf(os.Stderr, "usage: eval <expr>\n")
		return
	}
	result, err := ctl.Evaluate(strings.Join(fields[1:], ""))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "$%04X:", result.Addr)
	for _, b := range result.Bytes {
		fmt.Fprintf(os.Stderr, " %02X", b)
	}
	fmt.Fprintln(os.Stderr)
}

func printRegs(c *cpu.CPU) {
	r := c.GetRegisters()
	fmt.Fprintf(os.Stderr, "PC=$%04X A=$%02X X=$%02X Y=$%02X SP=$%02X P=$%02X\n",
		r.PC, r.A, r.X, r.Y, r.SP, r.P)
}

func printBacktrace(ctl *debugger.Controller) {
	for i, f := range ctl.StackTrace() {
		src := ctl.Resolve(f)
		if src.Name != "" {
			fmt.Fprintf(os.Stderr, "#%d $%04X in %s (%s:%d)\n", i, f.PC, src.Name, src.FilePath, src.Line)
		} else {
			fmt.Fprintf(os.Stderr, "#%d $%04X\n", i, f.PC)
		}
	}
}
