package debugger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoDebugInfo is returned by Evaluate when expr names a symbol but no
// debug info is attached to the controller, so the name can't be resolved.
var ErrNoDebugInfo = errors.New("debugger: no debug info loaded")

// EvalResult is the outcome of resolving an evaluate expression: the
// effective address the expression named, and the bytes read there.
type EvalResult struct {
	Addr  uint16
	Bytes []byte
}

// Evaluate resolves expr per spec.md §6's expression grammar:
//
//	base    := "$" hex | name
//	expr    := base | base "," ("X" | "Y") | "(" base ")" | "(" base ")" ",Y"
//
// A bare name resolves through the attached debug info's symbols-by-name
// index; size comes from the symbol's Size field if present, else one byte.
// Indirect forms ("(name)", "(name),Y") always read one byte at the
// computed effective address, regardless of the pointed-to symbol's size.
func (ctl *Controller) Evaluate(expr string) (EvalResult, error) {
	expr = strings.TrimSpace(expr)

	indirect := false
	postY := false
	if strings.HasPrefix(expr, "(") {
		close := strings.Index(expr, ")")
		if close < 0 {
			return EvalResult{}, fmt.Errorf("evaluate: unbalanced parens in %q", expr)
		}
		rest := expr[close+1:]
		switch rest {
		case "":
		case ",Y":
			postY = true
		default:
			return EvalResult{}, fmt.Errorf("evaluate: unexpected trailer %q after %q", rest, expr[:close+1])
		}
		indirect = true
		expr = expr[1:close]
	}

	var regIndex byte // 0, 'X', or 'Y'
	if !indirect {
		switch {
		case strings.HasSuffix(expr, ",X"):
			regIndex = 'X'
			expr = strings.TrimSuffix(expr, ",X")
		case strings.HasSuffix(expr, ",Y"):
			regIndex = 'Y'
			expr = strings.TrimSuffix(expr, ",Y")
		}
	}

	addr, size, err := ctl.resolveBase(expr)
	if err != nil {
		return EvalResult{}, err
	}

	switch regIndex {
	case 'X':
		addr += uint16(ctl.CPU.X)
	case 'Y':
		addr += uint16(ctl.CPU.Y)
	}

	if indirect {
		ptr := ctl.Memory.ReadWord(addr)
		if postY {
			ptr += uint16(ctl.CPU.Y)
		}
		addr = ptr
		size = 1
	}

	out := make([]byte, size)
	for i := 0; i < size; i++ {
		out[i] = ctl.Memory.Read(addr + uint16(i))
	}
	return EvalResult{Addr: addr, Bytes: out}, nil
}

// resolveBase resolves a bare "$HHHH" hex literal or a debug-info symbol
// name to an address and its natural size (1 byte absent other information).
func (ctl *Controller) resolveBase(base string) (addr uint16, size int, err error) {
	if strings.HasPrefix(base, "$") {
		v, err := strconv.ParseUint(base[1:], 16, 16)
		if err != nil {
			return 0, 0, fmt.Errorf("evaluate: bad hex literal %q: %w", base, err)
		}
		return uint16(v), 1, nil
	}

	if ctl.Info == nil {
		return 0, 0, ErrNoDebugInfo
	}
	sym, ok := ctl.Info.SymbolByName(base)
	if !ok {
		return 0, 0, fmt.Errorf("evaluate: unknown symbol %q", base)
	}
	size = 1
	if sym.Size != nil {
		size = *sym.Size
	}
	return uint16(sym.Addr), size, nil
}
