package dbginfo

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Info is the finalized, read-only debug-info model for one program. It is
// built once by Parse/ParseFile and never mutated afterward (spec.md §5,
// "the debug-info model is read-only after finalize").
type Info struct {
	files    map[int]*File
	segments map[int]*Segment
	spans    map[int]*Span
	lines    []*Line
	symbols  map[int]*Symbol
	scopes   map[int]*Scope
	csyms    map[int]*CSymbol
	types    map[int]*TypeInfo
	modules  map[int]*Module

	// Derived at finalize.
	sortedSpans  []*Span // sorted by AbsStart ascending
	spanToLines  map[int][]*Line
	spanToScopes map[int][]*Scope
	addrToSymbol map[uint32]*Symbol
	nameToSymbol map[string]*Symbol
}

// finalize computes absolute span addresses, the interval index, the
// span→line and span→scope maps, and marks library files (spec.md §4.F).
func (info *Info) finalize() {
	for _, s := range info.spans {
		if seg, ok := info.segments[s.SegId]; ok {
			s.AbsStart = seg.Start + s.StartOff
		}
	}

	info.sortedSpans = make([]*Span, 0, len(info.spans))
	for _, s := range info.spans {
		info.sortedSpans = append(info.sortedSpans, s)
	}
	sort.Slice(info.sortedSpans, func(i, j int) bool {
		return info.sortedSpans[i].AbsStart < info.sortedSpans[j].AbsStart
	})

	info.spanToLines = make(map[int][]*Line)
	for _, l := range info.lines {
		for _, sid := range l.SpanIds {
			info.spanToLines[sid] = append(info.spanToLines[sid], l)
		}
	}

	info.spanToScopes = make(map[int][]*Scope)
	for _, sc := range info.scopes {
		for _, sid := range sc.SpanIds {
			info.spanToScopes[sid] = append(info.spanToScopes[sid], sc)
		}
	}

	info.addrToSymbol = make(map[uint32]*Symbol)
	info.nameToSymbol = make(map[string]*Symbol)
	for _, sym := range info.symbols {
		cur, ok := info.addrToSymbol[sym.Addr]
		if !ok || symbolPreferred(sym, cur) {
			info.addrToSymbol[sym.Addr] = sym
		}
		if cur, ok := info.nameToSymbol[sym.Name]; !ok || symbolPreferred(sym, cur) {
			info.nameToSymbol[sym.Name] = sym
		}
	}

	libModules := make(map[int]bool)
	for _, m := range info.modules {
		if m.LibId != nil {
			libModules[m.Id] = true
		}
	}
	for _, m := range info.modules {
		if libModules[m.Id] {
			if f, ok := info.files[m.FileId]; ok {
				f.IsLibrary = true
			}
		}
	}
}

// symbolPreferred reports whether candidate should replace incumbent at the
// same address: lab beats equ beats anything else; among equal type rank, a
// symbol carrying a segId wins (spec.md §3, derived index (d)).
func symbolPreferred(candidate, incumbent *Symbol) bool {
	rank := func(s *Symbol) int {
		switch s.Type {
		case "lab":
			return 2
		case "equ":
			return 1
		default:
			return 0
		}
	}
	cr, ir := rank(candidate), rank(incumbent)
	if cr != ir {
		return cr > ir
	}
	if (candidate.SegId != nil) != (incumbent.SegId != nil) {
		return candidate.SegId != nil
	}
	return false
}

// spansContaining returns every span whose range includes addr, using the
// absStart-sorted index to narrow the candidate set to spans that start at
// or before addr before the containment post-filter (the "sorted array
// plus binary search with post-filter" design in spec.md §9).
func (info *Info) spansContaining(addr uint32) []*Span {
	idx := sort.Search(len(info.sortedSpans), func(i int) bool {
		return info.sortedSpans[i].AbsStart > addr
	})
	var matches []*Span
	for i := 0; i < idx; i++ {
		if info.sortedSpans[i].contains(addr) {
			matches = append(matches, info.sortedSpans[i])
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Size < matches[j].Size })
	return matches
}

// SpanRangeFor returns the absolute [start, end) range of the smallest span
// containing addr, for callers (the step-mode controller) that need a
// source-line-sized bound rather than the Span record itself.
func (info *Info) SpanRangeFor(addr uint32) (start, end uint32, ok bool) {
	spans := info.spansContaining(addr)
	if len(spans) == 0 {
		return 0, 0, false
	}
	s := spans[0]
	return s.AbsStart, s.AbsStart + s.Size, true
}

// SymbolFor returns the preferred symbol defined at exactly addr.
func (info *Info) SymbolFor(addr uint32) (*Symbol, bool) {
	sym, ok := info.addrToSymbol[addr]
	return sym, ok
}

// SymbolByName returns the preferred symbol named name, for evaluate's
// name-based expression resolution (spec.md §6, "expression grammar").
func (info *Info) SymbolByName(name string) (*Symbol, bool) {
	sym, ok := info.nameToSymbol[name]
	return sym, ok
}

// LineFor returns the "best" line at addr: among the smallest containing
// spans, a high-level (type==1) line wins over others, else the first
// encountered (spec.md §4.F).
func (info *Info) LineFor(addr uint32) (*Line, bool) {
	spans := info.spansContaining(addr)
	if len(spans) == 0 {
		return nil, false
	}
	smallest := spans[0].Size
	var candidates []*Line
	for _, s := range spans {
		if s.Size != smallest {
			break
		}
		candidates = append(candidates, info.spanToLines[s.Id]...)
	}
	if len(candidates) == 0 {
		return nil, false
	}
	for _, l := range candidates {
		if l.Type == 1 {
			return l, true
		}
	}
	return candidates[0], true
}

// AllLinesFor returns every line attached to a span containing addr, most
// specific span first.
func (info *Info) AllLinesFor(addr uint32) []*Line {
	var out []*Line
	for _, s := range info.spansContaining(addr) {
		out = append(out, info.spanToLines[s.Id]...)
	}
	return out
}

// ScopesFor returns the scopes attached to the most specific span at addr
// that has any scope attachment.
func (info *Info) ScopesFor(addr uint32) []*Scope {
	for _, s := range info.spansContaining(addr) {
		if scopes := info.spanToScopes[s.Id]; len(scopes) > 0 {
			return scopes
		}
	}
	return nil
}

// ScopeChain walks parentId from leaf up to the root, inclusive.
func (info *Info) ScopeChain(leaf *Scope) []*Scope {
	var chain []*Scope
	cur := leaf
	for cur != nil {
		chain = append(chain, cur)
		if cur.ParentId == nil {
			break
		}
		cur = info.scopes[*cur.ParentId]
	}
	return chain
}

// VariablesFor returns every CSymbol declared in scopeId.
func (info *Info) VariablesFor(scopeId int) []*CSymbol {
	var out []*CSymbol
	for _, cs := range info.csyms {
		if cs.ScopeId == scopeId {
			out = append(out, cs)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out
}

// FrameSize returns the scope's declared size, or, if absent, the sum of
// positive-offset auto CSymbols in that scope (spec.md §4.F).
func (info *Info) FrameSize(scopeId int) int {
	if scope, ok := info.scopes[scopeId]; ok && scope.Size != nil {
		return *scope.Size
	}
	total := 0
	for _, cs := range info.VariablesFor(scopeId) {
		if cs.StorageClass == "auto" && cs.Offset > 0 {
			total += cs.Offset
		}
	}
	return total
}

// Type looks up a TypeInfo by id.
func (info *Info) Type(id int) (*TypeInfo, bool) {
	t, ok := info.types[id]
	return t, ok
}

// Scope looks up a Scope by id.
func (info *Info) Scope(id int) (*Scope, bool) {
	s, ok := info.scopes[id]
	return s, ok
}

// Segment looks up a Segment by id.
func (info *Info) Segment(id int) (*Segment, bool) {
	s, ok := info.segments[id]
	return s, ok
}

// File looks up a File by id.
func (info *Info) File(id int) (*File, bool) {
	f, ok := info.files[id]
	return f, ok
}

// AddrsForLine returns the start address of every span attached to the
// source line (file, lineNum), for an embedder's set_breakpoints(file,
// lines) request (spec.md §6). file is matched against a File's recorded
// Name first exactly, then by base name.
func (info *Info) AddrsForLine(file string, lineNum int) []uint32 {
	fileId, ok := info.fileIdByName(file)
	if !ok {
		return nil
	}
	var addrs []uint32
	for _, l := range info.lines {
		if l.FileId != fileId || l.LineNum != lineNum {
			continue
		}
		for _, sid := range l.SpanIds {
			if s, ok := info.spans[sid]; ok {
				addrs = append(addrs, s.AbsStart)
			}
		}
	}
	return addrs
}

func (info *Info) fileIdByName(name string) (int, bool) {
	for id, f := range info.files {
		if f.Name == name {
			return id, true
		}
	}
	for id, f := range info.files {
		if filepath.Base(f.Name) == filepath.Base(name) {
			return id, true
		}
	}
	return 0, false
}

// ResolveDebugFile tries progPath+".dbg", then (if progPath has an
// extension) progPath with that extension replaced by ".dbg". Returns the
// first path that exists on disk.
func ResolveDebugFile(progPath string) (string, bool) {
	candidate := progPath + ".dbg"
	if _, err := os.Stat(candidate); err == nil {
		return candidate, true
	}
	ext := filepath.Ext(progPath)
	if ext != "" {
		candidate = strings.TrimSuffix(progPath, ext) + ".dbg"
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}

// ParseFile opens path and parses it as a .dbg stream.
func ParseFile(path string) (*Info, []error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	info, warnings := Parse(f)
	return info, warnings, nil
}
