package dbginfo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSpanLookupPrefersSmallestSpan(t *testing.T) {
	src := `file id=1,name="test.c",size=100
seg id=1,name="CODE",start=0x1000,size=256
span id=1,seg=1,start=0,size=100
span id=2,seg=1,start=50,size=10
line file=1,line=10,span=1
line file=1,line=20,span=2
`
	info, warnings := Parse(strings.NewReader(src))
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	if l, ok := info.LineFor(0x1032); !ok || l.LineNum != 20 {
		t.Fatalf("LineFor(0x1032)=%v,%v, want line 20", l, ok)
	}
	if l, ok := info.LineFor(0x1010); !ok || l.LineNum != 10 {
		t.Fatalf("LineFor(0x1010)=%v,%v, want line 10", l, ok)
	}
	if l, ok := info.LineFor(0x1050); !ok || l.LineNum != 10 {
		t.Fatalf("LineFor(0x1050)=%v,%v, want line 10", l, ok)
	}
	if _, ok := info.LineFor(0x2000); ok {
		t.Fatalf("LineFor(0x2000) found a line outside any span")
	}
}

func TestIntervalIndexCoversEverySpanAddress(t *testing.T) {
	src := `seg id=1,name="CODE",start=0x1000,size=256
span id=1,seg=1,start=0,size=5
span id=2,seg=1,start=20,size=3
`
	info, _ := Parse(strings.NewReader(src))
	for _, s := range info.spans {
		for a := s.AbsStart; a < s.AbsStart+s.Size; a++ {
			found := false
			for _, m := range info.spansContaining(a) {
				if m.Id == s.Id {
					found = true
				}
			}
			if !found {
				t.Fatalf("span %d did not cover its own address 0x%04X", s.Id, a)
			}
		}
	}
}

func TestUnknownRecordKindIsSkippedWithoutAborting(t *testing.T) {
	src := `bogus this is not a real record
file id=1,name="a.c",size=1
`
	info, warnings := Parse(strings.NewReader(src))
	if len(warnings) != 0 {
		t.Fatalf("unknown record kind should be silently skipped, got warnings: %v", warnings)
	}
	if _, ok := info.File(1); !ok {
		t.Fatalf("valid record after an unknown one was not parsed")
	}
}

func TestScopeChainWalksToRoot(t *testing.T) {
	src := `scope id=1,name="main",type=scope
scope id=2,name="inner",type=scope,parent=1
`
	info, _ := Parse(strings.NewReader(src))
	leaf, ok := info.Scope(2)
	if !ok {
		t.Fatalf("scope 2 not found")
	}
	chain := info.ScopeChain(leaf)
	if len(chain) != 2 || chain[0].Id != 2 || chain[1].Id != 1 {
		t.Fatalf("chain=%v, want [2,1]", chain)
	}
}

func TestFrameSizeFallsBackToAutoOffsetSum(t *testing.T) {
	src := `scope id=1,name="f",type=scope
csym id=1,name="a",scope=1,type=0,sc=auto,offs=2
csym id=2,name="b",scope=1,type=0,sc=auto,offs=4
csym id=3,name="c",scope=1,type=0,sc=static,offs=100
`
	info, _ := Parse(strings.NewReader(src))
	if got := info.FrameSize(1); got != 6 {
		t.Fatalf("FrameSize=%d, want 6", got)
	}
}

func TestFrameSizeUsesDeclaredSizeWhenPresent(t *testing.T) {
	src := `scope id=1,name="f",type=scope,size=16
`
	info, _ := Parse(strings.NewReader(src))
	if got := info.FrameSize(1); got != 16 {
		t.Fatalf("FrameSize=%d, want 16", got)
	}
}

func TestSymbolForPrefersLabOverEqu(t *testing.T) {
	src := `sym id=1,name="CONST",val=0x10,type=equ
sym id=2,name="main",val=0x10,type=lab
`
	info, _ := Parse(strings.NewReader(src))
	sym, ok := info.SymbolFor(0x10)
	if !ok || sym.Name != "main" {
		t.Fatalf("SymbolFor(0x10)=%v,%v, want \"main\"", sym, ok)
	}
}

func TestResolveDebugFileTriesBinDotDbgThenPlainDbg(t *testing.T) {
	dir := t.TempDir()
	progPath := filepath.Join(dir, "prog.bin")

	if _, ok := ResolveDebugFile(progPath); ok {
		t.Fatalf("resolved a debug file that does not exist")
	}

	plainDbg := filepath.Join(dir, "prog.dbg")
	if err := os.WriteFile(plainDbg, []byte{}, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, ok := ResolveDebugFile(progPath)
	if !ok || got != plainDbg {
		t.Fatalf("ResolveDebugFile=%q,%v, want %q,true", got, ok, plainDbg)
	}

	binDbg := filepath.Join(dir, "prog.bin.dbg")
	if err := os.WriteFile(binDbg, []byte{}, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, ok = ResolveDebugFile(progPath)
	if !ok || got != binDbg {
		t.Fatalf("ResolveDebugFile=%q,%v, want %q,true (bin.dbg preferred)", got, ok, binDbg)
	}
}

func TestModuleMarksFileAsLibrary(t *testing.T) {
	src := `file id=1,name="libfoo.c",size=10
mod id=1,name="libfoo",file=1,lib=1
`
	info, _ := Parse(strings.NewReader(src))
	f, ok := info.File(1)
	if !ok {
		t.Fatalf("file 1 not found")
	}
	if !f.IsLibrary {
		t.Fatalf("file not marked as library despite mod.lib being set")
	}
}

func TestVariablesForFiltersByScope(t *testing.T) {
	src := `csym id=1,name="x",scope=1,type=0,offs=2
csym id=2,name="y",scope=2,type=0,offs=2
`
	info, _ := Parse(strings.NewReader(src))
	vars := info.VariablesFor(1)
	if len(vars) != 1 || vars[0].Name != "x" {
		t.Fatalf("VariablesFor(1)=%v, want [x]", vars)
	}
}
