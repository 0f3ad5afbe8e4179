// Package dbginfo parses cc65 .dbg debug-info files and answers the
// address-to-line, address-to-scope, and variable-resolution queries the
// debugger needs.
package dbginfo

import "fmt"

// TypeKind enumerates the primitive/composite shapes a TypeInfo can take,
// closely enough to render a tooltip string. It is decoded from a textual
// kind= name (e.g. "ptr", "array", "struct"); cc65's hex-encoded type-spec
// strings are not decoded and yield KindUnknown.
type TypeKind int

const (
	KindUnknown TypeKind = iota
	KindVoid
	KindByte
	KindWord
	KindLong
	KindCharSigned
	KindCharUnsigned
	KindPointer
	KindArray
	KindStruct
	KindUnion
	KindFunction
	KindEnum
)

// File is a source file named by the compiler/assembler.
type File struct {
	Id        int
	Name      string
	Size      int
	IsLibrary bool
}

// Segment is a named, contiguous region of the final memory image.
type Segment struct {
	Id    int
	Name  string
	Start uint32
	Size  uint32
}

// Span is a half-open machine-address range [AbsStart, AbsStart+Size)
// produced by one source construct. AbsStart is computed in finalize from
// the owning segment's start plus StartOff.
type Span struct {
	Id       int
	SegId    int
	StartOff uint32
	Size     uint32
	AbsStart uint32
}

func (s *Span) contains(addr uint32) bool {
	return addr >= s.AbsStart && addr < s.AbsStart+s.Size
}

// Line associates a source line with zero or more spans. Type==1 denotes a
// high-level (C) line; any other value is assembly.
type Line struct {
	FileId  int
	LineNum int
	SpanIds []int
	Type    int
}

// Symbol is a named address: a label, an equate, or a cross-module
// import/export reference.
type Symbol struct {
	Id    int
	Name  string
	Addr  uint32
	Size  *int
	Type  string // "lab", "equ", "imp", "exp"
	SegId *int
}

// Scope is a lexical (C) scope; Type == "scope" denotes a function. Scopes
// nest via ParentId.
type Scope struct {
	Id       int
	Name     string
	ParentId *int
	Type     string
	Size     *int
	SpanIds  []int
}

// CSymbol is a local variable or parameter, addressed relative to the
// software-stack frame pointer.
type CSymbol struct {
	Id           int
	Name         string
	ScopeId      int
	TypeId       int
	StorageClass string // auto, static, register, extern
	Offset       int
}

// TypeInfo describes a C type referenced by a CSymbol.
type TypeInfo struct {
	Id        int
	Size      int
	Kind      TypeKind
	BaseId    *int
	Count     *int
	MemberIds []int
}

func (t *TypeInfo) String() string {
	switch t.Kind {
	case KindPointer:
		return fmt.Sprintf("ptr(%d)", t.Size)
	case KindArray:
		if t.Count != nil {
			return fmt.Sprintf("array[%d] of %d bytes", *t.Count, t.Size)
		}
		return fmt.Sprintf("array of %d bytes", t.Size)
	case KindStruct:
		return fmt.Sprintf("struct(%d bytes)", t.Size)
	case KindUnion:
		return fmt.Sprintf("union(%d bytes)", t.Size)
	default:
		return fmt.Sprintf("type(%d bytes)", t.Size)
	}
}

// Module marks a File as produced standalone or pulled in from a library
// archive (LibId set).
type Module struct {
	Id     int
	Name   string
	FileId int
	LibId  *int
}
