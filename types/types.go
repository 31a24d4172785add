// Package types implements the interned type system of spec.md §4.3: a
// TypeId is a pointer-identity handle into a structurally-uniqued table,
// built the way the original compiler's STypeId table does (hashed by
// FNV-1a over a type's fields, recursively through already-interned
// subtypes) but reshaped as a Go value type with a deep-clone-on-miss
// interner instead of a raw paged allocator.
package types

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// Kind is the coarse shape of a Type.
type Kind int

const (
	Void Kind = iota
	Bool
	S8
	S16
	S32
	S64
	U8
	U16
	U32
	U64
	Float
	Double
	Pointer
	Procedure
	Struct
	String
	Array
	Any
	Enum
	TypeOf
	Vararg
)

func (k Kind) String() string {
	switch k {
	case Void:
		return "void"
	case Bool:
		return "bool"
	case S8:
		return "s8"
	case S16:
		return "s16"
	case S32:
		return "s32"
	case S64:
		return "s64"
	case U8:
		return "u8"
	case U16:
		return "u16"
	case U32:
		return "u32"
	case U64:
		return "u64"
	case Float:
		return "float"
	case Double:
		return "double"
	case Pointer:
		return "pointer"
	case Procedure:
		return "proc"
	case Struct:
		return "struct"
	case String:
		return "string"
	case Array:
		return "array"
	case Any:
		return "Any"
	case Enum:
		return "enum"
	case TypeOf:
		return "TypeOf"
	case Vararg:
		return "vararg"
	default:
		return "?"
	}
}

// Member is a single struct field: the declaration AST that introduced it
// (opaque here — owned by package ast, which imports types) and its byte
// offset, filled in once the struct's size is computed.
type Member struct {
	Name       string
	Type       *TypeId
	ByteOffset int64
	// Decl is the ast.DeclareSingle that introduced this member, stored as
	// an untyped pointer to avoid an import cycle (ast imports types).
	Decl interface{}
}

// StructView is the symbol-table-bearing "struct shape" a String, Array,
// or Enum type lazily acquires the first time it's encountered, so member
// access (".count", ".data", enum constants, ...) can resolve uniformly
// through a struct-like member list.
type StructView struct {
	Members []Member
	built   bool
}

// TypeId is the interned type handle; equality is Go pointer identity, as
// required by spec.md §3 ("Types are interned... == on TypeId is pointer
// equality").
type TypeId struct {
	Kind Kind

	// Pointer / Array element type ("inner").
	Inner *TypeId
	// Pointer/Array: struct-of-arrays layout flag.
	SOA bool

	// Array.
	FixedSize int64 // -1 if not a fixed-size array
	Dynamic   bool

	// Procedure.
	Args    []*TypeId
	Rets    []*TypeId
	CVararg bool

	// Struct / Enum.
	Name    string
	Members []Member
	// identity is a monotonic counter that makes every `struct{...}` or
	// `enum{...}` literal site structurally distinct even if two sites
	// have identical member lists (spec.md §4.6: "a fresh Struct type;
	// non-unique; each struct{…} in source is distinct").
	identity int64

	// Enum.
	Backing *TypeId

	// TypeOf.
	Of *TypeId

	// Lazily computed.
	cB      int64
	cBAlign int64
	sized   bool

	view *StructView
}

// Identity returns the monotonic struct/enum identity counter, for
// callers (package codegen) that need a stable per-compilation name for
// an otherwise-anonymous source-site struct/enum type.
func (t *TypeId) Identity() int64 { return t.identity }

func (t *TypeId) String() string {
	switch t.Kind {
	case Pointer:
		if t.SOA {
			return "*soa " + t.Inner.String()
		}
		return "*" + t.Inner.String()
	case Array:
		switch {
		case t.FixedSize >= 0:
			return "[" + strconv.FormatInt(t.FixedSize, 10) + "]" + t.Inner.String()
		case t.Dynamic:
			return "[..]" + t.Inner.String()
		default:
			return "[]" + t.Inner.String()
		}
	case Procedure:
		var args, rets []string
		for _, a := range t.Args {
			args = append(args, a.String())
		}
		for _, r := range t.Rets {
			rets = append(rets, r.String())
		}

		s := "(" + strings.Join(args, ", ") + ")"
		if len(rets) > 0 {
			s += " -> " + strings.Join(rets, ", ")
		}

		return s
	case Struct:
		if t.Name != "" {
			return t.Name
		}
		return "struct{...}"
	case Enum:
		return t.Name
	case TypeOf:
		return "type " + t.Of.String()
	default:
		return t.Kind.String()
	}
}

// IsInteger reports whether t is one of the signed or unsigned integer
// kinds.
func (t *TypeId) IsInteger() bool {
	switch t.Kind {
	case S8, S16, S32, S64, U8, U16, U32, U64:
		return true
	default:
		return false
	}
}

// IsSignedInteger reports whether t is a signed integer kind.
func (t *TypeId) IsSignedInteger() bool {
	switch t.Kind {
	case S8, S16, S32, S64:
		return true
	default:
		return false
	}
}

// IsFloat reports whether t is float or double.
func (t *TypeId) IsFloat() bool {
	return t.Kind == Float || t.Kind == Double
}

// IsNumeric reports whether t is an integer or floating-point kind.
func (t *TypeId) IsNumeric() bool {
	return t.IsInteger() || t.IsFloat()
}

// View returns the lazily-built StructView for a String/Array/Enum type,
// constructing it on first access via build. Struct types carry their
// members directly and never need a View.
func (t *TypeId) View(build func(*TypeId) *StructView) *StructView {
	if t.view == nil {
		t.view = build(t)
	}

	return t.view
}

// MemberView returns t's field list for layout/codegen purposes
// regardless of whether t carries its members directly (Struct) or
// lazily via View (String, slice/dynamic Array): it forces Size() first
// (which populates the lazy view as a side effect) and then returns
// whichever of the two is populated.
func (t *TypeId) MemberView() []Member {
	t.Size()

	if t.view != nil {
		return t.view.Members
	}

	return t.Members
}

// hashFNV1a hashes a byte span with FNV-1a, as the spec names explicitly
// for structural type uniquing (spec.md §4.3).
func hashFNV1a(seed uint64, data []byte) uint64 {
	h := fnv.New64a()
	// Mix the running seed in ahead of data so nested subtype hashes
	// compose instead of colliding across fields.
	var seedBuf [8]byte
	for i := 0; i < 8; i++ {
		seedBuf[i] = byte(seed >> (8 * i))
	}
	h.Write(seedBuf[:])
	h.Write(data)

	return h.Sum64()
}
