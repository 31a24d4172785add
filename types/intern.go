package types

import (
	"encoding/binary"
	"strconv"
)

// Interner is the structural-uniquing table described in spec.md §4.3:
// for every distinct structural type there is exactly one *TypeId. It is
// a chained hash table (hash -> bucket slice) keyed by the FNV-1a hash of the type's
// fields (recursively, through already-interned subtypes), matching the
// invariant tested in spec.md §8 ("for all distinct AST sites yielding
// structurally identical types, typeOf(siteA) == typeOf(siteB)").
//
// Struct and Enum types are deliberately excluded from structural
// uniquing (each `struct{...}`/`enum{...}` source site gets its own
// identity, per spec.md §4.6) and are tracked only so their symbol tables
// can be found again; they're never deep-compared.
type Interner struct {
	buckets map[uint64][]*TypeId
	nextID  int64

	builtins map[Kind]*TypeId
}

// NewInterner creates an Interner pre-populated with the scalar builtin
// types (void, bool, the integer kinds, float, double, any, vararg).
func NewInterner() *Interner {
	in := &Interner{
		buckets:  make(map[uint64][]*TypeId),
		builtins: make(map[Kind]*TypeId),
	}

	for _, k := range []Kind{Void, Bool, S8, S16, S32, S64, U8, U16, U32, U64, Float, Double, Any, Vararg} {
		in.builtins[k] = in.intern(&TypeId{Kind: k})
	}

	return in
}

// Builtin returns the singleton TypeId for a scalar kind.
func (in *Interner) Builtin(k Kind) *TypeId {
	t, ok := in.builtins[k]
	if !ok {
		panic("types: Builtin called with a non-scalar kind " + k.String())
	}

	return t
}

// hashOf computes the structural FNV-1a hash of t, mixing in the
// already-computed hashes of any interned subtypes it references.
func (in *Interner) hashOf(t *TypeId) uint64 {
	var buf []byte
	buf = append(buf, byte(t.Kind))

	switch t.Kind {
	case Pointer:
		buf = appendU64(buf, in.hashOf(t.Inner))
		if t.SOA {
			buf = append(buf, 1)
		}
	case Array:
		buf = appendU64(buf, in.hashOf(t.Inner))
		buf = appendI64(buf, t.FixedSize)
		if t.Dynamic {
			buf = append(buf, 1)
		}
		if t.SOA {
			buf = append(buf, 2)
		}
	case Procedure:
		for _, a := range t.Args {
			buf = appendU64(buf, in.hashOf(a))
		}
		buf = append(buf, 0xFF)
		for _, r := range t.Rets {
			buf = appendU64(buf, in.hashOf(r))
		}
		if t.CVararg {
			buf = append(buf, 1)
		}
	case TypeOf:
		buf = appendU64(buf, in.hashOf(t.Of))
	case Struct, Enum:
		// Identity types: never structurally merged with another site, so
		// their hash only needs to be good enough for bucket placement.
		buf = append(buf, []byte(t.Name)...)
		buf = appendI64(buf, t.identity)
	default:
		// scalar kinds: Kind alone determines identity
	}

	return hashFNV1a(0, buf)
}

func appendU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendI64(buf []byte, v int64) []byte {
	return appendU64(buf, uint64(v))
}

// structurallyEqual compares two candidate types field-by-field, assuming
// their Inner/Args/Rets have already been interned (so pointer equality
// on those suffices). Struct and Enum never compare equal to anything but
// themselves (identity types).
func structurallyEqual(a, b *TypeId) bool {
	if a.Kind != b.Kind {
		return false
	}

	switch a.Kind {
	case Pointer:
		return a.Inner == b.Inner && a.SOA == b.SOA
	case Array:
		return a.Inner == b.Inner && a.FixedSize == b.FixedSize && a.Dynamic == b.Dynamic && a.SOA == b.SOA
	case Procedure:
		if len(a.Args) != len(b.Args) || len(a.Rets) != len(b.Rets) || a.CVararg != b.CVararg {
			return false
		}
		for i := range a.Args {
			if a.Args[i] != b.Args[i] {
				return false
			}
		}
		for i := range a.Rets {
			if a.Rets[i] != b.Rets[i] {
				return false
			}
		}
		return true
	case TypeOf:
		return a.Of == b.Of
	case Struct, Enum:
		return a == b
	default:
		return true
	}
}

// intern is the internal TidEnsure: given a freshly-built (possibly
// non-interned-subtype) candidate, returns the canonical *TypeId for its
// structure, inserting a deep-ish clone on first sight.
func (in *Interner) intern(candidate *TypeId) *TypeId {
	if candidate.Kind == Struct || candidate.Kind == Enum {
		// Identity types are never deduplicated; just assign and register.
		in.nextID++
		candidate.identity = in.nextID
		candidate.FixedSize = -1

		return candidate
	}

	h := in.hashOf(candidate)
	for _, existing := range in.buckets[h] {
		if structurallyEqual(existing, candidate) {
			return existing
		}
	}

	clone := *candidate
	if clone.Kind != Array {
		clone.FixedSize = -1
	}
	in.buckets[h] = append(in.buckets[h], &clone)

	return &clone
}

// TidEnsure interns an arbitrary candidate type, returning the canonical
// TypeId. Used by Pointer/Array/Procedure/TypeOf constructors below.
func (in *Interner) TidEnsure(candidate *TypeId) *TypeId {
	return in.intern(candidate)
}

// TidPointer returns (interning as needed) the *T pointer type to inner.
func (in *Interner) TidPointer(inner *TypeId) *TypeId {
	return in.TidEnsure(&TypeId{Kind: Pointer, Inner: inner})
}

// TidPointerSOA returns the struct-of-arrays pointer variant.
func (in *Interner) TidPointerSOA(inner *TypeId) *TypeId {
	return in.TidEnsure(&TypeId{Kind: Pointer, Inner: inner, SOA: true})
}

// TidArrayFixed returns [N]T.
func (in *Interner) TidArrayFixed(inner *TypeId, n int64) *TypeId {
	return in.TidEnsure(&TypeId{Kind: Array, Inner: inner, FixedSize: n})
}

// TidArraySlice returns []T.
func (in *Interner) TidArraySlice(inner *TypeId) *TypeId {
	return in.TidEnsure(&TypeId{Kind: Array, Inner: inner, FixedSize: -1})
}

// TidArrayDynamic returns [..]T.
func (in *Interner) TidArrayDynamic(inner *TypeId) *TypeId {
	return in.TidEnsure(&TypeId{Kind: Array, Inner: inner, FixedSize: -1, Dynamic: true})
}

// TidProcedure returns the Procedure type for the given signature.
func (in *Interner) TidProcedure(args, rets []*TypeId, cVararg bool) *TypeId {
	return in.TidEnsure(&TypeId{Kind: Procedure, Args: args, Rets: rets, CVararg: cVararg})
}

// TidWrap returns TypeOf(t), idempotently (wrapping a TypeOf just returns
// it unchanged, per spec.md §4.3).
func (in *Interner) TidWrap(t *TypeId) *TypeId {
	if t.Kind == TypeOf {
		return t
	}

	return in.TidEnsure(&TypeId{Kind: TypeOf, Of: t})
}

// TidUnwrap returns the wrapped type of a TypeOf(T), and false if t is
// not a TypeOf.
func (in *Interner) TidUnwrap(t *TypeId) (*TypeId, bool) {
	if t.Kind != TypeOf {
		return nil, false
	}

	return t.Of, true
}

// NewStruct creates a fresh, non-interned Struct type for one `struct{...}`
// source site (spec.md §4.6).
func (in *Interner) NewStruct(name string) *TypeId {
	return in.intern(&TypeId{Kind: Struct, Name: name})
}

// NewEnum creates a fresh Enum type with the given backing integer type.
func (in *Interner) NewEnum(name string, backing *TypeId) *TypeId {
	return in.intern(&TypeId{Kind: Enum, Name: name, Backing: backing})
}

// NewStringType builds the singleton `string` type ({data: *u8, count:
// s64}, laid out the same way a slice is via buildArrayView), used by
// package workspace to bootstrap the one builtin string.Rules.SetStringType
// installs.
func (in *Interner) NewStringType(u8 *TypeId) *TypeId {
	return in.TidEnsure(&TypeId{Kind: String, Inner: u8})
}

// InferIntLiteralKind returns the smallest signed integer kind (s8, s16,
// s32, s64, falling back to u64 if the value is too large for s64 — it
// never is, since Go's int64 already covers that range) that holds v.
// Ported from the original's TokenizeInt sizing ladder (SPEC_FULL.md §C).
func InferIntLiteralKind(v int64) Kind {
	switch {
	case v >= -128 && v <= 127:
		return S8
	case v >= -32768 && v <= 32767:
		return S16
	case v >= -2147483648 && v <= 2147483647:
		return S32
	default:
		return S64
	}
}

// DefaultTypeForLiteral maps a bare literal kind to its default concrete
// type, per spec.md §4.3 ("literal→default-type (String→string,
// Int→inferred signed, Float→float, Bool→bool)").
func (in *Interner) DefaultTypeForLiteral(litKind int, intVal int64, isDouble bool) *TypeId {
	const (
		litBool = iota
		litInt
		litFloat
		litString
	)

	switch litKind {
	case litBool:
		return in.Builtin(Bool)
	case litInt:
		return in.Builtin(InferIntLiteralKind(intVal))
	case litFloat:
		if isDouble {
			return in.Builtin(Double)
		}
		return in.Builtin(Float)
	case litString:
		return nil // caller supplies the `string` struct type explicitly
	default:
		panic("types: unknown literal kind " + strconv.Itoa(litKind))
	}
}
