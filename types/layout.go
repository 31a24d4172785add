package types

// Layout computes sizes and alignments on demand, as spec.md §4.3
// describes ("sizes/alignment computed on demand, not up front"). Results
// are cached on the TypeId itself (cB/cBAlign/sized) so repeated sizeof
// queries in a single compilation don't redo struct layout work.

const ptrSize = 8

// scalarSize returns the fixed size in bytes of a scalar kind, or -1 if
// the kind has no fixed scalar size (Struct/Array/Procedure/...).
func scalarSize(k Kind) int64 {
	switch k {
	case Void:
		return 0
	case Bool, S8, U8:
		return 1
	case S16, U16:
		return 2
	case S32, U32, Float:
		return 4
	case S64, U64, Double:
		return 8
	default:
		return -1
	}
}

// Size returns the byte size of t, computing and caching struct/array
// layout the first time it's asked for.
func (t *TypeId) Size() int64 {
	if t.sized {
		return t.cB
	}

	var size, align int64

	switch t.Kind {
	case Pointer, Procedure:
		size, align = ptrSize, ptrSize
	case Struct:
		size, align = layoutMembers(t.Members)
	case Enum:
		size, align = t.Backing.Size(), t.Backing.Align()
	case Array:
		switch {
		case t.FixedSize >= 0:
			size = t.FixedSize * t.Inner.Size()
			align = t.Inner.Align()
		default:
			// Slice/dynamic array: {data: *T, count: s64} (+ capacity for
			// [..]T), laid out like a struct via its StructView.
			v := t.View(buildArrayView)
			size, align = layoutMembers(v.Members)
		}
	case String:
		v := t.View(buildArrayView)
		size, align = layoutMembers(v.Members)
	case TypeOf:
		size, align = ptrSize, ptrSize
	default:
		size = scalarSize(t.Kind)
		if size < 0 {
			size = 0
		}
		align = size
		if align == 0 {
			align = 1
		}
	}

	t.cB = size
	t.cBAlign = align
	t.sized = true

	return size
}

// Align returns the alignment in bytes of t.
func (t *TypeId) Align() int64 {
	if !t.sized {
		t.Size()
	}

	return t.cBAlign
}

// layoutMembers assigns ByteOffset to each member in declaration order,
// padding for alignment, and returns the total (padded) size and the
// struct's own alignment (the max member alignment, minimum 1).
func layoutMembers(members []Member) (size int64, align int64) {
	align = 1

	var offset int64
	for i := range members {
		m := &members[i]
		a := m.Type.Align()
		if a > align {
			align = a
		}

		if rem := offset % a; rem != 0 {
			offset += a - rem
		}

		m.ByteOffset = offset
		offset += m.Type.Size()
	}

	if rem := offset % align; rem != 0 {
		offset += align - rem
	}

	return offset, align
}

// buildArrayView constructs the implicit {data, count[, capacity]} struct
// shape backing a slice or dynamic-array type, used both for member
// lookup (".data", ".count") and for Size/Align layout.
func buildArrayView(t *TypeId) *StructView {
	dataPtr := &TypeId{Kind: Pointer, Inner: t.Inner}

	members := []Member{
		{Name: "data", Type: dataPtr},
		{Name: "count", Type: &TypeId{Kind: S64}},
	}

	if t.Dynamic {
		members = append(members, Member{Name: "allocated", Type: &TypeId{Kind: S64}})
	}

	return &StructView{Members: members, built: true}
}
