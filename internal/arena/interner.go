package arena

import "github.com/cespare/xxhash/v2"

// Interner is the workspace's canonical-string table, grounded on the
// original's `SWorkspace.setpChz` + `PchzCopy` (original_source/bob.cpp):
// every identifier, import path, and string-literal body that crosses
// module boundaries gets copied once into the arena and deduplicated
// here, so repeated occurrences compare equal by string equality without
// re-copying. Open-addressed with linear probing, exactly like the
// original's SSet<const char*>, keyed by xxhash instead of the original's
// hand-rolled HvFromKey ladder (spec.md §B: xxhash is the pack's stock
// choice for this kind of byte-span hash; FNV-1a stays reserved for
// structural type hashing, which the spec names explicitly).
type Interner struct {
	arena *Arena
	nodes []internNode
	count int
}

type internNode struct {
	hash uint64
	full bool
	s    string
}

const initialCapacity = 64

// NewInterner creates an Interner backed by a.
func NewInterner(a *Arena) *Interner {
	return &Interner{arena: a, nodes: make([]internNode, initialCapacity)}
}

// Intern returns the canonical arena-owned copy of s, allocating and
// storing one on first sight.
func (in *Interner) Intern(s string) string {
	h := xxhash.Sum64String(s)

	if found, ok := in.lookup(h, s); ok {
		return found
	}

	in.ensureCapacity(in.count + 1)

	canonical := in.arena.AllocString(s)
	in.insert(h, canonical)

	return canonical
}

func (in *Interner) lookup(h uint64, s string) (string, bool) {
	cap := len(in.nodes)
	if cap == 0 {
		return "", false
	}

	base := int(h % uint64(cap))
	for d := 0; d < cap; d++ {
		i := (base + d) % cap
		n := &in.nodes[i]
		if !n.full {
			return "", false
		}
		if n.hash == h && n.s == s {
			return n.s, true
		}
	}

	return "", false
}

func (in *Interner) insert(h uint64, s string) {
	cap := len(in.nodes)
	base := int(h % uint64(cap))

	for d := 0; d < cap; d++ {
		i := (base + d) % cap
		if !in.nodes[i].full {
			in.nodes[i] = internNode{hash: h, full: true, s: s}
			in.count++
			return
		}
	}

	panic("arena: interner table full despite capacity check")
}

// ensureCapacity grows the table once load factor would exceed 70%,
// matching the original's EnsureCount resize threshold.
func (in *Interner) ensureCapacity(want int) {
	if want < int(float64(len(in.nodes))*0.7) {
		return
	}

	old := in.nodes
	in.nodes = make([]internNode, len(old)+256)
	in.count = 0

	for _, n := range old {
		if n.full {
			in.insert(n.hash, n.s)
		}
	}
}
