// Package arena implements the paged bump allocator spec.md §5 describes
// as backing the workspace's AST/type/string lifetime ("AST nodes and
// types live in the arena for the compilation's lifetime... freed at
// teardown by walking the owner lists"). Ported from the original
// compiler's SPagedAlloc (original_source/bob.cpp): a list of fixed-size
// pages plus a bump offset into the current one, reshaped as slices of
// byte pages instead of raw malloc'd blocks.
package arena

// defaultPageSize matches the original's cBPageDefault call sites (a few
// KB per page; oversized single requests get their own page below).
const defaultPageSize = 4096

// Arena is a paged bump allocator for byte buffers with a lifetime
// scoped to one compilation. It never frees individual allocations;
// the whole arena is dropped at once when the owning Workspace tears
// down.
type Arena struct {
	pageSize int
	pages    [][]byte
	cur      []byte // the active page; len(cur) tracks the bump offset
}

// New creates an Arena with the default page size.
func New() *Arena {
	return &Arena{pageSize: defaultPageSize}
}

// Alloc returns a zeroed buffer of n bytes aligned to align (which must
// be a power of two, as the original's PvAlloc asserts). A request
// larger than the page size gets a dedicated page of exactly that size,
// matching the original's fallback of just handing out a whole page
// when cB exceeds cBPage.
func (a *Arena) Alloc(n int, align int) []byte {
	if n == 0 {
		return nil
	}

	if a.cur == nil || !fits(a.cur, n, align) {
		size := a.pageSize
		if n > size {
			size = n
		}
		a.cur = make([]byte, 0, size)
		a.pages = append(a.pages, a.cur[:0])
	}

	off := alignUp(len(a.cur), align)
	buf := a.cur[:cap(a.cur)][off : off+n]
	a.cur = a.cur[:cap(a.cur)][:off+n]
	a.pages[len(a.pages)-1] = a.cur

	return buf
}

// AllocString copies s into a fresh arena-owned byte buffer and returns
// it as a string, so the arena's canonical copy does not keep a larger
// source buffer alive (the same problem PchzCopy solves in the
// original: interning a substring of the source file would otherwise
// pin the whole file in memory for the life of the compilation).
func (a *Arena) AllocString(s string) string {
	buf := a.Alloc(len(s), 1)
	copy(buf, s)
	return string(buf)
}

func fits(cur []byte, n, align int) bool {
	off := alignUp(len(cur), align)
	return off+n <= cap(cur)
}

func alignUp(off, align int) int {
	if align <= 1 {
		return off
	}
	return (off + align - 1) &^ (align - 1)
}

// Pages reports how many backing pages have been allocated so far, for
// diagnostics/tests.
func (a *Arena) Pages() int { return len(a.pages) }
