// Package symtab implements the scope chain and `using`-path resolution
// of spec.md §4.4: per-scope declaration lists, a parent chain, and
// iterative lazy expansion of `using` declarations.
package symtab

import (
	"fmt"

	"github.com/golangee/rook/ast"
	"github.com/golangee/rook/types"
)

// Kind distinguishes the four table flavors named in spec.md §4.4.
type Kind int

const (
	Scope Kind = iota
	Procedure
	TopLevel
	StructScope
)

// ResolveDecl pairs a declaration with the chain of `using` declarations
// that brought it into scope, per the GLOSSARY's ResolveDecl definition.
type ResolveDecl struct {
	Decl      ast.Stmt
	UsingPath []*ResolveDecl
}

// Name returns the declared identifier's name.
func (r *ResolveDecl) Name() string {
	return declName(r.Decl)
}

// usingEntry tracks one `using`-flagged declaration that has not yet been
// (or has already been) expanded into member ResolveDecls.
type usingEntry struct {
	decl      *ResolveDecl
	processed bool
}

// Table is one lexical scope.
type Table struct {
	Kind   Kind
	Parent *Table
	// Owner is the struct/enum TypeId this table provides member lookup
	// for, when Kind == StructScope; nil otherwise.
	Owner *types.TypeId

	decls   []*ResolveDecl
	byName  map[string][]*ResolveDecl
	usings  []*usingEntry

	// PolymorphicProcs holds polymorphic procedure declarations parked
	// during flattening (spec.md §4.5: "Polymorphic procedures are not
	// flattened here; they are parked in a polymorphic-procs list").
	// Each entry is the *ast.DeclareSingle whose Value is the *ast.Procedure.
	PolymorphicProcs []*ast.DeclareSingle
}

// New creates an empty table with the given parent (nil for the root).
func New(kind Kind, parent *Table) *Table {
	return &Table{Kind: kind, Parent: parent, byName: make(map[string][]*ResolveDecl)}
}

// AddResolveDeclaration registers decl in t, deduplicating by name except
// that two procedure declarations of the same name (overloads) are both
// kept (spec.md §4.4).
func (t *Table) AddResolveDeclaration(decl ast.Stmt) (*ResolveDecl, error) {
	rd := &ResolveDecl{Decl: decl}
	name := declName(decl)

	existing := t.byName[name]
	if len(existing) > 0 {
		if !(isProcDecl(decl) && allProcDecls(existing)) {
			return nil, fmt.Errorf("duplicate symbol %q", name)
		}
	}

	if using, ok := declIsUsing(decl); ok && using {
		t.usings = append(t.usings, &usingEntry{decl: rd})
	}

	t.decls = append(t.decls, rd)
	t.byName[name] = append(t.byName[name], rd)

	return rd, nil
}

func declName(decl ast.Stmt) string {
	switch d := decl.(type) {
	case *ast.DeclareSingle:
		return d.Name
	default:
		panic(fmt.Sprintf("symtab: declName: unsupported decl %T", d))
	}
}

func isProcDecl(decl ast.Stmt) bool {
	ds, ok := decl.(*ast.DeclareSingle)
	if !ok {
		return false
	}

	_, isProc := ds.Value.(*ast.Procedure)

	return isProc
}

func allProcDecls(existing []*ResolveDecl) bool {
	for _, e := range existing {
		if !isProcDecl(e.Decl) {
			return false
		}
	}

	return true
}

// AddUsing registers rd as a `using` source in t directly, for the bare
// `using expr` statement form (as opposed to a Using-flagged declaration,
// which AddResolveDeclaration already handles). Both forms share the same
// lazy-expansion machinery in expandUsings.
func (t *Table) AddUsing(rd *ResolveDecl) {
	t.usings = append(t.usings, &usingEntry{decl: rd})
}

func declIsUsing(decl ast.Stmt) (bool, bool) {
	if d, ok := decl.(*ast.DeclareSingle); ok {
		return d.Using, true
	}

	return false, false
}

// Suspend is returned by lookup helpers when resolution depends on a
// not-yet-typed declaration; the scheduler (package check) suspends the
// current declaration and resumes On instead.
type Suspend struct {
	On ast.Stmt
}

func (s *Suspend) Error() string { return "symtab: suspended, waiting on another declaration" }

// Lookup scans t then its parent chain for name and returns every entry
// of the nearest table that has one. wantProc filters nothing: the check
// skips entries whose Decl is an *ast.Procedure, but each entry's Decl is
// the declaring *ast.DeclareSingle, so procedure declarations are
// returned for either value (ResolveWithUsing, which overload resolution
// in package check uses, passes false). It does not perform `using`
// expansion; call ResolveWithUsing for that.
func (t *Table) Lookup(name string, wantProc bool) []*ResolveDecl {
	var out []*ResolveDecl

	for cur := t; cur != nil; cur = cur.Parent {
		for _, rd := range cur.byName[name] {
			_, isProc := rd.Decl.(*ast.Procedure)
			if isProc && !wantProc {
				continue
			}

			out = append(out, rd)
		}

		if len(out) > 0 {
			return out
		}
	}

	return out
}

// ResolveWithUsing performs the full FTryResolveSymbolWithUsing lookup
// (spec.md §4.4): it first tries a direct Lookup, then lazily expands any
// not-yet-processed `using` declarations up the chain and retries. structOf
// resolves a struct/enum/string/array TypeId to its member table; it
// returns ErrUsingLoop or ErrUsingNotStruct for a malformed `using`.
func (t *Table) ResolveWithUsing(name string, structOf func(*types.TypeId) (*Table, error)) ([]*ResolveDecl, error) {
	if found := t.Lookup(name, false); len(found) > 0 {
		return found, nil
	}

	if err := t.expandUsings(structOf, map[*Table]bool{}); err != nil {
		return nil, err
	}

	return t.Lookup(name, false), nil
}

// expandUsings walks from t to the root, processing every unprocessed
// `using` entry in each table it visits.
func (t *Table) expandUsings(structOf func(*types.TypeId) (*Table, error), visiting map[*Table]bool) error {
	if visiting[t] {
		return fmt.Errorf("using: loop detected")
	}
	visiting[t] = true

	for _, u := range t.usings {
		if u.processed {
			continue
		}

		ds, ok := u.decl.Decl.(*ast.DeclareSingle)
		if !ok {
			continue
		}

		declType := ds.Type()
		if declType == nil {
			return &Suspend{On: u.decl.Decl}
		}

		target := declType
		if target.Kind == types.Pointer {
			target = target.Inner
		}

		if target.Kind != types.Struct && target.Kind != types.Enum &&
			target.Kind != types.String && target.Kind != types.Array {
			return fmt.Errorf("using applied to non-struct type %s", declType.String())
		}

		memberTable, err := structOf(target)
		if err != nil {
			return err
		}

		if err := memberTable.expandUsings(structOf, visiting); err != nil {
			if _, isSuspend := err.(*Suspend); isSuspend {
				return err
			}
			return fmt.Errorf("using: %w", err)
		}

		path := append(append([]*ResolveDecl{}, collectUsingPath(u.decl)...), u.decl)

		for _, member := range memberTable.decls {
			if alreadyImportedVia(member, u.decl) {
				continue
			}

			imported := &ResolveDecl{Decl: member.Decl, UsingPath: append(append([]*ResolveDecl{}, path...), member.UsingPath...)}
			name := declName(member.Decl)
			t.decls = append(t.decls, imported)
			t.byName[name] = append(t.byName[name], imported)
		}

		u.processed = true
	}

	if t.Parent != nil {
		return t.Parent.expandUsings(structOf, visiting)
	}

	return nil
}

func collectUsingPath(rd *ResolveDecl) []*ResolveDecl {
	return rd.UsingPath
}

func alreadyImportedVia(member *ResolveDecl, u *ResolveDecl) bool {
	for _, p := range member.UsingPath {
		if p == u {
			return true
		}
	}

	return false
}
