// Package check implements the out-of-order type-check scheduler of
// spec.md §4.5 ("Flattening"/"Run") plus the per-node typing rules of
// §4.6 and the overload/polymorphic logic of §4.7.
package check

import (
	"github.com/golangee/rook/ast"
	"github.com/golangee/rook/symtab"
)

// TypeRecurse is one step of a declaration's flattened recurse list: a
// pointer-sized slot for the AST node at this step, plus the symbol
// table it should be type-checked against (spec.md §4.5).
type TypeRecurse struct {
	Node  ast.Node
	Scope *symtab.Table
}

// Decl is a top-level-or-struct-level declaration tracked by the
// scheduler: its flattened step list and how far it has progressed.
type Decl struct {
	Stmt    *ast.DeclareSingle
	Trec    []TypeRecurse
	ITrec   int
	Scope   *symtab.Table
	Done    bool
	// waitingOn is set while this declaration is parked on the wait
	// stack, naming the Decl it is waiting for (for cycle messages).
	waitingOn *Decl
}

// isDone reports iTrecCur == len(trec) (spec.md §3 invariant).
func (d *Decl) isDone() bool { return d.ITrec >= len(d.Trec) }

// flattener accumulates per-declaration recurse lists while walking one
// file's top-level declarations (and, recursively, struct bodies).
type flattener struct {
	decls []*Decl
}

// Flatten walks file's declarations, producing one *Decl per top-level
// declaration with its recurse list populated (struct and enum members
// are flattened into their enclosing declaration's list), and
// registers each declaration in top's symbol table. Polymorphic
// procedures are parked on top.PolymorphicProcs instead of flattened.
func Flatten(file *ast.File, top *symtab.Table) ([]*Decl, error) {
	f := &flattener{}

	for _, stmt := range file.Decls {
		if err := f.flattenTopLevel(stmt, top); err != nil {
			return nil, err
		}
	}

	return f.decls, nil
}

func (f *flattener) flattenTopLevel(stmt ast.Stmt, scope *symtab.Table) error {
	ds, ok := stmt.(*ast.DeclareSingle)
	if !ok {
		// Directives (#import, #foreign_library) need no type-check.
		return nil
	}

	if proc, ok := ds.Value.(*ast.Procedure); ok && proc.Polymorphic {
		scope.PolymorphicProcs = append(scope.PolymorphicProcs, ds)
		return nil
	}

	if _, err := scope.AddResolveDeclaration(ds); err != nil {
		return err
	}

	d := &Decl{Stmt: ds, Scope: scope}
	f.recurseDecl(d, ds, scope)
	f.decls = append(f.decls, d)

	return nil
}

// recurseDecl appends the flattened steps for one declaration's AST,
// introducing new scopes exactly where spec.md §4.5 says to: block,
// if/while/for bodies, push_context, procedure (×2), struct body, enum
// body.
//
// Steps are appended post-order (children before their parent) so that
// by the time a composite node's own step runs, every subexpression it
// reads .Type() from has already been typed in this same pass — a rule
// *ast.Struct and *ast.Procedure both need to break, since a struct
// member or a procedure body can refer back to the enclosing
// declaration by name (`Node :: struct { next: *Node }`, a recursive
// procedure calling itself). For those two, the node's own identity
// (and, for a procedure, its full signature) is established *before*
// recursing into members/body, by splitting the struct into two steps
// around its members and by placing the procedure's own step after its
// arg/ret types but before its body.
func (f *flattener) recurseDecl(d *Decl, node ast.Node, scope *symtab.Table) {
	if node == nil {
		return
	}

	self := func() { d.Trec = append(d.Trec, TypeRecurse{Node: node, Scope: scope}) }

	switch n := node.(type) {
	case *ast.DeclareSingle:
		f.recurseDecl(d, n.TypeExpr, scope)
		f.recurseDecl(d, n.Value, scope)
		self()
	case *ast.DeclareMulti:
		f.recurseDecl(d, n.TypeExpr, scope)
		for _, v := range n.Values {
			f.recurseDecl(d, v, scope)
		}
		self()
	case *ast.AssignMulti:
		for _, t := range n.Targets {
			f.recurseDecl(d, t, scope)
		}
		for _, v := range n.Values {
			f.recurseDecl(d, v, scope)
		}
		self()
	case *ast.Operator:
		f.recurseDecl(d, n.Left, scope)
		if n.Op != "." {
			// The member name after `.` is resolved by checkMember against
			// the left operand's type, not as an identifier in scope.
			f.recurseDecl(d, n.Right, scope)
		}
		self()
	case *ast.Cast:
		f.recurseDecl(d, n.Target, scope)
		f.recurseDecl(d, n.Value, scope)
		self()
	case *ast.New:
		f.recurseDecl(d, n.TypeExpr, scope)
		self()
	case *ast.ArrayIndex:
		f.recurseDecl(d, n.Target, scope)
		f.recurseDecl(d, n.Index, scope)
		self()
	case *ast.Call:
		f.recurseDecl(d, n.Callee, scope)
		for _, a := range n.Args {
			f.recurseDecl(d, a, scope)
		}
		self()
	case *ast.Inline:
		f.recurseDecl(d, n.Target, scope)
		self()
	case *ast.Using:
		f.recurseDecl(d, n.Target, scope)
		self()
	case *ast.Delete:
		f.recurseDecl(d, n.Target, scope)
		self()
	case *ast.Remove:
		f.recurseDecl(d, n.Target, scope)
		self()
	case *ast.Defer:
		f.recurseDecl(d, n.Stmt, scope)
		self()
	case *ast.Return:
		for _, v := range n.Values {
			f.recurseDecl(d, v, scope)
		}
		self()
	case *ast.TypePointer:
		f.recurseDecl(d, n.Inner, scope)
		self()
	case *ast.TypeArray:
		f.recurseDecl(d, n.Size, scope)
		f.recurseDecl(d, n.Inner, scope)
		self()
	case *ast.TypeProcedure:
		for _, a := range n.Args {
			f.recurseDecl(d, a, scope)
		}
		for _, r := range n.Rets {
			f.recurseDecl(d, r, scope)
		}
		self()
	case *ast.RunDirective:
		switch body := n.Body.(type) {
		case ast.Expr:
			f.recurseDecl(d, body, scope)
		case *ast.Block:
			f.recurseBlock(d, body, scope)
		}
		self()
	case *ast.Block:
		f.recurseBlock(d, n, scope)
	case *ast.If:
		f.recurseDecl(d, n.Cond, scope)
		f.recurseStmtNewScope(d, n.Body, scope)
		if n.ElseBody != nil {
			f.recurseStmtNewScope(d, n.ElseBody, scope)
		}
		self()
	case *ast.While:
		f.recurseDecl(d, n.Cond, scope)
		f.recurseStmtNewScope(d, n.Body, scope)
		self()
	case *ast.For:
		inner := symtab.New(symtab.Scope, scope)
		n.Scope = inner
		f.recurseDecl(d, n.Iterable, scope)
		f.recurseStmtNewScopeGiven(d, n.Body, inner)
		self()
	case *ast.PushContext:
		inner := symtab.New(symtab.Scope, scope)
		n.Scope = inner
		f.recurseBlock(d, n.Body, inner)
		self()
	case *ast.Struct:
		inner := symtab.New(symtab.StructScope, scope)
		n.Scope = inner
		self() // phase 1: allocate the struct's own identity first, so a
		// member typed `*Name` (self-reference) resolves to it immediately.
		for _, member := range n.Decls {
			f.flattenMember(d, member, inner)
		}
		self() // phase 2: members are typed now, fill in st.Members.
	case *ast.Enum:
		inner := symtab.New(symtab.StructScope, scope)
		n.Scope = inner
		f.recurseDecl(d, n.Backing, scope)
		for _, member := range n.Decls {
			f.flattenMember(d, member, inner)
		}
		self()
	case *ast.Procedure:
		procScope := symtab.New(symtab.Procedure, scope)
		n.Scope = procScope
		for _, a := range n.Args {
			f.recurseDecl(d, a.TypeExpr, procScope)
			if a.Name != "" {
				procScope.AddResolveDeclaration(a)
			}
		}
		for _, r := range n.Rets {
			f.recurseDecl(d, r, procScope)
		}
		self() // signature built from now-typed args/rets, before the body
		// is checked, so a recursive call inside the body resolves.
		if n.Body != nil {
			f.recurseBlock(d, n.Body, procScope)
		}
	default:
		self()
	}
}

// flattenMember handles one declaration inside a struct/enum body: it is
// both recursed into (so the member's own type/value steps appear in d's
// list) and registered into the owning scope for out-of-order lookup,
// matching spec.md §4.5's "any declaration at top level or struct level"
// out-of-order rule.
func (f *flattener) flattenMember(d *Decl, stmt ast.Stmt, scope *symtab.Table) {
	ds, ok := stmt.(*ast.DeclareSingle)
	if !ok {
		return
	}

	scope.AddResolveDeclaration(ds)
	f.recurseDecl(d, ds, scope)
}

func (f *flattener) recurseBlock(d *Decl, blk *ast.Block, parent *symtab.Table) {
	inner := symtab.New(symtab.Scope, parent)
	blk.Scope = inner
	f.recurseStmtNewScopeGiven(d, blk, inner)
}

func (f *flattener) recurseStmtNewScope(d *Decl, stmt ast.Stmt, parent *symtab.Table) {
	if blk, ok := stmt.(*ast.Block); ok {
		f.recurseBlock(d, blk, parent)
		return
	}

	f.recurseDecl(d, stmt, parent)
}

func (f *flattener) recurseStmtNewScopeGiven(d *Decl, stmt ast.Stmt, scope *symtab.Table) {
	if blk, ok := stmt.(*ast.Block); ok {
		for _, s := range blk.Stmts {
			if ds, ok := s.(*ast.DeclareSingle); ok {
				scope.AddResolveDeclaration(ds)
			}
			f.recurseDecl(d, s, scope)
		}
		d.Trec = append(d.Trec, TypeRecurse{Node: blk, Scope: scope})
		return
	}

	f.recurseDecl(d, stmt, scope)
}
