package check

import (
	"fmt"
	"sort"
	"strings"

	"github.com/golangee/rook/ast"
	"github.com/golangee/rook/symtab"
	"github.com/golangee/rook/types"
)

// TryPolymorph implements MatchkTryPolymorph (spec.md §4.7): for each
// parked polymorphic procedure matching name/arity, bind its `$T`-style
// type variables against the call's concrete argument types, and produce
// (memoized) a fully-typed specialization. Call sites use this when
// ordinary overload resolution in checkCall finds nothing.
func (r *Rules) TryPolymorph(scope *symtab.Table, name string, args []ast.Expr) (*ast.DeclareSingle, error) {
	for cur := scope; cur != nil; cur = cur.Parent {
		for _, ds := range cur.PolymorphicProcs {
			if ds.Name != name {
				continue
			}

			proc := ds.Value.(*ast.Procedure)
			if len(proc.Args) != len(args) {
				continue
			}

			bindings := map[string]*types.TypeId{}
			if !bindPolymorphicArgs(proc, args, bindings) {
				continue
			}

			return r.specialize(ds, proc, bindings, cur)
		}
	}

	return nil, nil
}

// bindPolymorphicArgs runs the two-pass binding extraction of spec.md
// §4.7: pass one extracts `$T` bindings from each parameter's type AST
// against the call's concrete argument type; pass two confirms every
// remaining polymorphic-variable occurrence resolves to the same
// binding.
func bindPolymorphicArgs(proc *ast.Procedure, args []ast.Expr, bindings map[string]*types.TypeId) bool {
	for i, a := range proc.Args {
		if args[i].Type() == nil {
			return false
		}

		if !extractBindings(a.TypeExpr, args[i].Type(), bindings) {
			return false
		}
	}

	for i, a := range proc.Args {
		if !confirmBindings(a.TypeExpr, args[i].Type(), bindings) {
			return false
		}
	}

	return true
}

func extractBindings(typeExpr ast.Expr, concrete *types.TypeId, bindings map[string]*types.TypeId) bool {
	switch te := typeExpr.(type) {
	case *ast.TypePolymorphic:
		if existing, ok := bindings[te.Name]; ok {
			return existing == concrete
		}
		bindings[te.Name] = concrete
		return true
	case *ast.TypePointer:
		if concrete.Kind != types.Pointer {
			return false
		}
		return extractBindings(te.Inner, concrete.Inner, bindings)
	case *ast.TypeArray:
		if concrete.Kind != types.Array {
			return false
		}
		return extractBindings(te.Inner, concrete.Inner, bindings)
	default:
		return true // concrete, non-polymorphic parameter type; checked normally
	}
}

func confirmBindings(typeExpr ast.Expr, concrete *types.TypeId, bindings map[string]*types.TypeId) bool {
	return extractBindings(typeExpr, concrete, bindings)
}

// specialize deep-clones proc, substitutes every TypePolymorphic{name}
// occurrence with an Identifier resolving to a synthesized declaration
// carrying the bound concrete type, and re-flattens/re-schedules the
// clone. Identical bindings reuse the existing specialization (memoized
// on ds.Value.(*ast.Procedure).Specializations).
func (r *Rules) specialize(ds *ast.DeclareSingle, proc *ast.Procedure, bindings map[string]*types.TypeId, scope *symtab.Table) (*ast.DeclareSingle, error) {
	key := bindingKey(bindings)

	if proc.Specializations == nil {
		proc.Specializations = map[string]*ast.Procedure{}
	}

	if _, ok := proc.Specializations[key]; ok {
		// Already specialized: the first specialization registered its
		// clone in scope under the synthesized name; reuse that clone.
		for _, rd := range scope.Lookup(ds.Name+"$"+key, true) {
			if existing, ok := rd.Decl.(*ast.DeclareSingle); ok {
				return existing, nil
			}
		}
		return nil, nil
	}

	clone := ast.CloneStmt(ds).(*ast.DeclareSingle)
	clonedProc := clone.Value.(*ast.Procedure)
	clonedProc.Polymorphic = false
	clone.Name = ds.Name + "$" + key

	substitutePolymorphic(clonedProc, bindings)

	proc.Specializations[key] = clonedProc

	if _, err := scope.AddResolveDeclaration(clone); err != nil {
		return nil, err
	}

	f := &flattener{}
	d := &Decl{Stmt: clone, Scope: scope}
	f.recurseDecl(d, clone, scope)

	if err := r.runInline(d); err != nil {
		return nil, err
	}

	return clone, nil
}

// runInline fully type-checks a freshly-flattened specialization inline,
// without going through the outer scheduler's wait-stack (a
// specialization never participates in a cross-declaration cycle since
// its bindings are already fully concrete).
func (r *Rules) runInline(d *Decl) error {
	for !d.isDone() {
		step := d.Trec[d.ITrec]

		suspendOn, err := r.CheckStep(step.Node, step.Scope)
		if err != nil {
			return err
		}

		if suspendOn != nil {
			return fmt.Errorf("specialization: unexpected suspend on %s", suspendOn.Name)
		}

		d.ITrec++
	}

	d.Done = true

	return nil
}

func substitutePolymorphic(proc *ast.Procedure, bindings map[string]*types.TypeId) {
	for _, a := range proc.Args {
		a.TypeExpr = rewriteTypeExpr(a.TypeExpr, bindings)
	}
	for i, ret := range proc.Rets {
		proc.Rets[i] = rewriteTypeExpr(ret, bindings)
	}
}

// rewriteTypeExpr replaces TypePolymorphic nodes with a synthetic
// already-typed TypeProcedure-free placeholder: a TypePointer/TypeArray
// wrapper is rebuilt recursively, and a bare `$T` becomes an Identifier
// node pre-typed to TidWrap(bound type) so the normal DeclareSingle/
// Procedure rules (which expect a type *expression*) need no special
// casing.
func rewriteTypeExpr(e ast.Expr, bindings map[string]*types.TypeId) ast.Expr {
	switch te := e.(type) {
	case *ast.TypePolymorphic:
		bound, ok := bindings[te.Name]
		if !ok {
			return e
		}
		// A trivial pre-typed wrapper expression standing in for the
		// type AST: the enclosing DeclareSingle/Procedure rule only
		// calls TidUnwrap on its Type(), so any expression node works.
		wrapper := &ast.Identifier{Name: "$" + te.Name}
		wrapper.SetType(typesWrapOf(bound))
		return wrapper
	case *ast.TypePointer:
		te.Inner = rewriteTypeExpr(te.Inner, bindings)
		return te
	case *ast.TypeArray:
		te.Inner = rewriteTypeExpr(te.Inner, bindings)
		return te
	default:
		return e
	}
}

// typesWrapOf builds a TypeOf wrapper around t directly, without the
// interner, so the result is not the canonical interned TypeOf(t); the
// rules that consume it only read its Of field (through TidUnwrap).
func typesWrapOf(t *types.TypeId) *types.TypeId {
	return &types.TypeId{Kind: types.TypeOf, Of: t}
}

func bindingKey(bindings map[string]*types.TypeId) string {
	names := make([]string, 0, len(bindings))
	for k := range bindings {
		names = append(names, k)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, n := range names {
		sb.WriteString(n)
		sb.WriteByte('=')
		sb.WriteString(bindings[n].String())
		sb.WriteByte(';')
	}

	return sb.String()
}
