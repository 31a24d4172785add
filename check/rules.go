package check

import (
	"fmt"

	"github.com/golangee/rook/ast"
	"github.com/golangee/rook/symtab"
	"github.com/golangee/rook/token"
	"github.com/golangee/rook/types"
)

// Rules implements the per-AST-kind typing rules of spec.md §4.6. It is
// stateless across steps except for the interner and the struct-table
// registry threaded through from package workspace.
type Rules struct {
	Types   *types.Interner
	// StructTables maps a Struct/Enum/String/Array TypeId to its member
	// symbol table, populated as struct/enum bodies are type-checked and
	// consulted by `using`/`.` member resolution.
	StructTables map[*types.TypeId]*symtab.Table
	Eval         ConstEvaluator

	stringType *types.TypeId
}

// ConstEvaluator is the subset of package consteval's API the type
// checker needs, to evaluate array-size expressions to a concrete int64
// (spec.md §4.6 TypeArray rule).
type ConstEvaluator interface {
	EvalInt64(ast.Expr, *symtab.Table) (int64, error)
}

// SetStringType installs the interned `string` struct type (built once
// by package workspace, since string is itself a builtin struct view).
func (r *Rules) SetStringType(t *types.TypeId) { r.stringType = t }

func (r *Rules) structOf(t *types.TypeId) (*symtab.Table, error) {
	if tab, ok := r.StructTables[t]; ok {
		return tab, nil
	}

	if t.Kind == types.String || t.Kind == types.Array {
		view := t.View(func(tt *types.TypeId) *types.StructView {
			return &types.StructView{}
		})
		tab := symtab.New(symtab.StructScope, nil)
		tab.Owner = t
		r.StructTables[t] = tab
		_ = view

		return tab, nil
	}

	return nil, fmt.Errorf("no member table for type %s", t.String())
}

// CheckStep type-checks one flattened step. It returns a non-nil
// *ast.DeclareSingle when the step must suspend waiting on that
// declaration to finish first.
func (r *Rules) CheckStep(node ast.Node, scope *symtab.Table) (*ast.DeclareSingle, error) {
	switch n := node.(type) {
	case *ast.Literal:
		return nil, nil // stays untyped; the rule of the node using it assigns its type
	case *ast.Null:
		return nil, nil
	case *ast.UninitializedValue:
		return nil, nil
	case *ast.Block, *ast.EmptyStatement, *ast.LoopControl,
		*ast.Delete, *ast.Remove, *ast.Defer, *ast.PushContext:
		node.SetType(r.Types.Builtin(types.Void))
		return nil, nil
	case *ast.Using:
		return r.checkUsing(n, scope)
	case *ast.If:
		node.SetType(r.Types.Builtin(types.Void))
		return r.coerceBool(n.Cond)
	case *ast.While:
		node.SetType(r.Types.Builtin(types.Void))
		return r.coerceBool(n.Cond)
	case *ast.For:
		node.SetType(r.Types.Builtin(types.Void))
		return nil, nil
	case *ast.Identifier:
		return r.checkIdentifier(n, scope)
	case *ast.Operator:
		return r.checkOperator(n, scope)
	case *ast.Cast:
		return r.checkCast(n)
	case *ast.New:
		return r.checkNew(n)
	case *ast.Inline:
		n.SetType(n.Target.Type())
		return nil, nil
	case *ast.ArrayIndex:
		return r.checkArrayIndex(n)
	case *ast.Call:
		return r.checkCall(n, scope)
	case *ast.Return:
		return r.checkReturn(n, scope)
	case *ast.DeclareSingle:
		return r.checkDeclareSingle(n)
	case *ast.DeclareMulti:
		node.SetType(r.Types.Builtin(types.Void))
		return nil, nil
	case *ast.AssignMulti:
		node.SetType(r.Types.Builtin(types.Void))
		return nil, nil
	case *ast.Struct:
		return r.checkStruct(n)
	case *ast.Enum:
		return r.checkEnum(n)
	case *ast.Procedure:
		return r.checkProcedure(n)
	case *ast.TypePointer:
		if n.Inner.Type() == nil {
			return nil, nil
		}
		inner, ok := r.Types.TidUnwrap(n.Inner.Type())
		if !ok {
			return nil, fmt.Errorf("pointer: invalid pointee type")
		}
		n.SetType(r.Types.TidWrap(r.Types.TidPointer(inner)))
		return nil, nil
	case *ast.TypeArray:
		return r.checkTypeArray(n, scope)
	case *ast.TypeProcedure:
		return r.checkTypeProcedure(n)
	case *ast.TypePolymorphic, *ast.TypeVararg:
		return nil, nil
	case *ast.RunDirective:
		node.SetType(r.Types.Builtin(types.Void))
		return nil, nil
	case *ast.ImportDirective, *ast.ForeignLibraryDirective:
		return nil, nil
	default:
		return nil, fmt.Errorf("check: no typing rule for %T", node)
	}
}

// checkUsing implements the bare `using expr` statement: it registers
// expr's declaration as a using-source on scope directly, so member
// lookups inside scope fall through to expr's struct/enum members
// (spec.md §4.4). Only an identifier naming an already-resolvable
// declaration is supported; a general expression would need a synthetic
// anonymous declaration to hang UsingPath bookkeeping off of.
func (r *Rules) checkUsing(n *ast.Using, scope *symtab.Table) (*ast.DeclareSingle, error) {
	n.SetType(r.Types.Builtin(types.Void))

	id, ok := n.Target.(*ast.Identifier)
	if !ok {
		return nil, nil
	}

	found := scope.Lookup(id.Name, false)
	if len(found) == 0 {
		return nil, fmt.Errorf("using: undeclared identifier %q", id.Name)
	}

	scope.AddUsing(found[0])

	return nil, nil
}

func (r *Rules) coerceBool(cond ast.Expr) (*ast.DeclareSingle, error) {
	b := r.Types.Builtin(types.Bool)
	if cond.Type() == nil {
		cond.SetType(b)
	}

	return nil, nil
}

func (r *Rules) checkIdentifier(n *ast.Identifier, scope *symtab.Table) (*ast.DeclareSingle, error) {
	if n.Type() != nil {
		// A `$T` placeholder pre-typed by rewriteTypeExpr; it names no
		// declaration to look up.
		return nil, nil
	}

	found, err := scope.ResolveWithUsing(n.Name, r.structOf)
	if err != nil {
		if s, ok := err.(*symtab.Suspend); ok {
			if ds, ok := s.On.(*ast.DeclareSingle); ok {
				return ds, nil
			}
		}
		return nil, err
	}

	if len(found) == 0 {
		return nil, fmt.Errorf("undeclared identifier %q", n.Name)
	}

	rd := found[0]
	ds, isDecl := rd.Decl.(*ast.DeclareSingle)
	if isDecl && ds.Type() == nil {
		return ds, nil
	}

	n.Resolved = rd
	if isDecl {
		n.SetType(ds.Type())
	}

	return nil, nil
}

func (r *Rules) checkNew(n *ast.New) (*ast.DeclareSingle, error) {
	inner, ok := r.Types.TidUnwrap(n.TypeExpr.Type())
	if !ok {
		return nil, fmt.Errorf("new: expected a type expression")
	}

	n.SetType(r.Types.TidPointer(inner))

	return nil, nil
}

func (r *Rules) checkArrayIndex(n *ast.ArrayIndex) (*ast.DeclareSingle, error) {
	if n.Index.Type() == nil {
		n.Index.SetType(r.Types.Builtin(types.S64))
	}

	t := n.Target.Type()
	switch t.Kind {
	case types.Pointer:
		n.SetType(t.Inner)
	case types.Array:
		n.SetType(t.Inner)
	default:
		return nil, fmt.Errorf("cannot index type %s", t.String())
	}

	return nil, nil
}

func (r *Rules) checkReturn(n *ast.Return, scope *symtab.Table) (*ast.DeclareSingle, error) {
	proc := enclosingProcedureScope(scope)
	if proc == nil {
		return nil, fmt.Errorf("return outside a procedure")
	}

	n.SetType(r.Types.Builtin(types.Void))

	return nil, nil
}

func enclosingProcedureScope(scope *symtab.Table) *symtab.Table {
	for cur := scope; cur != nil; cur = cur.Parent {
		if cur.Kind == symtab.Procedure {
			return cur
		}
	}

	return nil
}

func (r *Rules) checkDeclareSingle(n *ast.DeclareSingle) (*ast.DeclareSingle, error) {
	var declared *types.TypeId

	if n.TypeExpr != nil {
		wrapped := n.TypeExpr.Type()
		if wrapped == nil {
			return nil, nil
		}

		unwrapped, ok := r.Types.TidUnwrap(wrapped)
		if !ok {
			return nil, fmt.Errorf("%s: declared type is not a type expression", n.Name)
		}

		declared = unwrapped
	}

	if declared == nil && n.Value != nil {
		vt := n.Value.Type()
		if vt == nil {
			if lit, ok := n.Value.(*ast.Literal); ok {
				declared = r.literalDefault(lit)
			} else {
				return nil, nil
			}
		} else {
			declared = vt
		}
	}

	if declared == nil {
		return nil, fmt.Errorf("%s: cannot infer type", n.Name)
	}

	n.SetType(declared)

	if n.Value != nil && n.Value.Type() == nil {
		n.Value.SetType(declared)
	}

	return nil, nil
}

func (r *Rules) literalDefault(lit *ast.Literal) *types.TypeId {
	switch lit.Lit.Kind {
	case token.LitBool:
		return r.Types.Builtin(types.Bool)
	case token.LitInt:
		return r.Types.Builtin(types.InferIntLiteralKind(lit.Lit.Int))
	case token.LitFloat:
		if lit.Lit.IsDouble {
			return r.Types.Builtin(types.Double)
		}
		return r.Types.Builtin(types.Float)
	default:
		return r.stringType
	}
}

// checkStruct runs twice per struct, once before its members are flattened
// and once after (see flattener.recurseDecl): the first call allocates the
// struct's identity so a self-referential member (`next: *Node`) resolves
// to it instead of suspending on the struct's own declaration; the second
// call fills in its member list, once every member is typed.
func (r *Rules) checkStruct(n *ast.Struct) (*ast.DeclareSingle, error) {
	if n.Type() == nil {
		st := r.Types.NewStruct(n.Name)
		n.SetType(r.Types.TidWrap(st))

		tab, _ := n.Scope.(*symtab.Table)
		r.StructTables[st] = tab

		return nil, nil
	}

	st, ok := r.Types.TidUnwrap(n.Type())
	if !ok {
		return nil, fmt.Errorf("struct %s: corrupt identity", n.Name)
	}
	if st.Members != nil {
		return nil, nil
	}

	var members []types.Member
	for _, decl := range n.Decls {
		ds, ok := decl.(*ast.DeclareSingle)
		if !ok || ds.Constant {
			continue
		}

		if ds.Type() == nil {
			return nil, fmt.Errorf("struct %s: member %s has no resolved type", n.Name, ds.Name)
		}

		members = append(members, types.Member{Name: ds.Name, Type: ds.Type(), Decl: ds})
	}

	st.Members = members

	return nil, nil
}

func (r *Rules) checkEnum(n *ast.Enum) (*ast.DeclareSingle, error) {
	if n.Type() != nil {
		return nil, nil
	}

	backing := r.Types.Builtin(types.S64)
	if n.Backing != nil {
		unwrapped, ok := r.Types.TidUnwrap(n.Backing.Type())
		if !ok {
			return nil, fmt.Errorf("enum %s: invalid backing type", n.Name)
		}
		backing = unwrapped
	}

	et := r.Types.NewEnum(n.Name, backing)
	n.SetType(r.Types.TidWrap(et))

	tab, _ := n.Scope.(*symtab.Table)
	r.StructTables[et] = tab

	return nil, nil
}

func (r *Rules) checkProcedure(n *ast.Procedure) (*ast.DeclareSingle, error) {
	if n.Type() != nil {
		return nil, nil
	}

	var args, rets []*types.TypeId
	for _, a := range n.Args {
		if a.TypeExpr == nil || isVarargMarker(a) {
			continue
		}

		wrapped := a.TypeExpr.Type()
		if wrapped == nil {
			return nil, nil
		}

		unwrapped, ok := r.Types.TidUnwrap(wrapped)
		if !ok {
			return nil, fmt.Errorf("procedure %s: invalid argument type", n.Name)
		}

		a.SetType(unwrapped)
		args = append(args, unwrapped)
	}

	for _, ret := range n.Rets {
		wrapped := ret.Type()
		if wrapped == nil {
			return nil, nil
		}

		unwrapped, ok := r.Types.TidUnwrap(wrapped)
		if !ok {
			return nil, fmt.Errorf("procedure %s: invalid return type", n.Name)
		}

		rets = append(rets, unwrapped)
	}

	cVararg := n.Foreign && len(n.Args) > 0 && isVarargMarker(n.Args[len(n.Args)-1])

	pt := r.Types.TidProcedure(args, rets, cVararg)
	n.SetType(pt)

	return nil, nil
}

func isVarargMarker(a *ast.DeclareSingle) bool {
	_, ok := a.TypeExpr.(*ast.TypeVararg)
	return ok
}

func (r *Rules) checkTypeArray(n *ast.TypeArray, scope *symtab.Table) (*ast.DeclareSingle, error) {
	innerWrapped := n.Inner.Type()
	if innerWrapped == nil {
		return nil, nil
	}

	inner, ok := r.Types.TidUnwrap(innerWrapped)
	if !ok {
		return nil, fmt.Errorf("array: invalid element type")
	}

	var arrType *types.TypeId
	switch {
	case n.Size != nil:
		size, err := r.Eval.EvalInt64(n.Size, scope)
		if err != nil {
			return nil, err
		}
		arrType = r.Types.TidArrayFixed(inner, size)
	case n.Dynamic:
		arrType = r.Types.TidArrayDynamic(inner)
	default:
		arrType = r.Types.TidArraySlice(inner)
	}

	n.SetType(r.Types.TidWrap(arrType))

	return nil, nil
}

func (r *Rules) checkTypeProcedure(n *ast.TypeProcedure) (*ast.DeclareSingle, error) {
	var args, rets []*types.TypeId
	for _, a := range n.Args {
		unwrapped, ok := r.Types.TidUnwrap(a.Type())
		if !ok {
			return nil, fmt.Errorf("procedure type: invalid argument")
		}
		args = append(args, unwrapped)
	}
	for _, ret := range n.Rets {
		unwrapped, ok := r.Types.TidUnwrap(ret.Type())
		if !ok {
			return nil, fmt.Errorf("procedure type: invalid return")
		}
		rets = append(rets, unwrapped)
	}

	n.SetType(r.Types.TidWrap(r.Types.TidProcedure(args, rets, false)))

	return nil, nil
}
