package check

import (
	"fmt"

	"github.com/golangee/rook/ast"
	"github.com/golangee/rook/token"
	"github.com/golangee/rook/types"
)

var comparisonOps = map[string]bool{"<": true, ">": true, "<=": true, ">=": true, "==": true, "!=": true}

var assignOps = map[string]bool{"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true}

func (r *Rules) checkOperator(n *ast.Operator, _ interface{}) (*ast.DeclareSingle, error) {
	if n.Left == nil {
		return r.checkUnary(n)
	}

	if assignOps[n.Op] {
		return r.checkAssign(n)
	}

	if n.Op == "." {
		return r.checkMember(n)
	}

	return r.checkBinary(n)
}

func (r *Rules) checkUnary(n *ast.Operator) (*ast.DeclareSingle, error) {
	rt := n.Right.Type()
	if rt == nil {
		return nil, nil
	}

	switch n.Op {
	case "!":
		n.Right.SetType(r.Types.Builtin(types.Bool))
		n.SetType(r.Types.Builtin(types.Bool))
	case "-":
		if !rt.IsNumeric() {
			return nil, fmt.Errorf("unary -: %s is not numeric", rt.String())
		}
		n.SetType(rt)
	case "++", "--":
		if !rt.IsInteger() {
			return nil, fmt.Errorf("%s requires an integer operand", n.Op)
		}
		n.SetType(rt)
	case "*": // address-of
		n.SetType(r.Types.TidPointer(rt))
	case "<<": // pointer dereference
		if rt.Kind != types.Pointer {
			return nil, fmt.Errorf("cannot dereference non-pointer type %s", rt.String())
		}
		n.SetType(rt.Inner)
	default:
		return nil, fmt.Errorf("unknown unary operator %q", n.Op)
	}

	return nil, nil
}

func (r *Rules) checkAssign(n *ast.Operator) (*ast.DeclareSingle, error) {
	lt := n.Left.Type()
	if lt == nil {
		return nil, nil
	}

	if n.Right.Type() == nil {
		n.Right.SetType(lt)
	}

	n.SetType(r.Types.Builtin(types.Void))

	return nil, nil
}

func (r *Rules) checkMember(n *ast.Operator) (*ast.DeclareSingle, error) {
	id, ok := n.Right.(*ast.Identifier)
	if !ok {
		return nil, fmt.Errorf(". requires an identifier on the right")
	}

	lt := n.Left.Type()
	if lt == nil {
		return nil, nil
	}

	target := lt
	if target.Kind == types.Pointer {
		target = target.Inner
	}

	var tab = r.StructTables[target]
	if target.Kind == types.TypeOf {
		unwrapped, _ := r.Types.TidUnwrap(target)
		tab = r.StructTables[unwrapped]
		target = unwrapped
	}

	if tab == nil {
		var err error
		tab, err = r.structOf(target)
		if err != nil {
			return nil, err
		}
	}

	found, err := tab.ResolveWithUsing(id.Name, r.structOf)
	if err != nil {
		if s, ok := err.(interface{ Error() string }); ok {
			_ = s
		}
		return nil, err
	}

	if len(found) == 0 {
		return nil, fmt.Errorf("type %s has no member %q", target.String(), id.Name)
	}

	rd := found[0]
	ds, isDecl := rd.Decl.(*ast.DeclareSingle)
	if isDecl && ds.Type() == nil {
		return ds, nil
	}

	id.Resolved = rd
	if isDecl {
		id.SetType(ds.Type())
		n.SetType(ds.Type())
	}

	return nil, nil
}

func (r *Rules) checkBinary(n *ast.Operator) (*ast.DeclareSingle, error) {
	lt, rt := n.Left.Type(), n.Right.Type()

	// Finalize bare literal/null operands against the other side, so
	// `6 + b` (scenario 4) and `null == ptr` both settle on a concrete
	// type before the rule below inspects kinds. Two bare literals
	// (`5 + 1028`, scenario 3) have no typed side, so each first takes
	// its own literal default type.
	if lt == nil && rt == nil {
		if lit, ok := n.Left.(*ast.Literal); ok {
			lt = r.literalDefault(lit)
			n.Left.SetType(lt)
		}
		if lit, ok := n.Right.(*ast.Literal); ok {
			rt = r.literalDefault(lit)
			n.Right.SetType(rt)
		}
	}
	if lt == nil && rt != nil {
		n.Left.SetType(r.coerceLiteralTo(n.Left, rt))
		lt = n.Left.Type()
	}
	if rt == nil && lt != nil {
		n.Right.SetType(r.coerceLiteralTo(n.Right, lt))
		rt = n.Right.Type()
	}

	if lt == nil || rt == nil {
		return nil, nil
	}

	switch n.Op {
	case "and", "or":
		if lt.Kind != types.Bool || rt.Kind != types.Bool {
			return nil, fmt.Errorf("%s requires bool operands", n.Op)
		}
		n.SetType(r.Types.Builtin(types.Bool))
		return nil, nil
	case "%":
		if !lt.IsInteger() || !rt.IsInteger() {
			return nil, fmt.Errorf("%% requires integer operands")
		}
		n.SetType(widen(lt, rt))
		return nil, nil
	}

	if comparisonOps[n.Op] {
		if !compatibleForCompare(lt, rt) {
			return nil, fmt.Errorf("cannot compare %s with %s", lt.String(), rt.String())
		}
		n.SetType(r.Types.Builtin(types.Bool))
		return nil, nil
	}

	switch n.Op {
	case "+", "-":
		if lt.Kind == types.Pointer && rt.IsInteger() {
			n.SetType(lt)
			return nil, nil
		}
		if !lt.IsNumeric() || !rt.IsNumeric() {
			return nil, fmt.Errorf("%s requires numeric operands", n.Op)
		}
	case "*", "/":
		if !lt.IsNumeric() || !rt.IsNumeric() {
			return nil, fmt.Errorf("%s requires numeric operands", n.Op)
		}
	default:
		return nil, fmt.Errorf("unknown binary operator %q", n.Op)
	}

	result := widen(lt, rt)
	if result != lt {
		n.Left = implicitCast(n.Left, result)
	}
	if result != rt {
		n.Right = implicitCast(n.Right, result)
	}
	n.SetType(result)

	return nil, nil
}

func (r *Rules) coerceLiteralTo(e ast.Expr, target *types.TypeId) *types.TypeId {
	if lit, ok := e.(*ast.Literal); ok {
		switch lit.Lit.Kind {
		case token.LitInt, token.LitFloat:
			if target.IsNumeric() {
				return target
			}
		}

		return r.literalDefault(lit)
	}

	if _, ok := e.(*ast.Null); ok && target.Kind == types.Pointer {
		return target
	}

	return target
}

func compatibleForCompare(a, b *types.TypeId) bool {
	if a == b {
		return true
	}
	if a.IsNumeric() && b.IsNumeric() {
		return true
	}
	if a.Kind == types.Pointer && b.Kind == types.Pointer {
		return true
	}

	return false
}

// widen picks the "larger" of two numeric types: float beats int, double
// beats float, wider integer beats narrower (scenario 3/4/5).
func widen(a, b *types.TypeId) *types.TypeId {
	if a == b {
		return a
	}

	rank := func(t *types.TypeId) int {
		switch t.Kind {
		case types.Double:
			return 100
		case types.Float:
			return 90
		case types.S64, types.U64:
			return 4
		case types.S32, types.U32:
			return 3
		case types.S16, types.U16:
			return 2
		default:
			return 1
		}
	}

	if rank(a) >= rank(b) {
		return a
	}

	return b
}

// implicitCast wraps e in a synthesized Cast node, used when a binary
// operator widens one operand (spec.md scenario 5: "the left operand is
// wrapped in an implicit Cast(f64) node").
func implicitCast(e ast.Expr, target *types.TypeId) ast.Expr {
	c := &ast.Cast{Kind: ast.CastImplicit, Value: e}
	c.SetType(target)

	return c
}
