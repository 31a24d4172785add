package check

import (
	"fmt"

	"github.com/golangee/rook/ast"
	"github.com/golangee/rook/symtab"
	"github.com/golangee/rook/types"
)

func (r *Rules) checkCast(n *ast.Cast) (*ast.DeclareSingle, error) {
	if n.Kind == ast.CastAuto {
		// spec.md §9: target type is inferred from the enclosing context;
		// CheckStep alone cannot see that context, so an auto-cast stays
		// untyped here. A typed declaration, an assignment, or a call
		// argument position then gives it the destination type directly,
		// without checking the cast pair; an auto-cast that none of them
		// claims stays untyped and no error is reported.
		if n.Value.Type() != nil && n.Target == nil {
			n.SetType(nil)
		}
		return nil, nil
	}

	wrapped := n.Target.Type()
	if wrapped == nil {
		return nil, nil
	}

	target, ok := r.Types.TidUnwrap(wrapped)
	if !ok {
		return nil, fmt.Errorf("cast: target must be a type expression")
	}

	src := n.Value.Type()
	if src == nil {
		n.Value.SetType(target)
		src = target
	}

	if !validCastPair(src, target) {
		return nil, fmt.Errorf("invalid cast from %s to %s", src.String(), target.String())
	}

	n.SetType(target)

	return nil, nil
}

func validCastPair(src, dst *types.TypeId) bool {
	switch {
	case src.IsInteger() && dst.IsInteger():
		return true
	case src.IsInteger() && dst.IsFloat():
		return true
	case src.IsFloat() && dst.IsInteger():
		return true
	case src.IsFloat() && dst.IsFloat():
		return true
	case src.Kind == types.Pointer && dst.Kind == types.Pointer:
		return true
	default:
		return false
	}
}

// MatchGrade ranks how well a call's arguments match a candidate
// procedure's parameters (spec.md §4.7).
type MatchGrade int

const (
	NoMatch MatchGrade = iota
	CoerceMatch
	ExactMatch
)

func (r *Rules) checkCall(n *ast.Call, scope *symtab.Table) (*ast.DeclareSingle, error) {
	callee, isIdent := n.Callee.(*ast.Identifier)
	if isIdent {
		switch callee.Name {
		case "sizeof", "alignof":
			if len(n.Args) != 1 {
				return nil, fmt.Errorf("%s requires exactly one argument", callee.Name)
			}
			n.SetType(r.Types.Builtin(types.U64))
			return nil, nil
		}
	}

	for _, a := range n.Args {
		if a.Type() == nil {
			if lit, ok := a.(*ast.Literal); ok {
				a.SetType(r.literalDefault(lit))
			}
		}
	}

	if !isIdent {
		ct := n.Callee.Type()
		if ct == nil {
			return nil, nil
		}
		if ct.Kind != types.Procedure {
			return nil, fmt.Errorf("call target is not a procedure")
		}
		return r.finishCall(n, ct)
	}

	candidates, err := scope.ResolveWithUsing(callee.Name, r.structOf)
	if err != nil {
		if s, ok := err.(*symtab.Suspend); ok {
			if ds, ok := s.On.(*ast.DeclareSingle); ok {
				return ds, nil
			}
		}
		return nil, err
	}

	best, grade, ambiguous, suspendOn := r.resolveOverload(candidates, n.Args)
	if suspendOn != nil {
		return suspendOn, nil
	}

	if ambiguous {
		return nil, fmt.Errorf("ambiguous call to %q: multiple equally-good overloads", callee.Name)
	}

	if best == nil || grade == NoMatch {
		spec, err := r.TryPolymorph(scope, callee.Name, n.Args)
		if err != nil {
			return nil, err
		}

		if spec != nil {
			callee.Resolved = &symtab.ResolveDecl{Decl: spec}
			callee.SetType(spec.Type())
			return r.finishCall(n, callee.Type())
		}

		return nil, fmt.Errorf("no matching overload for call to %q", callee.Name)
	}

	callee.Resolved = best
	callee.SetType(best.Decl.(*ast.DeclareSingle).Type())

	return r.finishCall(n, callee.Type())
}

// resolveOverload implements MatchkTryResolveOverload (spec.md §4.7): the
// first non-constant candidate is always Exact; constant (procedure
// value) candidates are graded by argument coercibility.
func (r *Rules) resolveOverload(candidates []*symtab.ResolveDecl, args []ast.Expr) (best *symtab.ResolveDecl, grade MatchGrade, ambiguous bool, suspendOn *ast.DeclareSingle) {
	var bestCandidates []*symtab.ResolveDecl
	bestGrade := NoMatch

	for _, rd := range candidates {
		ds, ok := rd.Decl.(*ast.DeclareSingle)
		if !ok {
			continue
		}

		proc, isProc := ds.Value.(*ast.Procedure)
		if !isProc {
			return rd, ExactMatch, false, nil
		}

		if ds.Type() == nil {
			return nil, NoMatch, false, ds
		}

		pt := ds.Type()

		arity := len(pt.Args)
		if proc.Polymorphic {
			continue
		}

		if len(args) != arity && !(proc != nil && pt.CVararg && len(args) >= arity) {
			continue
		}

		g := ExactMatch
		ok2 := true
		for i := 0; i < arity; i++ {
			at := args[i].Type()
			if at == nil {
				ok2 = false
				break
			}
			if at == pt.Args[i] {
				continue
			}
			if canCoerce(at, pt.Args[i]) {
				g = CoerceMatch
				continue
			}
			ok2 = false
			break
		}

		if !ok2 {
			continue
		}

		switch {
		case g > bestGrade:
			bestGrade = g
			bestCandidates = []*symtab.ResolveDecl{rd}
		case g == bestGrade:
			bestCandidates = append(bestCandidates, rd)
		}
	}

	if len(bestCandidates) == 0 {
		return nil, NoMatch, false, nil
	}

	if len(bestCandidates) > 1 {
		return nil, bestGrade, true, nil
	}

	return bestCandidates[0], bestGrade, false, nil
}

func canCoerce(from, to *types.TypeId) bool {
	if from == to {
		return true
	}
	if from.IsNumeric() && to.IsNumeric() {
		return true
	}
	if from.Kind == types.Pointer && to.Kind == types.Pointer {
		return true
	}

	return false
}

func (r *Rules) finishCall(n *ast.Call, procType *types.TypeId) (*ast.DeclareSingle, error) {
	arity := len(procType.Args)

	for i, a := range n.Args {
		if i < arity {
			if a.Type() == nil {
				a.SetType(procType.Args[i])
			}
			continue
		}

		// Past the declared arity: only valid for a C-vararg procedure;
		// coerce to vararg-safe promoted types (spec.md §4.6).
		if !procType.CVararg {
			return nil, fmt.Errorf("too many arguments in call")
		}

		if a.Type() == nil {
			continue
		}

		switch {
		case a.Type().Kind == types.Float:
			a.SetType(r.Types.Builtin(types.Double))
		case a.Type().IsInteger() && a.Type().Size() < 4:
			a.SetType(r.Types.Builtin(types.S32))
		}
	}

	if len(procType.Rets) == 1 {
		n.SetType(procType.Rets[0])
	} else {
		n.SetType(r.Types.Builtin(types.Void))
	}

	return nil, nil
}
