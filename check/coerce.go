package check

import (
	"fmt"

	"github.com/golangee/rook/ast"
	"github.com/golangee/rook/types"
)

// CoerceResult is the three-valued outcome of FCanCoerce (spec.md §9):
// a literal with no fixed type yet returns CoerceNil, meaning "depends
// on the concrete target" (string→*u8, null→pointer).
type CoerceResult int

const (
	CoerceNo CoerceResult = iota
	CoerceYes
	CoerceNil
)

// FCanCoerce reports whether a value of type from can be implicitly
// coerced to kind to, without mutating anything.
func FCanCoerce(from, to *types.TypeId) CoerceResult {
	if from == nil {
		return CoerceNil
	}
	if from == to {
		return CoerceYes
	}
	if from.IsNumeric() && to.IsNumeric() {
		return CoerceYes
	}
	if from.Kind == types.Pointer && to.Kind == types.Pointer {
		return CoerceYes
	}

	return CoerceNo
}

// Coerce finalizes e's type against an enclosing destination type,
// per spec.md §9: "Always finalize a literal's type before emitting code
// for it." It also resolves a pending CastAuto node against this
// context, the decided resolution for the "auto-cast target inference"
// open question (see DESIGN.md).
func (r *Rules) Coerce(e ast.Expr, target *types.TypeId) error {
	if cast, ok := e.(*ast.Cast); ok && cast.Kind == ast.CastAuto && cast.Type() == nil {
		if !validCastPair(valueTypeOrLiteralDefault(r, cast.Value), target) {
			return fmt.Errorf("auto-cast requires a target type")
		}
		cast.SetType(target)
		return nil
	}

	if e.Type() != nil {
		return nil
	}

	if lit, ok := e.(*ast.Literal); ok {
		if target != nil && target.IsNumeric() {
			e.SetType(target)
			return nil
		}
		e.SetType(r.literalDefault(lit))
		return nil
	}

	if _, ok := e.(*ast.Null); ok {
		if target == nil || target.Kind != types.Pointer {
			return fmt.Errorf("null requires a pointer target type")
		}
		e.SetType(target)
		return nil
	}

	return fmt.Errorf("cannot finalize type for expression without a coercion context")
}

func valueTypeOrLiteralDefault(r *Rules, e ast.Expr) *types.TypeId {
	if e.Type() != nil {
		return e.Type()
	}
	if lit, ok := e.(*ast.Literal); ok {
		return r.literalDefault(lit)
	}

	return r.Types.Builtin(types.Void)
}
