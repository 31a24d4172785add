package codegen

import (
	"fmt"

	"github.com/golangee/rook/ast"
	"github.com/golangee/rook/types"
	"tinygo.org/x/go-llvm"
)

// emitCall handles the `sizeof`/`alignof` builtins (package check's
// checkCall recognizes these by callee name and types the call as u64
// without ever resolving an overload) and ordinary procedure calls,
// direct or through a procedure-valued expression.
func (e *Emitter) emitCall(f *procFrame, n *ast.Call) (llvm.Value, error) {
	if callee, ok := n.Callee.(*ast.Identifier); ok {
		switch callee.Name {
		case "sizeof":
			return e.emitSizeofAlignof(n, false)
		case "alignof":
			return e.emitSizeofAlignof(n, true)
		}
	}

	args := make([]llvm.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := e.emitExpr(f, a)
		if err != nil {
			return llvm.Value{}, err
		}
		args[i] = v
	}

	fn, procType, err := e.resolveCallee(f, n.Callee)
	if err != nil {
		return llvm.Value{}, err
	}

	return e.body.CreateCall(procType, fn, args, ""), nil
}

// emitSizeofAlignof evaluates its single argument's *type* (not its
// runtime value) against types.layout's cached size/align, per spec.md
// §4.8 ("Built-ins sizeof/alignof take exactly one expression argument
// and return u64").
func (e *Emitter) emitSizeofAlignof(n *ast.Call, align bool) (llvm.Value, error) {
	if len(n.Args) != 1 {
		return llvm.Value{}, fmt.Errorf("codegen: sizeof/alignof requires exactly one argument")
	}

	t := n.Args[0].Type()
	if t == nil {
		return llvm.Value{}, fmt.Errorf("codegen: sizeof/alignof argument has no resolved type")
	}
	if unwrapped, ok := e.Types.TidUnwrap(t); ok {
		t = unwrapped
	}

	var v int64
	if align {
		v = t.Align()
	} else {
		v = t.Size()
	}

	return llvm.ConstInt(e.ctx.Int64Type(), uint64(v), false), nil
}

// resolveCallee returns the LLVM function value and its function type
// for a call's callee expression: a direct procedure reference resolves
// through e.procs (picking up the exact declared signature, which
// matters for C-vararg foreign procedures), anything else is evaluated
// as a procedure-pointer value.
func (e *Emitter) resolveCallee(f *procFrame, callee ast.Expr) (llvm.Value, llvm.Type, error) {
	if id, ok := callee.(*ast.Identifier); ok {
		ds, err := e.resolveDecl(id)
		if err == nil {
			if fn, ok := e.procs[ds]; ok {
				return fn, fn.GlobalValueType(), nil
			}
		}
	}

	v, err := e.emitExpr(f, callee)
	if err != nil {
		return llvm.Value{}, llvm.Type{}, err
	}

	ct := callee.Type()
	if ct == nil || ct.Kind != types.Procedure {
		return llvm.Value{}, llvm.Type{}, fmt.Errorf("codegen: call target is not a procedure")
	}

	return v, e.procedureType(ct), nil
}
