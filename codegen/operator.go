package codegen

import (
	"fmt"

	"github.com/golangee/rook/ast"
	"github.com/golangee/rook/types"
	"tinygo.org/x/go-llvm"
)

var assignOps = map[string]bool{"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true}

func (e *Emitter) emitOperator(f *procFrame, n *ast.Operator) (llvm.Value, error) {
	if n.Left == nil {
		return e.emitUnary(f, n)
	}

	if assignOps[n.Op] {
		return e.emitAssign(f, n)
	}

	if n.Op == "." {
		return e.emitMemberLoad(f, n)
	}

	return e.emitBinary(f, n)
}

func (e *Emitter) emitUnary(f *procFrame, n *ast.Operator) (llvm.Value, error) {
	switch n.Op {
	case "*": // address-of
		return e.lvalAddress(f, n.Right)
	case "<<": // dereference
		ptr, err := e.emitExpr(f, n.Right)
		if err != nil {
			return llvm.Value{}, err
		}
		return e.body.CreateLoad(e.llvmType(n.Type()), ptr, ""), nil
	}

	rv, err := e.emitExpr(f, n.Right)
	if err != nil {
		return llvm.Value{}, err
	}

	switch n.Op {
	case "!":
		return e.body.CreateNot(rv, ""), nil
	case "-":
		if n.Type().IsFloat() {
			return e.body.CreateFNeg(rv, ""), nil
		}
		return e.body.CreateNeg(rv, ""), nil
	case "++", "--":
		addr, err := e.lvalAddress(f, n.Right)
		if err != nil {
			return llvm.Value{}, err
		}
		one := llvm.ConstInt(e.llvmType(n.Type()), 1, false)
		var next llvm.Value
		if n.Op == "++" {
			next = e.body.CreateAdd(rv, one, "")
		} else {
			next = e.body.CreateSub(rv, one, "")
		}
		e.body.CreateStore(next, addr)
		return next, nil
	default:
		return llvm.Value{}, fmt.Errorf("codegen: unsupported unary operator %q", n.Op)
	}
}

func (e *Emitter) emitAssign(f *procFrame, n *ast.Operator) (llvm.Value, error) {
	addr, err := e.lvalAddress(f, n.Left)
	if err != nil {
		return llvm.Value{}, err
	}

	rhs, err := e.emitExpr(f, n.Right)
	if err != nil {
		return llvm.Value{}, err
	}

	if n.Op == "=" {
		e.body.CreateStore(rhs, addr)
		return llvm.Value{}, nil
	}

	lt := n.Left.Type()
	cur := e.body.CreateLoad(e.llvmType(lt), addr, "")
	combined, err := e.arith(n.Op[:1], cur, rhs, lt)
	if err != nil {
		return llvm.Value{}, err
	}
	e.body.CreateStore(combined, addr)

	return llvm.Value{}, nil
}

func (e *Emitter) emitMemberLoad(f *procFrame, n *ast.Operator) (llvm.Value, error) {
	id, ok := n.Right.(*ast.Identifier)
	if !ok {
		return llvm.Value{}, fmt.Errorf("codegen: `.` requires an identifier member")
	}

	ds, err := e.resolveDecl(id)
	if err != nil {
		return llvm.Value{}, err
	}

	if ds.Constant {
		return e.emitConstValue(ds, n.Type())
	}

	addr, err := e.memberAddress(f, n)
	if err != nil {
		return llvm.Value{}, err
	}

	return e.body.CreateLoad(e.llvmType(n.Type()), addr, ""), nil
}

func (e *Emitter) emitBinary(f *procFrame, n *ast.Operator) (llvm.Value, error) {
	if n.Op == "and" || n.Op == "or" {
		return e.emitShortCircuit(f, n)
	}

	l, err := e.emitExpr(f, n.Left)
	if err != nil {
		return llvm.Value{}, err
	}
	r, err := e.emitExpr(f, n.Right)
	if err != nil {
		return llvm.Value{}, err
	}

	lt := n.Left.Type()

	switch n.Op {
	case "==", "!=", "<", ">", "<=", ">=":
		return e.compare(n.Op, l, r, lt), nil
	default:
		return e.arith(n.Op, l, r, n.Type())
	}
}

// emitShortCircuit builds `and`/`or`'s skip-block-plus-phi shape (spec.md
// §4.9: "and/or emit right-side block + phi with the skip block's
// constant result").
func (e *Emitter) emitShortCircuit(f *procFrame, n *ast.Operator) (llvm.Value, error) {
	l, err := e.emitExpr(f, n.Left)
	if err != nil {
		return llvm.Value{}, err
	}

	startBlock := e.body.GetInsertBlock()
	rhsBlock := llvm.AddBasicBlock(f.fn, "")
	doneBlock := llvm.AddBasicBlock(f.fn, "")

	var skipResult llvm.Value
	if n.Op == "or" {
		skipResult = llvm.ConstInt(e.ctx.Int1Type(), 1, false)
		e.body.CreateCondBr(l, doneBlock, rhsBlock)
	} else {
		skipResult = llvm.ConstInt(e.ctx.Int1Type(), 0, false)
		e.body.CreateCondBr(l, rhsBlock, doneBlock)
	}

	e.body.SetInsertPointAtEnd(rhsBlock)
	r, err := e.emitExpr(f, n.Right)
	if err != nil {
		return llvm.Value{}, err
	}
	rhsEnd := e.body.GetInsertBlock()
	e.body.CreateBr(doneBlock)

	e.body.SetInsertPointAtEnd(doneBlock)
	phi := e.body.CreatePHI(e.ctx.Int1Type(), "")
	phi.AddIncoming([]llvm.Value{skipResult, r}, []llvm.BasicBlock{startBlock, rhsEnd})

	return phi, nil
}

func (e *Emitter) compare(op string, l, r llvm.Value, t *types.TypeId) llvm.Value {
	if t != nil && t.IsFloat() {
		pred := map[string]llvm.FloatPredicate{
			"==": llvm.FloatOEQ, "!=": llvm.FloatONE,
			"<": llvm.FloatOLT, ">": llvm.FloatOGT,
			"<=": llvm.FloatOLE, ">=": llvm.FloatOGE,
		}[op]
		return e.body.CreateFCmp(pred, l, r, "")
	}

	signed := t != nil && t.IsSignedInteger()
	pred := map[string]llvm.IntPredicate{
		"==": llvm.IntEQ, "!=": llvm.IntNE,
		"<": signedPred(signed, llvm.IntSLT, llvm.IntULT),
		">": signedPred(signed, llvm.IntSGT, llvm.IntUGT),
		"<=": signedPred(signed, llvm.IntSLE, llvm.IntULE),
		">=": signedPred(signed, llvm.IntSGE, llvm.IntUGE),
	}[op]

	return e.body.CreateICmp(pred, l, r, "")
}

func signedPred(signed bool, s, u llvm.IntPredicate) llvm.IntPredicate {
	if signed {
		return s
	}
	return u
}

func (e *Emitter) arith(op string, l, r llvm.Value, t *types.TypeId) (llvm.Value, error) {
	if t != nil && t.IsFloat() {
		switch op {
		case "+":
			return e.body.CreateFAdd(l, r, ""), nil
		case "-":
			return e.body.CreateFSub(l, r, ""), nil
		case "*":
			return e.body.CreateFMul(l, r, ""), nil
		case "/":
			return e.body.CreateFDiv(l, r, ""), nil
		default:
			return llvm.Value{}, fmt.Errorf("codegen: %q is not a valid float operator", op)
		}
	}

	signed := t != nil && t.IsSignedInteger()

	switch op {
	case "+":
		if t != nil && t.Kind == types.Pointer {
			return e.body.CreateGEP(e.llvmType(t.Inner), l, []llvm.Value{r}, ""), nil
		}
		return e.body.CreateAdd(l, r, ""), nil
	case "-":
		return e.body.CreateSub(l, r, ""), nil
	case "*":
		return e.body.CreateMul(l, r, ""), nil
	case "/":
		if signed {
			return e.body.CreateSDiv(l, r, ""), nil
		}
		return e.body.CreateUDiv(l, r, ""), nil
	case "%":
		if signed {
			return e.body.CreateSRem(l, r, ""), nil
		}
		return e.body.CreateURem(l, r, ""), nil
	default:
		return llvm.Value{}, fmt.Errorf("codegen: unsupported operator %q", op)
	}
}
