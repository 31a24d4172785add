package codegen

import (
	"fmt"

	"github.com/golangee/rook/ast"
	"tinygo.org/x/go-llvm"
)

// emitStmt emits one statement into f's current block. Control-flow
// statements (If/While/For/Return/LoopControl) may leave f.terminated
// set; callers must check it before emitting anything that would follow
// a terminator in the same block.
func (e *Emitter) emitStmt(f *procFrame, s ast.Stmt) error {
	if f.terminated {
		return nil
	}

	switch n := s.(type) {
	case *ast.Block:
		return e.emitBlock(f, n)
	case *ast.EmptyStatement:
		return nil
	case *ast.DeclareSingle:
		return e.emitLocalDeclare(f, n)
	case *ast.DeclareMulti:
		return e.emitDeclareMulti(f, n)
	case *ast.AssignMulti:
		return e.emitAssignMulti(f, n)
	case *ast.Using:
		return nil // compile-time-only scope injection, no runtime effect
	case *ast.Defer:
		f.top().defers = append(f.top().defers, n.Stmt)
		return nil
	case *ast.If:
		return e.emitIf(f, n)
	case *ast.While:
		return e.emitWhile(f, n)
	case *ast.For:
		return e.emitFor(f, n)
	case *ast.Return:
		return e.emitReturn(f, n)
	case *ast.LoopControl:
		return e.emitLoopControl(f, n)
	case *ast.Delete:
		return e.emitDelete(f, n)
	case *ast.Remove:
		return e.emitDelete(f, n) // same runtime shape as delete: free the backing storage
	case *ast.PushContext:
		return e.emitPushContext(f, n)
	case *ast.RunDirective, *ast.ImportDirective, *ast.ForeignLibraryDirective:
		return nil // compile-time only
	default:
		if expr, ok := s.(ast.Expr); ok {
			_, err := e.emitExpr(f, expr)
			return err
		}
		return fmt.Errorf("codegen: no statement rule for %T", s)
	}
}

func (e *Emitter) emitBlock(f *procFrame, b *ast.Block) error {
	f.pushScope()
	defer func() {
		if len(f.scopes) > 0 {
			f.popScope()
		}
	}()

	for _, stmt := range b.Stmts {
		if err := e.emitStmt(f, stmt); err != nil {
			return err
		}
	}

	if !f.terminated {
		e.runDefers(f, f.top().defers)
	}

	return nil
}

// runDefers emits a defer queue's statements into f last-first. Both a
// scope's own queue and deferredSince's result are in declaration order,
// so the most recently deferred statement runs first.
func (e *Emitter) runDefers(f *procFrame, defers []ast.Stmt) {
	for i := len(defers) - 1; i >= 0; i-- {
		_ = e.emitStmt(f, defers[i])
	}
}

func (e *Emitter) emitLocalDeclare(f *procFrame, ds *ast.DeclareSingle) error {
	t := ds.Type()
	if t == nil {
		return fmt.Errorf("codegen: local %q has no resolved type", ds.Name)
	}

	if ds.Constant {
		// Constants carry no storage; referenced via emitConstValue at
		// each use site instead (see codegen/expr.go:resolveDecl).
		return nil
	}

	lt := e.llvmType(t)
	addr := e.entry.CreateAlloca(lt, ds.Name)
	f.locals[ds] = addr

	if ds.Value != nil {
		v, err := e.emitExpr(f, ds.Value)
		if err != nil {
			return err
		}
		e.body.CreateStore(v, addr)
	} else {
		e.body.CreateStore(llvm.ConstNull(lt), addr)
	}

	return nil
}

func (e *Emitter) emitDeclareMulti(f *procFrame, n *ast.DeclareMulti) error {
	// package check never assigns per-name declarations for DeclareMulti
	// (spec.md §9 leaves multi-value destructuring's symbol-table wiring
	// an open question); evaluate the right-hand values for their side
	// effects and otherwise treat this as a no-op.
	for _, v := range n.Values {
		if _, err := e.emitExpr(f, v); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) emitAssignMulti(f *procFrame, n *ast.AssignMulti) error {
	values := make([]llvm.Value, len(n.Values))
	for i, v := range n.Values {
		val, err := e.emitExpr(f, v)
		if err != nil {
			return err
		}
		values[i] = val
	}

	for i, target := range n.Targets {
		addr, err := e.lvalAddress(f, target)
		if err != nil {
			return err
		}
		e.body.CreateStore(values[i], addr)
	}

	return nil
}

func (e *Emitter) emitIf(f *procFrame, n *ast.If) error {
	cond, err := e.emitExpr(f, n.Cond)
	if err != nil {
		return err
	}

	thenBlock := llvm.AddBasicBlock(f.fn, "")
	doneBlock := llvm.AddBasicBlock(f.fn, "")
	elseBlock := doneBlock
	if n.ElseBody != nil {
		elseBlock = llvm.AddBasicBlock(f.fn, "")
	}

	e.body.CreateCondBr(cond, thenBlock, elseBlock)

	e.body.SetInsertPointAtEnd(thenBlock)
	f.terminated = false
	if err := e.emitStmt(f, n.Body); err != nil {
		return err
	}
	if !f.terminated {
		e.body.CreateBr(doneBlock)
	}
	thenTerminated := f.terminated

	elseTerminated := false
	if n.ElseBody != nil {
		e.body.SetInsertPointAtEnd(elseBlock)
		f.terminated = false
		if err := e.emitStmt(f, n.ElseBody); err != nil {
			return err
		}
		if !f.terminated {
			e.body.CreateBr(doneBlock)
		}
		elseTerminated = f.terminated
	}

	e.body.SetInsertPointAtEnd(doneBlock)
	f.terminated = thenTerminated && elseTerminated && n.ElseBody != nil

	return nil
}

func (e *Emitter) emitWhile(f *procFrame, n *ast.While) error {
	condBlock := llvm.AddBasicBlock(f.fn, "")
	bodyBlock := llvm.AddBasicBlock(f.fn, "")
	doneBlock := llvm.AddBasicBlock(f.fn, "")

	e.body.CreateBr(condBlock)

	e.body.SetInsertPointAtEnd(condBlock)
	cond, err := e.emitExpr(f, n.Cond)
	if err != nil {
		return err
	}
	e.body.CreateCondBr(cond, bodyBlock, doneBlock)

	e.body.SetInsertPointAtEnd(bodyBlock)
	s := f.pushScope()
	s.breakBlock = doneBlock
	s.continueBlock = condBlock
	f.terminated = false

	if err := e.emitStmt(f, n.Body); err != nil {
		return err
	}
	if !f.terminated {
		e.runDefers(f, f.top().defers)
		e.body.CreateBr(condBlock)
	}
	f.popScope()

	e.body.SetInsertPointAtEnd(doneBlock)
	f.terminated = false

	return nil
}

// emitFor lowers `for Name : iterable { body }` to an index-counted loop
// over iterable's backing storage. package check leaves the iterator
// name's own typing an open question (ast.For's doc comment), so the
// loop body cannot resolve IterName as a declaration; this still emits
// a correct iteration count for iterable's bounds.
func (e *Emitter) emitFor(f *procFrame, n *ast.For) error {
	count, err := e.forCount(f, n.Iterable)
	if err != nil {
		return err
	}

	idxAddr := e.entry.CreateAlloca(e.ctx.Int64Type(), "")
	zero := llvm.ConstInt(e.ctx.Int64Type(), 0, false)
	e.body.CreateStore(zero, idxAddr)

	condBlock := llvm.AddBasicBlock(f.fn, "")
	bodyBlock := llvm.AddBasicBlock(f.fn, "")
	stepBlock := llvm.AddBasicBlock(f.fn, "")
	doneBlock := llvm.AddBasicBlock(f.fn, "")

	e.body.CreateBr(condBlock)

	e.body.SetInsertPointAtEnd(condBlock)
	idx := e.body.CreateLoad(e.ctx.Int64Type(), idxAddr, "")
	cond := e.body.CreateICmp(llvm.IntULT, idx, count, "")
	e.body.CreateCondBr(cond, bodyBlock, doneBlock)

	e.body.SetInsertPointAtEnd(bodyBlock)
	s := f.pushScope()
	s.breakBlock = doneBlock
	s.continueBlock = stepBlock
	f.terminated = false

	if err := e.emitStmt(f, n.Body); err != nil {
		return err
	}
	if !f.terminated {
		e.runDefers(f, f.top().defers)
		e.body.CreateBr(stepBlock)
	}
	f.popScope()

	e.body.SetInsertPointAtEnd(stepBlock)
	cur := e.body.CreateLoad(e.ctx.Int64Type(), idxAddr, "")
	one := llvm.ConstInt(e.ctx.Int64Type(), 1, false)
	e.body.CreateStore(e.body.CreateAdd(cur, one, ""), idxAddr)
	e.body.CreateBr(condBlock)

	e.body.SetInsertPointAtEnd(doneBlock)
	f.terminated = false

	return nil
}

// forCount returns iterable's element count as an i64: the constant
// extent of a fixed array, or the runtime `count` field of a
// slice/dynamic array.
func (e *Emitter) forCount(f *procFrame, iterable ast.Expr) (llvm.Value, error) {
	t := iterable.Type()
	if t != nil && t.FixedSize >= 0 {
		return llvm.ConstInt(e.ctx.Int64Type(), uint64(t.FixedSize), false), nil
	}

	addr, err := e.lvalAddress(f, iterable)
	if err != nil {
		return llvm.Value{}, err
	}

	countAddr := e.body.CreateStructGEP(e.llvmType(t), addr, 1, "")
	return e.body.CreateLoad(e.ctx.Int64Type(), countAddr, ""), nil
}

func (e *Emitter) emitReturn(f *procFrame, n *ast.Return) error {
	values := make([]llvm.Value, len(n.Values))
	for i, v := range n.Values {
		val, err := e.emitExpr(f, v)
		if err != nil {
			return err
		}
		values[i] = val
	}

	e.runDefers(f, f.deferredSince(0))

	switch len(values) {
	case 0:
		e.body.CreateRetVoid()
	case 1:
		e.body.CreateRet(values[0])
	default:
		retTypes := make([]llvm.Type, len(n.Values))
		for i, v := range n.Values {
			retTypes[i] = e.llvmType(v.Type())
		}
		agg := e.ctx.ConstStruct(nil, false)
		_ = agg
		packed := llvm.Undef(e.ctx.StructType(retTypes, false))
		for i, v := range values {
			packed = e.body.CreateInsertValue(packed, v, i, "")
		}
		e.body.CreateRet(packed)
	}

	f.terminated = true

	return nil
}

func (e *Emitter) emitLoopControl(f *procFrame, n *ast.LoopControl) error {
	brk, cont, ok := f.loopTargets()
	if !ok {
		return fmt.Errorf("codegen: break/continue outside a loop")
	}

	idx, _ := f.loopScopeIndex()
	e.runDefers(f, f.deferredSince(idx))

	if n.Kind == ast.Continue {
		e.body.CreateBr(cont)
	} else {
		e.body.CreateBr(brk)
	}

	f.terminated = true

	return nil
}

func (e *Emitter) emitDelete(f *procFrame, target ast.Expr) error {
	var t ast.Expr
	switch n := target.(type) {
	case *ast.Delete:
		t = n.Target
	case *ast.Remove:
		t = n.Target
	}

	v, err := e.emitExpr(f, t)
	if err != nil {
		return err
	}

	free := e.freeFn()
	ptr := v
	if v.Type().TypeKind() != llvm.PointerTypeKind {
		// Freeing a slice/dynamic array: free its `data` field.
		ptr = e.body.CreateExtractValue(v, 0, "")
	}
	casted := e.body.CreateBitCast(ptr, llvm.PointerType(e.ctx.Int8Type(), 0), "")
	e.body.CreateCall(free.GlobalValueType(), free, []llvm.Value{casted}, "")

	return nil
}

// emitPushContext emits a `push_context name { body }` block as a plain
// nested block: package check types it void with no other runtime
// effect recorded (spec.md leaves the context object's own shape out of
// scope for this front end), so only its lexical scoping is honored.
func (e *Emitter) emitPushContext(f *procFrame, n *ast.PushContext) error {
	return e.emitStmt(f, n.Body)
}
