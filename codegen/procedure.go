package codegen

import (
	"fmt"

	"github.com/golangee/rook/ast"
	"tinygo.org/x/go-llvm"
)

// declareProcedure adds ds's LLVM function declaration (signature only)
// to the module, so every call site — including a forward or mutually
// recursive one — resolves during pass 4 regardless of source order
// (spec.md §5: "order follows source order within each module", which
// this two-pass split honors without constraining call order).
func (e *Emitter) declareProcedure(ds *ast.DeclareSingle, proc *ast.Procedure) (llvm.Value, error) {
	t := ds.Type()
	if t == nil {
		return llvm.Value{}, fmt.Errorf("codegen: procedure %q has no resolved signature", ds.Name)
	}

	name := proc.Name
	if proc.Foreign && proc.ForeignName != "" {
		name = proc.ForeignName
	}
	if name == "" {
		name = ds.Name
	}

	if fn := e.mod.NamedFunction(name); !fn.IsNil() {
		e.procs[ds] = fn
		return fn, nil
	}

	fn := llvm.AddFunction(e.mod, name, e.procedureType(t))
	for i, arg := range proc.Args {
		fn.Param(i).SetName(arg.Name)
	}

	e.procs[ds] = fn

	return fn, nil
}

// defineProcedureBody emits proc's body (spec.md §4.9: an entry block
// used only for allocas, branching unconditionally into the real first
// block, so a local declared anywhere in the body can still allocate in
// the entry block after control flow has already advanced past it).
func (e *Emitter) defineProcedureBody(ds *ast.DeclareSingle, proc *ast.Procedure) error {
	fn, ok := e.procs[ds]
	if !ok {
		return fmt.Errorf("codegen: procedure %q was never declared", ds.Name)
	}

	entryBlock := llvm.AddBasicBlock(fn, "entry")
	bodyBlock := llvm.AddBasicBlock(fn, "")

	e.entry.SetInsertPointAtEnd(entryBlock)
	e.body.SetInsertPointAtEnd(bodyBlock)

	f := newProcFrame(fn, proc)
	f.pushScope()

	for i, arg := range proc.Args {
		addr := e.entry.CreateAlloca(e.llvmType(arg.Type()), arg.Name)
		e.body.CreateStore(fn.Param(i), addr)
		f.locals[arg] = addr
	}

	if err := e.emitStmt(f, proc.Body); err != nil {
		return err
	}

	if !f.terminated {
		if len(proc.Rets) == 0 {
			e.body.CreateRetVoid()
		} else {
			e.body.CreateUnreachable()
		}
	}

	e.entry.SetInsertPointAtEnd(entryBlock)
	e.entry.CreateBr(bodyBlock)

	return nil
}
