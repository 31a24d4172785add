package codegen

import (
	"fmt"

	"github.com/golangee/rook/ast"
	"tinygo.org/x/go-llvm"
)

// declareGlobal adds ds's LLVM global variable, zero-initialized until
// initGlobal fills in its real value. A `ds.Constant` declaration gets
// no storage at all: every reference folds through emitConstValue
// instead (spec.md §4.9's constant-evaluator materialization).
func (e *Emitter) declareGlobal(ds *ast.DeclareSingle) error {
	if ds.Constant {
		return nil
	}

	t := ds.Type()
	if t == nil {
		return fmt.Errorf("codegen: global %q has no resolved type", ds.Name)
	}

	lt := e.llvmType(t)
	g := llvm.AddGlobal(e.mod, lt, ds.Name)
	g.SetInitializer(llvm.ConstNull(lt))

	e.globals[ds] = g

	return nil
}

// initGlobal fills in a non-constant global's real initializer once
// every struct/procedure/global has a declared LLVM value to reference.
func (e *Emitter) initGlobal(ds *ast.DeclareSingle) error {
	if ds.Constant || ds.Value == nil {
		return nil
	}

	g, ok := e.globals[ds]
	if !ok {
		return fmt.Errorf("codegen: global %q was never declared", ds.Name)
	}

	val, err := e.emitConstValue(ds, ds.Type())
	if err != nil {
		return err
	}

	g.SetInitializer(val)

	return nil
}
