package codegen

import (
	"github.com/golangee/rook/ast"
	"tinygo.org/x/go-llvm"
)

// scopeFrame tracks the deferred statements and loop-control targets of
// one lexical scope, per spec.md §4.9 ("a stack of scopes, each with the
// deferred-statement watermark, plus optional loop-continue/loop-break
// block").
type scopeFrame struct {
	defers        []ast.Stmt
	breakBlock    llvm.BasicBlock // zero value if not inside a loop
	continueBlock llvm.BasicBlock
}

// procFrame is the per-procedure-definition emission state: its LLVM
// function value, the alloca for every local/arg declaration, and the
// scope stack used for defer unwinding and break/continue.
type procFrame struct {
	fn          llvm.Value
	retType     *ast.Procedure
	locals      map[*ast.DeclareSingle]llvm.Value
	scopes      []*scopeFrame
	terminated  bool // true once the current block has a terminator (spec.md §4.9)
}

func newProcFrame(fn llvm.Value, proc *ast.Procedure) *procFrame {
	return &procFrame{fn: fn, retType: proc, locals: make(map[*ast.DeclareSingle]llvm.Value)}
}

func (f *procFrame) pushScope() *scopeFrame {
	s := &scopeFrame{}
	f.scopes = append(f.scopes, s)
	return s
}

func (f *procFrame) popScope() {
	f.scopes = f.scopes[:len(f.scopes)-1]
}

func (f *procFrame) top() *scopeFrame {
	return f.scopes[len(f.scopes)-1]
}

// loopTargets returns the nearest enclosing loop's break/continue
// blocks, searching outward from the innermost scope.
func (f *procFrame) loopTargets() (brk, cont llvm.BasicBlock, ok bool) {
	for i := len(f.scopes) - 1; i >= 0; i-- {
		s := f.scopes[i]
		if !s.breakBlock.IsNil() {
			return s.breakBlock, s.continueBlock, true
		}
	}
	return llvm.BasicBlock{}, llvm.BasicBlock{}, false
}

// loopScopeIndex returns the index (into f.scopes) of the nearest
// enclosing loop's own body scope, for unwinding defers queued inside
// the loop body on break/continue.
func (f *procFrame) loopScopeIndex() (int, bool) {
	for i := len(f.scopes) - 1; i >= 0; i-- {
		if !f.scopes[i].breakBlock.IsNil() {
			return i, true
		}
	}
	return 0, false
}

// deferredSince collects every queued defer statement of the scopes from
// upto (inclusive) to the innermost one, in declaration order (outermost
// scope first), for unwinding at an early return/break/continue (spec.md
// §9: "on early exit, emit all entries from the scopes being unwound");
// runDefers then emits them last-first.
func (f *procFrame) deferredSince(upto int) []ast.Stmt {
	var out []ast.Stmt
	for i := upto; i < len(f.scopes); i++ {
		out = append(out, f.scopes[i].defers...)
	}
	return out
}
