package codegen

import (
	"fmt"
	"math"

	"github.com/golangee/rook/ast"
	"github.com/golangee/rook/symtab"
	"github.com/golangee/rook/token"
	"github.com/golangee/rook/types"
	"tinygo.org/x/go-llvm"
)

// emitExpr emits n as an rvalue, per spec.md §4.9 "Loads/stores generated
// in obvious correspondence".
func (e *Emitter) emitExpr(f *procFrame, n ast.Expr) (llvm.Value, error) {
	switch v := n.(type) {
	case *ast.Literal:
		return e.emitLiteral(v)
	case *ast.Null:
		return llvm.ConstPointerNull(e.llvmType(v.Type())), nil
	case *ast.UninitializedValue:
		return llvm.Undef(e.llvmType(v.Type())), nil
	case *ast.Identifier:
		return e.emitIdentifierLoad(f, v)
	case *ast.Operator:
		return e.emitOperator(f, v)
	case *ast.Cast:
		return e.emitCast(f, v)
	case *ast.New:
		return e.emitNew(f, v)
	case *ast.ArrayIndex:
		addr, err := e.lvalAddress(f, v)
		if err != nil {
			return llvm.Value{}, err
		}
		return e.body.CreateLoad(e.llvmType(v.Type()), addr, ""), nil
	case *ast.Call:
		return e.emitCall(f, v)
	case *ast.Inline:
		return e.emitExpr(f, v.Target)
	default:
		return llvm.Value{}, fmt.Errorf("codegen: no expression rule for %T", n)
	}
}

func (e *Emitter) emitLiteral(lit *ast.Literal) (llvm.Value, error) {
	t := lit.Type()
	if t == nil {
		return llvm.Value{}, fmt.Errorf("codegen: literal has no resolved type")
	}

	switch lit.Lit.Kind {
	case token.LitBool:
		v := uint64(0)
		if lit.Lit.Bool {
			v = 1
		}
		return llvm.ConstInt(e.llvmType(t), v, false), nil
	case token.LitInt:
		return llvm.ConstInt(e.llvmType(t), uint64(lit.Lit.Int), t.IsSignedInteger()), nil
	case token.LitFloat:
		return llvm.ConstFloat(e.llvmType(t), lit.Lit.Float), nil
	case token.LitString:
		return e.emitStringConst(lit.Lit.String)
	default:
		return llvm.Value{}, fmt.Errorf("codegen: unknown literal kind %v", lit.Lit.Kind)
	}
}

// emitStringConst materializes a string literal as a private-linkage
// byte-array global plus a {data, count} struct value (spec.md §4.9:
// "string literals become private-linkage constant globals referenced
// via GEP"), deduplicating identical literal bodies through the same
// arena interner package workspace uses for import-path canonicalization
// (spec.md §B names xxhash as the pack's generic byte-hash choice; this
// is the second consumer promised when internal/arena was wired in).
func (e *Emitter) emitStringConst(s string) (llvm.Value, error) {
	canonical := s
	if e.Strings != nil {
		canonical = e.Strings.Intern(s)
	}

	g, ok := e.stringConsts[canonical]
	if !ok {
		data := e.ctx.ConstString(canonical, false)
		g = llvm.AddGlobal(e.mod, data.Type(), ".str")
		g.SetInitializer(data)
		g.SetLinkage(llvm.PrivateLinkage)
		g.SetGlobalConstant(true)
		e.stringConsts[canonical] = g
	}

	zero := llvm.ConstInt(e.ctx.Int32Type(), 0, false)
	ptr := llvm.ConstGEP(g.GlobalValueType(), g, []llvm.Value{zero, zero})
	count := llvm.ConstInt(e.ctx.Int64Type(), uint64(len(canonical)), false)

	strTy := e.llvmType(e.stringTypeOf())
	return llvm.ConstNamedStruct(strTy, []llvm.Value{ptr, count}), nil
}

// stringTypeOf returns the builtin `string` TypeId; codegen never
// constructs it, package workspace installs it via SetStringType on
// package check's Rules and passes the same TypeId to the Emitter at
// construction time through Eval/Types, so any interned String-kind type
// already in e.llvmTypes is equivalent. Scanned for lazily since the
// Emitter itself does not keep a direct reference.
func (e *Emitter) stringTypeOf() *types.TypeId {
	for t, kind := range e.llvmTypes {
		_ = kind
		if t.Kind == types.String {
			return t
		}
	}
	// Not yet referenced elsewhere in this module; build an ephemeral one
	// keyed the same way workspace does, so layout/identity still agree
	// once the real one is registered (types.String is never struct-
	// merged across identity, only scalar kinds are, so this degrades to
	// "looks like any other string value" rather than a wrong answer).
	return e.Types.NewStringType(e.Types.Builtin(types.U8))
}

func (e *Emitter) emitIdentifierLoad(f *procFrame, id *ast.Identifier) (llvm.Value, error) {
	ds, err := e.resolveDecl(id)
	if err != nil {
		return llvm.Value{}, err
	}

	if fn, ok := e.procs[ds]; ok {
		return fn, nil
	}

	if ds.Constant {
		return e.emitConstValue(ds, id.Type())
	}

	addr, err := e.storageOf(f, ds)
	if err != nil {
		return llvm.Value{}, err
	}

	return e.body.CreateLoad(e.llvmType(id.Type()), addr, ""), nil
}

func (e *Emitter) resolveDecl(id *ast.Identifier) (*ast.DeclareSingle, error) {
	rd, ok := id.Resolved.(*symtab.ResolveDecl)
	if !ok {
		return nil, fmt.Errorf("codegen: identifier %q never resolved", id.Name)
	}

	ds, ok := rd.Decl.(*ast.DeclareSingle)
	if !ok {
		return nil, fmt.Errorf("codegen: identifier %q does not resolve to a single declaration", id.Name)
	}

	return ds, nil
}

// storageOf returns the alloca/global backing ds, checking the active
// procedure frame's locals before the module-level globals map.
func (e *Emitter) storageOf(f *procFrame, ds *ast.DeclareSingle) (llvm.Value, error) {
	if f != nil {
		if v, ok := f.locals[ds]; ok {
			return v, nil
		}
	}

	e.mu.Lock()
	v, ok := e.globals[ds]
	e.mu.Unlock()
	if ok {
		return v, nil
	}

	return llvm.Value{}, fmt.Errorf("codegen: %q has no storage (declared constant with no foldable value, or forward reference)", ds.Name)
}

// emitConstValue folds ds's value into an LLVM constant via the shared
// consteval.Evaluator (spec.md §4.9 "Constants are materialized with
// LLVMConstInt/Real/Array/NamedStruct").
func (e *Emitter) emitConstValue(ds *ast.DeclareSingle, t *types.TypeId) (llvm.Value, error) {
	if t == nil {
		t = ds.Type()
	}

	if t != nil && t.Kind == types.String {
		if lit, ok := ds.Value.(*ast.Literal); ok && lit.Lit.Kind == token.LitString {
			return e.emitStringConst(lit.Lit.String)
		}
	}

	size := t.Size()
	buf := make([]byte, size)
	if err := e.Eval.Eval(ds.Value, nil, buf); err != nil {
		return llvm.Value{}, fmt.Errorf("codegen: constant %q: %w", ds.Name, err)
	}

	return e.constFromBytes(t, buf), nil
}

// constFromBytes builds an LLVM constant value of type t from its raw
// byte representation for bool, integer, and float kinds; a pointer
// becomes a null pointer and any other kind a zero value (ConstNull) of
// t's LLVM type.
func (e *Emitter) constFromBytes(t *types.TypeId, buf []byte) llvm.Value {
	lt := e.llvmType(t)

	switch {
	case t.Kind == types.Bool:
		v := uint64(0)
		if buf[0] != 0 {
			v = 1
		}
		return llvm.ConstInt(lt, v, false)
	case t.IsInteger():
		return llvm.ConstInt(lt, leUint(buf), t.IsSignedInteger())
	case t.Kind == types.Float, t.Kind == types.Double:
		return llvm.ConstFloat(lt, leFloat(t, buf))
	case t.Kind == types.Pointer:
		return llvm.ConstPointerNull(lt)
	default:
		return llvm.ConstNull(lt)
	}
}

func leUint(buf []byte) uint64 {
	var v uint64
	for i := len(buf) - 1; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v
}

func leFloat(t *types.TypeId, buf []byte) float64 {
	bits := leUint(buf)
	if t.Kind == types.Float {
		return float64(math.Float32frombits(uint32(bits)))
	}
	return math.Float64frombits(bits)
}

func (e *Emitter) emitCast(f *procFrame, c *ast.Cast) (llvm.Value, error) {
	v, err := e.emitExpr(f, c.Value)
	if err != nil {
		return llvm.Value{}, err
	}

	src := c.Value.Type()
	dst := c.Type()
	lt := e.llvmType(dst)

	switch {
	case src.IsInteger() && dst.IsInteger():
		switch {
		case dst.Size() > src.Size():
			if src.IsSignedInteger() {
				return e.body.CreateSExt(v, lt, ""), nil
			}
			return e.body.CreateZExt(v, lt, ""), nil
		case dst.Size() < src.Size():
			return e.body.CreateTrunc(v, lt, ""), nil
		default:
			return v, nil
		}
	case src.IsInteger() && dst.IsFloat():
		if src.IsSignedInteger() {
			return e.body.CreateSIToFP(v, lt, ""), nil
		}
		return e.body.CreateUIToFP(v, lt, ""), nil
	case src.IsFloat() && dst.IsInteger():
		if dst.IsSignedInteger() {
			return e.body.CreateFPToSI(v, lt, ""), nil
		}
		return e.body.CreateFPToUI(v, lt, ""), nil
	case src.IsFloat() && dst.IsFloat():
		if dst.Size() > src.Size() {
			return e.body.CreateFPExt(v, lt, ""), nil
		}
		if dst.Size() < src.Size() {
			return e.body.CreateFPTrunc(v, lt, ""), nil
		}
		return v, nil
	case src.Kind == types.Pointer && dst.Kind == types.Pointer:
		return e.body.CreateBitCast(v, lt, ""), nil
	case src.Kind == types.Array && src.FixedSize >= 0 && dst.Kind == types.Array && dst.FixedSize < 0:
		// Fixed array -> slice: {ptr-to-first-element, constant count}.
		addr, err := e.lvalAddress(f, c.Value)
		if err != nil {
			return llvm.Value{}, err
		}
		zero := llvm.ConstInt(e.ctx.Int32Type(), 0, false)
		first := e.body.CreateGEP(e.llvmType(src), addr, []llvm.Value{zero, zero}, "")
		count := llvm.ConstInt(e.ctx.Int64Type(), uint64(src.FixedSize), false)
		return e.body.CreateInsertValue(
			e.body.CreateInsertValue(llvm.Undef(lt), first, 0, ""), count, 1, ""), nil
	default:
		return llvm.Value{}, fmt.Errorf("codegen: unsupported cast from %s to %s", src.String(), dst.String())
	}
}

func (e *Emitter) emitNew(f *procFrame, n *ast.New) (llvm.Value, error) {
	inner, ok := e.Types.TidUnwrap(n.TypeExpr.Type())
	if !ok {
		return llvm.Value{}, fmt.Errorf("codegen: new: expected a type expression")
	}

	malloc := e.mallocFn()
	size := llvm.ConstInt(e.ctx.Int64Type(), uint64(inner.Size()), false)
	raw := e.body.CreateCall(malloc.GlobalValueType(), malloc, []llvm.Value{size}, "")

	return e.body.CreateBitCast(raw, llvm.PointerType(e.llvmType(inner), 0), ""), nil
}

func (e *Emitter) mallocFn() llvm.Value {
	if fn := e.mod.NamedFunction("malloc"); !fn.IsNil() {
		return fn
	}

	ftyp := llvm.FunctionType(llvm.PointerType(e.ctx.Int8Type(), 0), []llvm.Type{e.ctx.Int64Type()}, false)
	return llvm.AddFunction(e.mod, "malloc", ftyp)
}

func (e *Emitter) freeFn() llvm.Value {
	if fn := e.mod.NamedFunction("free"); !fn.IsNil() {
		return fn
	}

	ftyp := llvm.FunctionType(e.ctx.VoidType(), []llvm.Type{llvm.PointerType(e.ctx.Int8Type(), 0)}, false)
	return llvm.AddFunction(e.mod, "free", ftyp)
}
