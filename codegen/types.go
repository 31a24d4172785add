package codegen

import (
	"fmt"

	"github.com/golangee/rook/ast"
	"github.com/golangee/rook/types"
	"tinygo.org/x/go-llvm"
)

// llvmType maps an interned TypeId to its LLVM counterpart, creating and
// caching named struct types lazily for anything reached before its own
// declareStructType pass runs (e.g. a pointer-to-forward-declared-struct
// member type).
func (e *Emitter) llvmType(t *types.TypeId) llvm.Type {
	if t.Kind == types.TypeOf {
		t = t.Of
	}

	if lt, ok := e.llvmTypes[t]; ok {
		return lt
	}

	var lt llvm.Type

	switch t.Kind {
	case types.Void:
		lt = e.ctx.VoidType()
	case types.Bool:
		lt = e.ctx.Int1Type()
	case types.S8, types.U8:
		lt = e.ctx.Int8Type()
	case types.S16, types.U16:
		lt = e.ctx.Int16Type()
	case types.S32, types.U32:
		lt = e.ctx.Int32Type()
	case types.S64, types.U64:
		lt = e.ctx.Int64Type()
	case types.Float:
		lt = e.ctx.FloatType()
	case types.Double:
		lt = e.ctx.DoubleType()
	case types.Pointer:
		lt = llvm.PointerType(e.llvmType(t.Inner), 0)
	case types.Procedure:
		lt = llvm.PointerType(e.procedureType(t), 0)
	case types.Struct:
		lt = e.namedStructType(t)
	case types.Enum:
		lt = e.llvmType(t.Backing)
	case types.Array:
		lt = e.arrayType(t)
	case types.String:
		lt = e.namedStructType(t)
	case types.Any:
		// {type_id: s32, data: *u8}, a minimal tagged-pointer shape.
		lt = e.ctx.StructType([]llvm.Type{e.ctx.Int32Type(), llvm.PointerType(e.ctx.Int8Type(), 0)}, false)
	default:
		lt = e.ctx.Int8Type()
	}

	e.llvmTypes[t] = lt

	return lt
}

func (e *Emitter) procedureType(t *types.TypeId) llvm.Type {
	args := make([]llvm.Type, len(t.Args))
	for i, a := range t.Args {
		args[i] = e.llvmType(a)
	}

	var ret llvm.Type
	switch len(t.Rets) {
	case 0:
		ret = e.ctx.VoidType()
	case 1:
		ret = e.llvmType(t.Rets[0])
	default:
		rets := make([]llvm.Type, len(t.Rets))
		for i, r := range t.Rets {
			rets[i] = e.llvmType(r)
		}
		ret = e.ctx.StructType(rets, false)
	}

	return llvm.FunctionType(ret, args, t.CVararg)
}

// namedStructType returns the (possibly still-opaque) LLVM struct type
// for a Struct/String TypeId, creating an empty named struct the first
// time it's referenced (declareStructType fills the body in later).
func (e *Emitter) namedStructType(t *types.TypeId) llvm.Type {
	if lt, ok := e.llvmTypes[t]; ok {
		return lt
	}

	name := t.Name
	if name == "" {
		name = "string"
	}

	lt := e.ctx.StructCreateNamed(fmt.Sprintf("%s.%d", name, structOrdinal(t)))
	e.llvmTypes[t] = lt

	return lt
}

// structOrdinal gives every Struct/Enum TypeId a stable per-compilation
// number for its LLVM type name, since two source sites can share a
// plain Go struct name (`Name :: struct {...}` is never structurally
// merged, per types.Interner's identity-type rule).
func structOrdinal(t *types.TypeId) int64 {
	return t.Identity()
}

// arrayType maps a fixed array to `[N x T]` and a slice/dynamic array to
// its implicit `{data, count[, allocated]}` struct shape (types.layout's
// buildArrayView).
func (e *Emitter) arrayType(t *types.TypeId) llvm.Type {
	if t.FixedSize >= 0 {
		return llvm.ArrayType(e.llvmType(t.Inner), int(t.FixedSize))
	}

	fields := []llvm.Type{llvm.PointerType(e.llvmType(t.Inner), 0), e.ctx.Int64Type()}
	if t.Dynamic {
		fields = append(fields, e.ctx.Int64Type())
	}

	return e.ctx.StructType(fields, false)
}

// declareStructType creates (but does not fill in) the named LLVM struct
// type for st, allocating its TypeId identity ahead of any member that
// points back to it.
func (e *Emitter) declareStructType(st *ast.Struct) (*types.TypeId, error) {
	t, ok := e.Types.TidUnwrap(st.Type())
	if !ok {
		return nil, fmt.Errorf("codegen: struct %s has no resolved identity", st.Name)
	}

	e.namedStructType(t)

	return t, nil
}

// defineStructBody fills in the LLVM struct body for st's members, once
// every member has been laid out by types.layoutMembers (triggered by
// the first Size()/Align() call below).
func (e *Emitter) defineStructBody(st *ast.Struct) error {
	t, ok := e.Types.TidUnwrap(st.Type())
	if !ok {
		return fmt.Errorf("codegen: struct %s has no resolved identity", st.Name)
	}

	return e.defineNamedBody(t)
}

// defineNamedBody fills in the LLVM body of t's named struct type from
// its member view (types.TypeId.MemberView, valid for both a plain
// Struct and the lazily-built String/Array view shapes).
func (e *Emitter) defineNamedBody(t *types.TypeId) error {
	members := t.MemberView()

	fields := make([]llvm.Type, len(members))
	for i, m := range members {
		fields[i] = e.llvmType(m.Type)
	}

	lt := e.namedStructType(t)
	lt.StructSetBody(fields, false)

	return nil
}

// DefineBuiltinBody fills in the LLVM body for a builtin struct-shaped
// type (the `string` type workspace installs via SetStringType) that
// has no *ast.Struct of its own to drive defineStructBody.
func (e *Emitter) DefineBuiltinBody(t *types.TypeId) error {
	return e.defineNamedBody(t)
}
