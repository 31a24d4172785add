package codegen

import (
	"fmt"

	"github.com/golangee/rook/ast"
	"github.com/golangee/rook/types"
	"tinygo.org/x/go-llvm"
)

// lvalAddress computes the address of n, per spec.md §4.9
// "PlvalGetLoadStoreAddress": dereference, `.member`, identifier storage,
// array index. Anything else is materialized into a fresh temporary
// alloca (so e.g. taking the address of a call result still works).
func (e *Emitter) lvalAddress(f *procFrame, n ast.Expr) (llvm.Value, error) {
	switch v := n.(type) {
	case *ast.Identifier:
		ds, err := e.resolveDecl(v)
		if err != nil {
			return llvm.Value{}, err
		}
		return e.storageOf(f, ds)

	case *ast.Operator:
		if v.Left == nil && v.Op == "<<" {
			// Dereference: the address of `<<ptr` is ptr's own value.
			return e.emitExpr(f, v.Right)
		}
		if v.Op == "." {
			return e.memberAddress(f, v)
		}

	case *ast.ArrayIndex:
		return e.arrayIndexAddress(f, v)
	}

	val, err := e.emitExpr(f, n)
	if err != nil {
		return llvm.Value{}, err
	}

	tmp := e.entry.CreateAlloca(e.llvmType(n.Type()), "")
	e.body.CreateStore(val, tmp)

	return tmp, nil
}

func (e *Emitter) memberAddress(f *procFrame, n *ast.Operator) (llvm.Value, error) {
	id, ok := n.Right.(*ast.Identifier)
	if !ok {
		return llvm.Value{}, fmt.Errorf("codegen: `.` requires an identifier member")
	}

	lt := n.Left.Type()
	target := lt
	if target.Kind == types.TypeOf {
		target, _ = e.Types.TidUnwrap(target)
	}

	var base llvm.Value
	var err error
	if target.Kind == types.Pointer {
		base, err = e.emitExpr(f, n.Left)
		target = target.Inner
	} else {
		base, err = e.lvalAddress(f, n.Left)
	}
	if err != nil {
		return llvm.Value{}, err
	}

	idx, found := memberIndex(target, id.Name)
	if !found {
		return llvm.Value{}, fmt.Errorf("codegen: %s has no member %q", target.String(), id.Name)
	}

	return e.body.CreateStructGEP(e.llvmType(target), base, idx, ""), nil
}

func memberIndex(t *types.TypeId, name string) (int, bool) {
	members := t.MemberView()
	for i, m := range members {
		if m.Name == name {
			return i, true
		}
	}
	return 0, false
}

func (e *Emitter) arrayIndexAddress(f *procFrame, n *ast.ArrayIndex) (llvm.Value, error) {
	idx, err := e.emitExpr(f, n.Index)
	if err != nil {
		return llvm.Value{}, err
	}

	t := n.Target.Type()

	switch t.Kind {
	case types.Pointer:
		base, err := e.emitExpr(f, n.Target)
		if err != nil {
			return llvm.Value{}, err
		}
		return e.body.CreateGEP(e.llvmType(t.Inner), base, []llvm.Value{idx}, ""), nil

	case types.Array:
		if t.FixedSize >= 0 {
			base, err := e.lvalAddress(f, n.Target)
			if err != nil {
				return llvm.Value{}, err
			}
			zero := llvm.ConstInt(e.ctx.Int32Type(), 0, false)
			return e.body.CreateGEP(e.llvmType(t), base, []llvm.Value{zero, idx}, ""), nil
		}

		// Slice/dynamic array: load the `data` pointer, then GEP through it.
		structAddr, err := e.lvalAddress(f, n.Target)
		if err != nil {
			return llvm.Value{}, err
		}
		dataAddr := e.body.CreateStructGEP(e.llvmType(t), structAddr, 0, "")
		data := e.body.CreateLoad(llvm.PointerType(e.llvmType(t.Inner), 0), dataAddr, "")
		return e.body.CreateGEP(e.llvmType(t.Inner), data, []llvm.Value{idx}, ""), nil

	default:
		return llvm.Value{}, fmt.Errorf("codegen: cannot index type %s", t.String())
	}
}
