// Package consteval implements the constant evaluator of spec.md §4.8: a
// narrow typed-AST walker that produces raw bytes for array-size
// expressions, global initializers, and `#run`. It deliberately does not
// implement a general interpreter (spec.md §9, "Avoid implementing a
// general constant interpreter" — reachable only from array-size
// expressions, global initializers, and `#run expr`), grounded on the
// original's default-value/`#run` evaluation walk (original_source/
// bob.cpp, `EvalConst`).
package consteval

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/golangee/rook/ast"
	"github.com/golangee/rook/symtab"
	"github.com/golangee/rook/token"
	"github.com/golangee/rook/types"
)

// Evaluator holds the shared tables needed to resolve identifiers and
// struct members while folding a constant expression.
type Evaluator struct {
	Types *types.Interner
	// StructTables is the same table package check populates as structs
	// and enums are type-checked (shared with check.Rules.StructTables,
	// wired by package workspace), used to resolve `.member` on a
	// constant struct/enum value (scenario 6: `S :: struct { a :: "6.0" }`).
	StructTables map[*types.TypeId]*symtab.Table
}

// New creates an Evaluator sharing t and structTables with the type
// checker.
func New(t *types.Interner, structTables map[*types.TypeId]*symtab.Table) *Evaluator {
	return &Evaluator{Types: t, StructTables: structTables}
}

// value is the evaluator's internal constant representation: exactly the
// forms spec.md §4.8 lists (numeric/bool/string/null).
type value struct {
	typ   *types.TypeId
	i     int64
	f     float64
	b     bool
	s     string
	isPtr bool // true for a null/pointer-valued constant
}

// EvalInt64 implements check.ConstEvaluator: it folds expr to a plain
// int64, for array-size expressions (`[N]T`, spec.md §4.6).
func (e *Evaluator) EvalInt64(expr ast.Expr, scope *symtab.Table) (int64, error) {
	v, err := e.evalValue(expr, scope)
	if err != nil {
		return 0, err
	}

	switch {
	case v.typ != nil && v.typ.IsInteger():
		return v.i, nil
	case v.typ != nil && v.typ.IsFloat():
		return 0, fmt.Errorf("consteval: array size must be an integer constant, got %s", v.typ.String())
	default:
		return v.i, nil
	}
}

// Eval folds expr against scope and writes its value into dst, which
// must be exactly sizeOf(expr.Type()) bytes (spec.md §4.8). Used for
// global initializers and `#run`.
func (e *Evaluator) Eval(expr ast.Expr, scope *symtab.Table, dst []byte) error {
	v, err := e.evalValue(expr, scope)
	if err != nil {
		return err
	}

	return e.encode(v, dst)
}

// Default writes t's zero/default value into dst per spec.md §4.8
// ("Default values"): ints/floats/pointers zeroed, fixed arrays
// recursively default-initialized, structs iterate members (using the
// member's initializer AST if present, else recursing to default).
func (e *Evaluator) Default(t *types.TypeId, dst []byte) error {
	for i := range dst {
		dst[i] = 0
	}

	switch t.Kind {
	case types.Array:
		if t.FixedSize <= 0 {
			return nil // slice/dynamic headers are zero-valued already
		}
		elemSize := t.Inner.Size()
		for i := int64(0); i < t.FixedSize; i++ {
			off := i * elemSize
			if err := e.Default(t.Inner, dst[off:off+elemSize]); err != nil {
				return err
			}
		}
	case types.Struct:
		for _, m := range t.Members {
			ds, _ := m.Decl.(*ast.DeclareSingle)
			span := dst[m.ByteOffset : m.ByteOffset+m.Type.Size()]
			if ds != nil && ds.Value != nil {
				if err := e.Eval(ds.Value, nil, span); err != nil {
					return err
				}
				continue
			}
			if err := e.Default(m.Type, span); err != nil {
				return err
			}
		}
	}

	return nil
}

func (e *Evaluator) encode(v value, dst []byte) error {
	t := v.typ
	if t == nil {
		return fmt.Errorf("consteval: value has no type")
	}

	switch {
	case t.Kind == types.Bool:
		if v.b {
			dst[0] = 1
		}
	case t.IsInteger():
		putInt(dst, uint64(v.i), t.Size())
	case t.Kind == types.Float:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(float32(v.f)))
	case t.Kind == types.Double:
		binary.LittleEndian.PutUint64(dst, math.Float64bits(v.f))
	case t.Kind == types.Pointer:
		if !v.isPtr || v.i != 0 {
			return fmt.Errorf("consteval: only a null pointer constant can be folded")
		}
	case t.Kind == types.String:
		return fmt.Errorf("consteval: string constants are materialized by codegen, not folded to bytes")
	default:
		return fmt.Errorf("consteval: cannot fold a constant of type %s", t.String())
	}

	return nil
}

func putInt(dst []byte, u uint64, size int64) {
	switch size {
	case 1:
		dst[0] = byte(u)
	case 2:
		binary.LittleEndian.PutUint16(dst, uint16(u))
	case 4:
		binary.LittleEndian.PutUint32(dst, uint32(u))
	default:
		binary.LittleEndian.PutUint64(dst, u)
	}
}

func (e *Evaluator) evalValue(node ast.Node, scope *symtab.Table) (value, error) {
	switch n := node.(type) {
	case *ast.Literal:
		return e.evalLiteral(n)
	case *ast.Null:
		return value{typ: n.Type(), isPtr: true}, nil
	case *ast.Identifier:
		return e.evalIdentifier(n, scope)
	case *ast.Cast:
		return e.evalCast(n, scope)
	case *ast.Operator:
		return e.evalOperator(n, scope)
	case *ast.RunDirective:
		body, ok := n.Body.(ast.Expr)
		if !ok {
			return value{}, fmt.Errorf("consteval: #run of a block is not constant-foldable")
		}
		return e.evalValue(body, scope)
	default:
		return value{}, fmt.Errorf("consteval: %T is not a constant expression", node)
	}
}

func (e *Evaluator) evalLiteral(lit *ast.Literal) (value, error) {
	switch lit.Lit.Kind {
	case token.LitBool:
		return value{typ: lit.Type(), b: lit.Lit.Bool}, nil
	case token.LitInt:
		return value{typ: lit.Type(), i: lit.Lit.Int}, nil
	case token.LitFloat:
		return value{typ: lit.Type(), f: lit.Lit.Float}, nil
	case token.LitString:
		return value{typ: lit.Type(), s: lit.Lit.String}, nil
	default:
		return value{}, fmt.Errorf("consteval: unknown literal kind %v", lit.Lit.Kind)
	}
}

func (e *Evaluator) evalIdentifier(id *ast.Identifier, scope *symtab.Table) (value, error) {
	rd, _ := id.Resolved.(*symtab.ResolveDecl)
	if rd == nil {
		return value{}, fmt.Errorf("consteval: identifier %q is not resolved", id.Name)
	}

	ds, ok := rd.Decl.(*ast.DeclareSingle)
	if !ok || !ds.Constant {
		return value{}, fmt.Errorf("consteval: %q is not a compile-time constant", id.Name)
	}

	if ds.Value == nil {
		return value{}, fmt.Errorf("consteval: constant %q has no value", id.Name)
	}

	return e.evalValue(ds.Value, scope)
}

func (e *Evaluator) evalCast(c *ast.Cast, scope *symtab.Table) (value, error) {
	v, err := e.evalValue(c.Value, scope)
	if err != nil {
		return value{}, err
	}

	target := c.Type()
	if target == nil {
		return value{}, fmt.Errorf("consteval: cast has no resolved target type")
	}

	switch {
	case target.IsInteger():
		if v.typ != nil && v.typ.IsFloat() {
			return value{typ: target, i: int64(v.f)}, nil
		}
		return value{typ: target, i: v.i}, nil
	case target.IsFloat():
		if v.typ != nil && v.typ.IsFloat() {
			return value{typ: target, f: v.f}, nil
		}
		return value{typ: target, f: float64(v.i)}, nil
	case target.Kind == types.Pointer:
		return value{typ: target, i: v.i, isPtr: true}, nil
	default:
		return value{}, fmt.Errorf("consteval: cannot fold a cast to %s", target.String())
	}
}

func (e *Evaluator) evalOperator(op *ast.Operator, scope *symtab.Table) (value, error) {
	if op.Left == nil {
		return e.evalUnary(op, scope)
	}

	if op.Op == "." {
		return e.evalMember(op, scope)
	}

	l, err := e.evalValue(op.Left, scope)
	if err != nil {
		return value{}, err
	}
	r, err := e.evalValue(op.Right, scope)
	if err != nil {
		return value{}, err
	}

	return e.applyBinary(op.Op, l, r, op.Type())
}

func (e *Evaluator) evalUnary(op *ast.Operator, scope *symtab.Table) (value, error) {
	r, err := e.evalValue(op.Right, scope)
	if err != nil {
		return value{}, err
	}

	switch op.Op {
	case "-":
		if r.typ != nil && r.typ.IsFloat() {
			return value{typ: op.Type(), f: -r.f}, nil
		}
		return value{typ: op.Type(), i: -r.i}, nil
	case "!":
		return value{typ: op.Type(), b: !r.b}, nil
	default:
		return value{}, fmt.Errorf("consteval: unary %q is not constant-foldable", op.Op)
	}
}

func (e *Evaluator) evalMember(op *ast.Operator, scope *symtab.Table) (value, error) {
	lt, err := e.evalValue(op.Left, scope)
	if err != nil {
		return value{}, err
	}

	id, ok := op.Right.(*ast.Identifier)
	if !ok {
		return value{}, fmt.Errorf("consteval: `.` requires an identifier on the right")
	}

	rd, _ := id.Resolved.(*symtab.ResolveDecl)
	if rd == nil {
		return value{}, fmt.Errorf("consteval: member %q is not resolved", id.Name)
	}

	ds, ok := rd.Decl.(*ast.DeclareSingle)
	if !ok || !ds.Constant || ds.Value == nil {
		return value{}, fmt.Errorf("consteval: member %q is not a compile-time constant", id.Name)
	}

	_ = lt // the left operand is only needed to establish the member table at type-check time

	return e.evalValue(ds.Value, scope)
}

func (e *Evaluator) applyBinary(op string, l, r value, result *types.TypeId) (value, error) {
	isFloat := (l.typ != nil && l.typ.IsFloat()) || (r.typ != nil && r.typ.IsFloat())

	switch op {
	case "and":
		return value{typ: result, b: l.b && r.b}, nil
	case "or":
		return value{typ: result, b: l.b || r.b}, nil
	case "==", "!=", "<", ">", "<=", ">=":
		return e.applyCompare(op, l, r, result, isFloat)
	case "+", "-", "*", "/", "%":
		return e.applyArith(op, l, r, result, isFloat)
	default:
		return value{}, fmt.Errorf("consteval: operator %q is not constant-foldable", op)
	}
}

func (e *Evaluator) applyArith(op string, l, r value, result *types.TypeId, isFloat bool) (value, error) {
	if isFloat {
		lf, rf := floatOf(l), floatOf(r)
		var f float64
		switch op {
		case "+":
			f = lf + rf
		case "-":
			f = lf - rf
		case "*":
			f = lf * rf
		case "/":
			f = lf / rf
		default:
			return value{}, fmt.Errorf("consteval: %% requires integer operands")
		}
		return value{typ: result, f: f}, nil
	}

	var i int64
	switch op {
	case "+":
		i = l.i + r.i
	case "-":
		i = l.i - r.i
	case "*":
		i = l.i * r.i
	case "/":
		if r.i == 0 {
			return value{}, fmt.Errorf("consteval: division by zero")
		}
		i = l.i / r.i
	case "%":
		if r.i == 0 {
			return value{}, fmt.Errorf("consteval: modulo by zero")
		}
		i = l.i % r.i
	}

	return value{typ: result, i: i}, nil
}

func (e *Evaluator) applyCompare(op string, l, r value, result *types.TypeId, isFloat bool) (value, error) {
	var b bool
	if isFloat {
		lf, rf := floatOf(l), floatOf(r)
		switch op {
		case "==":
			b = lf == rf
		case "!=":
			b = lf != rf
		case "<":
			b = lf < rf
		case ">":
			b = lf > rf
		case "<=":
			b = lf <= rf
		case ">=":
			b = lf >= rf
		}
	} else {
		switch op {
		case "==":
			b = l.i == r.i
		case "!=":
			b = l.i != r.i
		case "<":
			b = l.i < r.i
		case ">":
			b = l.i > r.i
		case "<=":
			b = l.i <= r.i
		case ">=":
			b = l.i >= r.i
		}
	}

	return value{typ: result, b: b}, nil
}

func floatOf(v value) float64 {
	if v.typ != nil && v.typ.IsFloat() {
		return v.f
	}
	return float64(v.i)
}
