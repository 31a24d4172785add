// Package ast defines the tagged-sum AST produced by package parser and
// consumed by package check, consteval, and codegen. Every node embeds
// token.Range for its source location and carries a *types.TypeId that
// the type checker fills in (spec.md §3: "Every node has a location and
// a TypeId, set during type-check").
package ast

import (
	"github.com/golangee/rook/token"
	"github.com/golangee/rook/types"
)

// Node is implemented by every AST node.
type Node interface {
	node()
	Pos() token.Range
	Type() *types.TypeId
	SetType(*types.TypeId)
}

// base is embedded by every concrete node; it supplies the common
// location + resolved-type bookkeeping so individual node types don't
// repeat it.
type base struct {
	token.Range
	typ *types.TypeId
}

func (b *base) node() {}

func (b *base) Pos() token.Range { return b.Range }

func (b *base) Type() *types.TypeId { return b.typ }

func (b *base) SetType(t *types.TypeId) { b.typ = t }

// Expr and Stmt are both plain aliases for Node: this language's grammar
// lets most expressions (calls, assignments, ...) stand alone as
// statements, so a separate marker interface would just force every
// expression node to implement both anyway. The names stay distinct in
// signatures to document intent (an *ast.If's Cond is an Expr, its Body
// is a Stmt) even though the compiler doesn't enforce the difference.
type Expr = Node
type Stmt = Node

// --- Literals & trivial leaves ---------------------------------------

// Literal is a literal constant (bool, int, float, or string).
type Literal struct {
	base
	Lit token.Literal
}

// Null is the `null` literal.
type Null struct{ base }

// UninitializedValue is the `---` uninitialized-value marker.
type UninitializedValue struct{ base }

// Identifier is a bare name reference, resolved during type-check.
type Identifier struct {
	base
	Name string

	// Resolved is filled in by the type checker: the declaration (and
	// using-path) this identifier refers to. Stored as interface{} to
	// avoid an ast<->symtab import cycle; package check/codegen type-
	// assert it to *symtab.ResolveDecl.
	Resolved interface{}
}

// --- Statements --------------------------------------------------------

// Block is `{ stmts... }`, introducing a new lexical scope.
type Block struct {
	base
	Stmts []Stmt

	// Scope is the symbol table introduced by this block, filled in
	// during flattening. interface{} to avoid an import cycle; it is a
	// *symtab.Table.
	Scope interface{}
}

// EmptyStatement is a bare terminator with no content (e.g. `;;`).
type EmptyStatement struct{ base }

// LoopControlKind distinguishes continue vs break.
type LoopControlKind int

const (
	Continue LoopControlKind = iota
	Break
)

// LoopControl is `continue` or `break`.
type LoopControl struct {
	base
	Kind LoopControlKind
}

// Using is `using expr`, injecting expr's struct members into scope.
type Using struct {
	base
	Target Expr
}

// Defer is `defer stmt`, queued for reverse-order emission at scope exit.
type Defer struct {
	base
	Stmt Stmt
}

// Inline is `inline expr`, a hint that the callee should be emitted
// inline; type is the inner expression's type.
type Inline struct {
	base
	Target Expr
}

// PushContext is `push_context ident block`.
type PushContext struct {
	base
	ContextName string
	Body        *Block
	Scope       interface{}
}

// If is `if cond [then] body [else elseBody]`.
type If struct {
	base
	Cond     Expr
	Body     Stmt
	ElseBody Stmt
}

// While is `while cond body`.
type While struct {
	base
	Cond Expr
	Body Stmt
}

// For is `for [*]Name : range body` (see spec.md §9: iterator typing is
// an explicit open question, handled conservatively by package check).
type For struct {
	base
	IterName  string
	IterIsPtr bool
	Iterable  Expr
	Body      Stmt
	Scope     interface{}
}

// Return is `return expr[, expr...]`.
type Return struct {
	base
	Values []Expr
}

// Delete is `delete expr`.
type Delete struct {
	base
	Target Expr
}

// Remove is `remove expr`.
type Remove struct {
	base
	Target Expr
}

// --- Operators & calls --------------------------------------------------

// Operator covers unary (Left == nil), binary, and compound-assignment
// forms: `{op, left?, right}` per spec.md §3.
type Operator struct {
	base
	Op    string
	Left  Expr // nil for prefix-unary
	Right Expr
}

// CastKind distinguishes an explicit `cast(T) x`, an `xx`/auto-cast, and
// an implicit cast synthesized by the type checker (spec.md scenario 5).
type CastKind int

const (
	CastExplicit CastKind = iota
	CastAuto
	CastImplicit
)

// Cast is `cast(T) expr` / `xx expr` / a synthesized implicit cast.
type Cast struct {
	base
	Kind   CastKind
	Target Expr // type expression; nil for CastAuto until inferred
	Value  Expr
}

// New is `new T`.
type New struct {
	base
	TypeExpr Expr
}

// ArrayIndex is `expr[index]`.
type ArrayIndex struct {
	base
	Target Expr
	Index  Expr
}

// Call is `callee(args...)`.
type Call struct {
	base
	Callee Expr
	Args   []Expr
}

// --- Declarations --------------------------------------------------------

// DeclareSingle is a single-name declaration: `name : T = v`, `name :: v`,
// `name := v`, possibly `using`-flagged.
type DeclareSingle struct {
	base
	Name     string
	TypeExpr Expr // nil if inferred
	Value    Expr // nil if no initializer
	Constant bool
	Using    bool
}

// Type overrides base.Type to fall through to the initializer's type
// when this declaration's own type hasn't been assigned yet. A
// self-referential struct/enum/procedure (`Node :: struct { next: *Node
// }`, a recursive procedure calling itself) gets its value's identity
// assigned before its members/body are checked, but the declaration
// node's own step — which would normally finalize d.typ — only runs
// after that; falling through lets a reference resolved mid-body see
// the identity immediately instead of suspending on itself.
func (d *DeclareSingle) Type() *types.TypeId {
	if d.typ != nil {
		return d.typ
	}
	if d.Value != nil {
		return d.Value.Type()
	}
	return nil
}

// DeclareMulti is `a, b : T = v1, v2` / `a, b := v1, v2`.
type DeclareMulti struct {
	base
	Names    []string
	TypeExpr Expr
	Values   []Expr
	Constant bool
}

// AssignMulti is `a, b = v1, v2` (no declaration, just assignment).
type AssignMulti struct {
	base
	Targets []Expr
	Values  []Expr
}

// --- Type-declaring constructs --------------------------------------------

// Struct is `Name :: struct { decls... }`.
type Struct struct {
	base
	Name  string
	Decls []Stmt
	Scope interface{}
}

// Enum is `Name :: enum [backing] { decls... }`.
type Enum struct {
	base
	Name    string
	Backing Expr // nil => default s64
	Decls   []Stmt
	Scope   interface{}
}

// Procedure is `Name :: [inline] (args) [-> rets] { body }` or a
// `#foreign` declaration.
type Procedure struct {
	base
	Name         string
	Args         []*DeclareSingle
	Rets         []Expr
	Inline       bool
	Foreign      bool
	ForeignName  string
	Polymorphic  bool
	Body         *Block // nil if foreign
	OwningModule string
	Scope        interface{}

	// Specializations caches polymorphic clones, keyed by a stable
	// string built from the bound-variable tuple (see package check).
	Specializations map[string]*Procedure
}

// --- Type expressions ------------------------------------------------

// TypePointer is `*T` or `*soa T`.
type TypePointer struct {
	base
	SOA   bool
	Inner Expr
}

// TypeArray is `[N]T`, `[]T`, or `[..]T`.
type TypeArray struct {
	base
	SOA     bool
	Dynamic bool
	Size    Expr // nil => slice
	Inner   Expr
}

// TypeProcedure is a bare procedure type used in a type position, e.g. an
// argument declared `f : (int) -> int`.
type TypeProcedure struct {
	base
	Args []Expr
	Rets []Expr
}

// TypePolymorphic is `$T`, a polymorphic type variable.
type TypePolymorphic struct {
	base
	Name string
}

// TypeVararg is the C-vararg marker `..` in a #foreign parameter list.
type TypeVararg struct{ base }

// --- Directives --------------------------------------------------------

// ImportDirective is `#import "name"`.
type ImportDirective struct {
	base
	Name string
}

// RunDirective is `#run expr` or `#run block`.
type RunDirective struct {
	base
	Body Node // Expr or *Block
}

// ForeignLibraryDirective is `#foreign_library "name"`.
type ForeignLibraryDirective struct {
	base
	Name string
}

// File is the root node of one parsed module/source file.
type File struct {
	base
	Path  string
	Decls []Stmt
	Scope interface{}
}
