// Package workspace owns everything that lives for the lifetime of one
// compilation: the shared type interner, the canonical-string arena, the
// scheduler's symbol tables, and module discovery via `#import`/
// `#foreign_library` (spec.md §6, SPEC_FULL.md §A.3: "resolved relative
// to the invoking file's directory, recorded on the Workspace").
package workspace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golangee/rook/ast"
	"github.com/golangee/rook/check"
	"github.com/golangee/rook/codegen"
	"github.com/golangee/rook/consteval"
	"github.com/golangee/rook/internal/arena"
	"github.com/golangee/rook/lexer"
	"github.com/golangee/rook/parser"
	"github.com/golangee/rook/symtab"
	"github.com/golangee/rook/token"
	"github.com/golangee/rook/types"
)

// Workspace is the compile-time state shared by every module pulled in
// through `#import`, mirroring the original's SWorkspace: one arena, one
// type interner, one top-level symbol table.
type Workspace struct {
	Types        *types.Interner
	Strings      *arena.Interner
	StructTables map[*types.TypeId]*symtab.Table
	Rules        *check.Rules
	Eval         *consteval.Evaluator
	Root         *symtab.Table
	StringType   *types.TypeId

	// ForeignLibraries collects every `#foreign_library` name seen across
	// the module graph, deduplicated through Strings, for the driver to
	// pass to the linker (SPEC_FULL.md §E).
	ForeignLibraries []string

	files   map[string]*ast.File // canonical path -> parsed file
	order   []string             // discovery order, for deterministic emission
	visited map[string]bool

	// Verbose enables the scheduler suspend/resume trace SPEC_FULL.md
	// §A.2 describes for the `-v` debug flag.
	Verbose bool
}

// New creates an empty Workspace with the builtin `string` type
// bootstrapped (types.Interner.NewStringType + Rules.SetStringType +
// codegen's DefineBuiltinBody, run once the first Emitter exists).
func New() *Workspace {
	a := arena.New()
	strInterner := arena.NewInterner(a)
	interner := types.NewInterner()
	structTables := make(map[*types.TypeId]*symtab.Table)

	stringType := interner.NewStringType(interner.Builtin(types.U8))

	rules := &check.Rules{Types: interner, StructTables: structTables}
	rules.SetStringType(stringType)

	eval := consteval.New(interner, structTables)
	rules.Eval = eval

	// The builtin type names live in a table above Root, so a user
	// declaration may shadow one without a duplicate-symbol error.
	builtins := symtab.New(symtab.Scope, nil)
	for name, k := range map[string]types.Kind{
		"void": types.Void, "bool": types.Bool, "int": types.S32, "char": types.U8,
		"s8": types.S8, "s16": types.S16, "s32": types.S32, "s64": types.S64,
		"u8": types.U8, "u16": types.U16, "u32": types.U32, "u64": types.U64,
		"float": types.Float, "double": types.Double,
	} {
		ds := &ast.DeclareSingle{Name: name, Constant: true}
		ds.SetType(interner.TidWrap(interner.Builtin(k)))
		builtins.AddResolveDeclaration(ds)
	}

	return &Workspace{
		Types:        interner,
		Strings:      strInterner,
		StructTables: structTables,
		Rules:        rules,
		Eval:         eval,
		Root:         symtab.New(symtab.TopLevel, builtins),
		StringType:   stringType,
		files:        make(map[string]*ast.File),
		visited:      make(map[string]bool),
	}
}

// Load parses path and every file it transitively `#import`s, in
// discovery order (breadth-first over each file's own import list,
// matching the original's single-pass module-queue loop).
func (w *Workspace) Load(path string) error {
	queue := []string{path}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		canonical, err := w.canonicalPath(cur)
		if err != nil {
			return err
		}
		if w.visited[canonical] {
			continue
		}
		w.visited[canonical] = true

		file, err := w.parseFile(canonical)
		if err != nil {
			return err
		}

		w.files[canonical] = file
		w.order = append(w.order, canonical)

		dir := filepath.Dir(canonical)
		for _, stmt := range file.Decls {
			switch d := stmt.(type) {
			case *ast.ImportDirective:
				queue = append(queue, filepath.Join(dir, d.Name))
			case *ast.ForeignLibraryDirective:
				w.ForeignLibraries = append(w.ForeignLibraries, w.Strings.Intern(d.Name))
			}
		}
	}

	return nil
}

func (w *Workspace) canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("workspace: %w", err)
	}

	return w.Strings.Intern(abs), nil
}

func (w *Workspace) parseFile(path string) (*ast.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("workspace: opening %s: %w", path, err)
	}
	defer f.Close()

	file, err := w.parseReader(path, f)
	if err != nil {
		return nil, fmt.Errorf("workspace: parsing %s: %w", path, err)
	}

	return file, nil
}

// LoadSource registers an in-memory module under a synthetic path,
// skipping file-system discovery; used by driver/selftest to run a
// bare snippet through the full pipeline without a backing .rook file.
func (w *Workspace) LoadSource(name, src string) error {
	canonical := w.Strings.Intern(name)
	if w.visited[canonical] {
		return fmt.Errorf("workspace: module %q already loaded", name)
	}
	w.visited[canonical] = true

	file, err := w.parseReader(canonical, strings.NewReader(src))
	if err != nil {
		return fmt.Errorf("workspace: parsing %s: %w", name, err)
	}

	w.files[canonical] = file
	w.order = append(w.order, canonical)

	for _, stmt := range file.Decls {
		if d, ok := stmt.(*ast.ForeignLibraryDirective); ok {
			w.ForeignLibraries = append(w.ForeignLibraries, w.Strings.Intern(d.Name))
		}
	}

	return nil
}

func (w *Workspace) parseReader(path string, r io.Reader) (*ast.File, error) {
	l := lexer.New(path, r)
	p := parser.New(path, l)

	return p.ParseFile()
}

// Check flattens and type-checks every loaded module against the shared
// top-level table, in discovery order (spec.md §4.5/§5).
func (w *Workspace) Check() error {
	var all []*check.Decl

	for _, path := range w.order {
		decls, err := check.Flatten(w.files[path], w.Root)
		if err != nil {
			return err
		}
		all = append(all, decls...)
	}

	checker := check.NewChecker(w.Rules, all)

	return checker.Run(all)
}

// Compile runs Load, Check, and Emit over a fresh entry file, returning
// the emitter so the caller (cmd/rookc) can Verify/WriteBitcode/Dump it.
func (w *Workspace) Compile(entryPath, moduleName string) (*codegen.Emitter, error) {
	if err := w.Load(entryPath); err != nil {
		return nil, err
	}

	if err := w.Check(); err != nil {
		return nil, err
	}

	return w.Emit(moduleName)
}

// Emit runs the LLVM emitter over every already-loaded-and-checked
// module in discovery order (spec.md §5: "within emission the order
// follows source order within each module"). Callers that already ran
// Load/LoadSource and Check themselves (driver/selftest inspecting a
// snippet's codegen shape) call this directly instead of Compile, since
// Compile's own Load would re-resolve an in-memory module's synthetic
// path through the filesystem and fail to recognize it as already
// loaded.
func (w *Workspace) Emit(moduleName string) (*codegen.Emitter, error) {
	e := codegen.New(moduleName, w.Types, w.StructTables, w.Eval, w.Strings)

	if err := e.DefineBuiltinBody(w.StringType); err != nil {
		return nil, err
	}

	for _, path := range w.order {
		if err := e.EmitFile(w.files[path]); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Lookup returns the top-level declaration named name, for callers
// (driver/selftest) inspecting a checked snippet's resulting types.
func (w *Workspace) Lookup(name string) (*ast.DeclareSingle, bool) {
	found := w.Root.Lookup(name, true)
	if len(found) == 0 {
		return nil, false
	}

	ds, ok := found[0].Decl.(*ast.DeclareSingle)
	return ds, ok
}

// Explain is a thin wrapper kept for callers that want token.Explain
// without importing package token directly.
func Explain(err error) string { return token.Explain(err) }
