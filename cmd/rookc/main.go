// rookc — single-pass-to-LLVM compiler front end.
//
// Usage:
//
//	rookc build <file.rook> [-o out]     Compile to bitcode and link with clang
//	rookc check <file.rook>              Parse and type-check only
//	rookc -u, --run-unit-tests           Run the embedded selftest corpus
//	rookc version                        Show version
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/golangee/rook/driver/selftest"
	"github.com/golangee/rook/workspace"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "build":
		cmdBuild(os.Args[2:])
	case "check":
		cmdCheck(os.Args[2:])
	case "-u", "--run-unit-tests":
		cmdSelftest()
	case "version", "--version":
		fmt.Printf("rookc v%s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "✗ unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`rookc — single-pass-to-LLVM compiler front end

Usage:
  rookc build <file.rook> [-o out]   Compile to bitcode, then link with clang
  rookc check <file.rook>            Parse and type-check only, report diagnostics
  rookc -u, --run-unit-tests         Run the embedded selftest corpus
  rookc version                      Show version
  rookc help                         Show this message`)
}

// cmdCheck loads and type-checks a single module (and everything it
// transitively #imports), reporting diagnostics via token.Explain
// (spec.md §6: "check-only" mode does no codegen).
func cmdCheck(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "✗ check requires a .rook file path")
		os.Exit(1)
	}

	path := args[0]
	w := workspace.New()

	if err := w.Load(path); err != nil {
		fmt.Fprintf(os.Stderr, "✗ %s\n  %s\n", path, workspace.Explain(err))
		os.Exit(1)
	}

	if err := w.Check(); err != nil {
		fmt.Fprintf(os.Stderr, "✗ %s\n  %s\n", path, workspace.Explain(err))
		os.Exit(1)
	}

	fmt.Printf("✓ %s — type-checked cleanly\n", path)
}

// cmdBuild runs the full pipeline (spec.md §6), then shells to clang to
// turn the emitted bitcode into a linked executable, passing through
// every #foreign_library name discovered across the module graph.
func cmdBuild(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "✗ build requires a .rook file path")
		os.Exit(1)
	}

	path := args[0]
	out := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	for i := 1; i < len(args); i++ {
		if args[i] == "-o" && i+1 < len(args) {
			out = args[i+1]
			i++
		}
	}

	w := workspace.New()

	e, err := w.Compile(path, out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %s\n  %s\n", path, workspace.Explain(err))
		os.Exit(1)
	}
	defer e.Dispose()

	dumpPath := out + ".ll"
	if err := e.Verify(dumpPath); err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}

	bcPath := out + ".bc"
	if err := e.WriteBitcode(bcPath); err != nil {
		fmt.Fprintf(os.Stderr, "✗ writing bitcode: %v\n", err)
		os.Exit(1)
	}

	if err := link(bcPath, out, w.ForeignLibraries); err != nil {
		fmt.Fprintf(os.Stderr, "✗ link: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ wrote %s\n", out)
}

// link shells to clang to turn bitcode into a native executable, one
// -l flag per #foreign_library discovered while loading the module
// graph (SPEC_FULL.md §E).
func link(bcPath, out string, libs []string) error {
	args := []string{bcPath, "-o", out}
	for _, lib := range libs {
		args = append(args, "-l"+lib)
	}

	cmd := exec.Command("clang", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}

// cmdSelftest runs the embedded scenario corpus (spec.md §8) and
// reports one line per scenario, exiting non-zero on any failure.
func cmdSelftest() {
	results := selftest.Run()

	failed := 0
	for _, r := range results {
		if r.Passed() {
			fmt.Printf("✓ %s\n", r.Name)
			continue
		}
		failed++
		fmt.Printf("✗ %s\n  %v\n", r.Name, r.Err)
	}

	fmt.Printf("\n%d/%d passed\n", len(results)-failed, len(results))

	if failed > 0 {
		os.Exit(1)
	}
}
