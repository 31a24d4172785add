package check

import (
	"fmt"

	"github.com/golangee/rook/ast"
)

// Checker runs the flatten-and-resume scheduler over a set of
// declarations, in workspace order, per spec.md §4.5 "Run".
type Checker struct {
	Rules     *Rules
	index     map[*ast.DeclareSingle]*Decl
	waitStack []*Decl
}

// NewChecker builds a Checker bound to rules (which in turn carries the
// interner, struct-table lookup, and constant evaluator it needs) and an
// index of every scheduled top-level declaration, used to
// turn a rule's "suspend on this declaration" result into the *Decl the
// scheduler actually swaps to.
func NewChecker(rules *Rules, all []*Decl) *Checker {
	idx := make(map[*ast.DeclareSingle]*Decl, len(all))
	for _, d := range all {
		idx[d.Stmt] = d
	}

	return &Checker{Rules: rules, index: idx}
}

// Run advances every declaration in decls to completion, suspending and
// resuming across declarations as described in spec.md §4.5/§5. It
// returns the first unrecoverable error (including a cycle error).
func (c *Checker) Run(decls []*Decl) error {
	for _, d := range decls {
		if d.Done {
			continue
		}

		if err := c.advance(d); err != nil {
			return err
		}
	}

	return nil
}

// advance steps d forward until it completes or needs to suspend on
// another declaration, in which case that declaration is advanced first
// (recursively, through the explicit waitStack, with cycle detection).
func (c *Checker) advance(d *Decl) error {
	if d.Done {
		return nil
	}

	for _, waiting := range c.waitStack {
		if waiting == d {
			return c.cycleError(d)
		}
	}

	c.waitStack = append(c.waitStack, d)
	defer func() { c.waitStack = c.waitStack[:len(c.waitStack)-1] }()

	for !d.isDone() {
		step := d.Trec[d.ITrec]

		suspendOn, err := c.Rules.CheckStep(step.Node, step.Scope)
		if err != nil {
			return err
		}

		if suspendOn != nil {
			other := c.index[suspendOn]
			if other == nil {
				return fmt.Errorf("%s: reference to an unresolved local declaration", suspendOn.Name)
			}

			if other == d {
				return c.cycleError(d)
			}

			if err := c.advance(other); err != nil {
				return err
			}

			// Don't advance d.ITrec: retry the same step now that
			// `other` is resolved.
			continue
		}

		d.ITrec++
	}

	d.Done = true

	return nil
}

func (c *Checker) cycleError(d *Decl) error {
	names := make([]string, 0, len(c.waitStack)+1)
	for _, w := range c.waitStack {
		names = append(names, w.Stmt.Name)
	}
	names = append(names, d.Stmt.Name)

	return fmt.Errorf("declaration-resolution cycle: %v", names)
}
