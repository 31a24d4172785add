// Copyright 2021 Torben Schinke
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package token

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrDetail is a single location+message pair. A PosError with more than
// one detail renders as a sequence of such messages (duplicate symbol,
// ambiguous overload, dependency cycle).
type ErrDetail struct {
	Node    Node
	Message string
}

func NewErrDetail(node Node, msg string) ErrDetail {
	return ErrDetail{Node: node, Message: msg}
}

// PosError is a location-tagged, fatal compiler error. Lexical and parse
// errors are *PosError; errors from the type checker, codegen, and
// workspace are plain errors without a location (Explain renders both).
type PosError struct {
	Details []ErrDetail
	Cause   error
	Hint    string
}

// NewPosError creates a new PosError with the given root cause and optional
// additional details.
func NewPosError(node Node, msg string, details ...ErrDetail) *PosError {
	tmp := append([]ErrDetail{}, ErrDetail{Node: node, Message: msg})
	tmp = append(tmp, details...)

	return &PosError{Details: tmp}
}

func (p *PosError) SetCause(err error) *PosError {
	p.Cause = err
	return p
}

func (p *PosError) SetHint(str string) *PosError {
	p.Hint = str
	return p
}

func (p *PosError) Unwrap() error {
	return p.Cause
}

func (p *PosError) firstDetail() ErrDetail {
	if len(p.Details) > 0 {
		return p.Details[0]
	}

	return ErrDetail{}
}

func (p *PosError) Error() string {
	if p.Cause == nil {
		return p.firstDetail().Message
	}

	return p.firstDetail().Message + ": " + p.Cause.Error()
}

// src loads the source text for fname, relative to the current directory
// if it cannot be opened directly. Returns "" if the file can't be read,
// in which case Explain falls back to printing just the position.
func src(fname string) string {
	buf, err := os.ReadFile(fname)
	if err != nil {
		wd, werr := os.Getwd()
		if werr != nil {
			return ""
		}

		buf, err = os.ReadFile(wd + string(os.PathSeparator) + fname)
		if err != nil {
			return ""
		}
	}

	return string(buf)
}

func docLines(n Node) []string {
	if n == nil {
		return nil
	}

	return strings.Split(src(n.Begin().File), "\n")
}

func posLine(lines []string, pos Pos) string {
	no := pos.Line - 1
	if no > len(lines) {
		no = len(lines) - 1
	}

	ltext := ""
	if no < len(lines) && no >= 0 {
		ltext = lines[no]
	}

	return ltext
}

// Explain returns a multi-line text suited for printing to a console: a
// "file:line:col" header, the source line, and a "^~~~" caret underline of
// the offending range, for every detail in order.
func (p PosError) Explain() string {
	indent := 0
	for _, detail := range p.Details {
		if detail.Node == nil {
			continue
		}
		if l := len(strconv.Itoa(detail.Node.Begin().Line)); l > indent {
			indent = l
		}
	}

	sb := &strings.Builder{}

	for i, detail := range p.Details {
		if detail.Node == nil {
			sb.WriteString(detail.Message)
			sb.WriteString("\n")
			continue
		}

		source := docLines(detail.Node)
		line := posLine(source, detail.Node.Begin())

		if i == 0 || detail.Node.Begin().File != p.Details[i-1].Node.Begin().File {
			sb.WriteString(detail.Node.Begin().String())
			sb.WriteString("\n")
		}

		sb.WriteString(fmt.Sprintf("%"+strconv.Itoa(indent)+"s |\n", ""))
		sb.WriteString(fmt.Sprintf("%"+strconv.Itoa(indent)+"d |", detail.Node.Begin().Line))
		sb.WriteString(line)
		sb.WriteString("\n")

		sb.WriteString(fmt.Sprintf("%"+strconv.Itoa(indent)+"s |", ""))

		width := detail.Node.End().Col - detail.Node.Begin().Col
		sb.WriteString(fmt.Sprintf("%"+strconv.Itoa(detail.Node.Begin().Col-1)+"s", ""))
		if width <= 1 {
			sb.WriteString("^~~~ ")
		} else {
			for j := 0; j < width; j++ {
				sb.WriteRune('^')
			}
			sb.WriteRune(' ')
		}

		sb.WriteString(detail.Message)
		sb.WriteString("\n")

		if i < len(p.Details)-1 {
			sb.WriteString(strings.Repeat(" ", indent))
			sb.WriteString("...\n")
		}
	}

	if p.Hint != "" {
		sb.WriteString(fmt.Sprintf("%"+strconv.Itoa(indent)+"s = hint: %s\n", "", p.Hint))
	}

	return sb.String()
}

// Explain renders any error for console output: *PosError gets the full
// caret-highlighted treatment, everything else falls back to err.Error().
func Explain(err error) string {
	var posErr *PosError
	if errors.As(err, &posErr) {
		sb := &strings.Builder{}
		sb.WriteString("error: ")
		sb.WriteString(err.Error())
		sb.WriteString("\n")
		sb.WriteString(posErr.Explain())

		return sb.String()
	}

	return err.Error()
}
