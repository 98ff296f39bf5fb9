/*
Copyright (C) 2026  the cph-lang contributors

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package vm

import (
	"fmt"
	"strings"
)

// LexError is raised while tokenizing source text.
type LexError struct {
	Loc SourceLocation
	Msg string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at %s: %s", e.Loc, e.Msg)
}

// ParseError is raised while building the AST from a token stream.
type ParseError struct {
	Loc SourceLocation
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s: %s", e.Loc, e.Msg)
}

// SemanticError is raised by the static-analysis passes that run once
// over the AST before evaluation starts (duplicate bindings today).
type SemanticError struct {
	Loc SourceLocation
	Msg string
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("semantic error at %s: %s", e.Loc, e.Msg)
}

// RuntimeError is raised by step() while evaluating the AST. Frames
// holds the source location of every active call frame at the point
// of failure, innermost last.
type RuntimeError struct {
	Loc    SourceLocation
	Msg    string
	Frames []SourceLocation
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "runtime error at %s: %s", e.Loc, e.Msg)
	for _, fl := range e.Frames {
		fmt.Fprintf(&b, "\n  calling function body at %s", fl)
	}
	return b.String()
}

func lexErrorf(loc SourceLocation, format string, args ...interface{}) {
	panic(&LexError{Loc: loc, Msg: fmt.Sprintf(format, args...)})
}

func parseErrorf(loc SourceLocation, format string, args ...interface{}) {
	panic(&ParseError{Loc: loc, Msg: fmt.Sprintf(format, args...)})
}

func semanticErrorf(loc SourceLocation, format string, args ...interface{}) {
	panic(&SemanticError{Loc: loc, Msg: fmt.Sprintf(format, args...)})
}
