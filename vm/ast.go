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

// Node is implemented by every AST node. FreeVars and Tail are filled
// in by the analysis passes in analysis.go, after parsing and before
// the first step(); they are read-only during evaluation.
type Node interface {
	Loc() SourceLocation
	FreeVars() map[string]struct{}
	setFreeVars(map[string]struct{})
	Tail() bool
	setTail(bool)
	Clone() Node
	String() string
}

type exprBase struct {
	loc      SourceLocation
	freeVars map[string]struct{}
	tail     bool
}

func (b *exprBase) Loc() SourceLocation             { return b.loc }
func (b *exprBase) FreeVars() map[string]struct{}   { return b.freeVars }
func (b *exprBase) setFreeVars(m map[string]struct{}) { b.freeVars = m }
func (b *exprBase) Tail() bool                      { return b.tail }
func (b *exprBase) setTail(t bool)                   { b.tail = t }

// IntegerNode is an integer literal. HeapLoc is filled in during
// literal preallocation (state.go) and never changes afterward.
type IntegerNode struct {
	exprBase
	Text    string
	HeapLoc Location
}

func (n *IntegerNode) Clone() Node { c := *n; return &c }
func (n *IntegerNode) String() string { return n.Text }

// StringNode is a string literal, Text still in quoted/escaped form.
type StringNode struct {
	exprBase
	Text    string
	HeapLoc Location
}

func (n *StringNode) Clone() Node { c := *n; return &c }
func (n *StringNode) String() string { return n.Text }

// VariableNode is a bare identifier reference.
type VariableNode struct {
	exprBase
	Name string
}

func (n *VariableNode) Clone() Node { c := *n; return &c }
func (n *VariableNode) String() string { return n.Name }

// LambdaNode is `lambda ( params* ) body`.
type LambdaNode struct {
	exprBase
	Params []*VariableNode
	Body   Node
}

func (n *LambdaNode) Clone() Node {
	c := *n
	c.Params = make([]*VariableNode, len(n.Params))
	for i, p := range n.Params {
		c.Params[i] = p.Clone().(*VariableNode)
	}
	c.Body = n.Body.Clone()
	return &c
}

func (n *LambdaNode) String() string {
	names := make([]string, len(n.Params))
	for i, p := range n.Params {
		names[i] = p.Name
	}
	return fmt.Sprintf("(lambda (%s) %s)", strings.Join(names, " "), n.Body.String())
}

// LetrecNode is `letrec ( (var expr)* ) body`.
type LetrecNode struct {
	exprBase
	Names []*VariableNode
	Exprs []Node
	Body  Node
}

func (n *LetrecNode) Clone() Node {
	c := *n
	c.Names = make([]*VariableNode, len(n.Names))
	for i, v := range n.Names {
		c.Names[i] = v.Clone().(*VariableNode)
	}
	c.Exprs = make([]Node, len(n.Exprs))
	for i, e := range n.Exprs {
		c.Exprs[i] = e.Clone()
	}
	c.Body = n.Body.Clone()
	return &c
}

func (n *LetrecNode) String() string {
	var b strings.Builder
	b.WriteString("(letrec (")
	for i, v := range n.Names {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%s %s", v.Name, n.Exprs[i].String())
	}
	b.WriteString(") ")
	b.WriteString(n.Body.String())
	b.WriteString(")")
	return b.String()
}

// IfNode is `if cond branch1 branch2`.
type IfNode struct {
	exprBase
	Cond, Branch1, Branch2 Node
}

func (n *IfNode) Clone() Node {
	c := *n
	c.Cond = n.Cond.Clone()
	c.Branch1 = n.Branch1.Clone()
	c.Branch2 = n.Branch2.Clone()
	return &c
}

func (n *IfNode) String() string {
	return fmt.Sprintf("(if %s %s %s)", n.Cond, n.Branch1, n.Branch2)
}

// SequenceNode is `{ expr+ }`.
type SequenceNode struct {
	exprBase
	Exprs []Node
}

func (n *SequenceNode) Clone() Node {
	c := *n
	c.Exprs = make([]Node, len(n.Exprs))
	for i, e := range n.Exprs {
		c.Exprs[i] = e.Clone()
	}
	return &c
}

func (n *SequenceNode) String() string {
	parts := make([]string, len(n.Exprs))
	for i, e := range n.Exprs {
		parts[i] = e.String()
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// IntrinsicCallNode is `( .name expr* )`.
type IntrinsicCallNode struct {
	exprBase
	Name string
	Args []Node
}

func (n *IntrinsicCallNode) Clone() Node {
	c := *n
	c.Args = make([]Node, len(n.Args))
	for i, a := range n.Args {
		c.Args[i] = a.Clone()
	}
	return &c
}

func (n *IntrinsicCallNode) String() string {
	parts := make([]string, len(n.Args))
	for i, a := range n.Args {
		parts[i] = a.String()
	}
	if len(parts) == 0 {
		return fmt.Sprintf("(%s)", n.Name)
	}
	return fmt.Sprintf("(%s %s)", n.Name, strings.Join(parts, " "))
}

// ExprCallNode is `( callee expr* )`, an ordinary function call.
type ExprCallNode struct {
	exprBase
	Callee Node
	Args   []Node
}

func (n *ExprCallNode) Clone() Node {
	c := *n
	c.Callee = n.Callee.Clone()
	c.Args = make([]Node, len(n.Args))
	for i, a := range n.Args {
		c.Args[i] = a.Clone()
	}
	return &c
}

func (n *ExprCallNode) String() string {
	parts := make([]string, len(n.Args))
	for i, a := range n.Args {
		parts[i] = a.String()
	}
	if len(parts) == 0 {
		return fmt.Sprintf("(%s)", n.Callee)
	}
	return fmt.Sprintf("(%s %s)", n.Callee, strings.Join(parts, " "))
}

// AtNode is `@ var expr`, extracting a binding out of a closure's
// captured environment without copying the bound value.
type AtNode struct {
	exprBase
	Var  *VariableNode
	Expr Node
}

func (n *AtNode) Clone() Node {
	c := *n
	c.Var = n.Var.Clone().(*VariableNode)
	c.Expr = n.Expr.Clone()
	return &c
}

func (n *AtNode) String() string {
	return fmt.Sprintf("(@ %s %s)", n.Var.Name, n.Expr.String())
}
