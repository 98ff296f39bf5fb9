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

// checkDuplicates walks the whole tree top-down and rejects Lambda
// parameter lists and Letrec binding lists that repeat a name — both
// would make lookup() ambiguous in a way that isn't shadowing.
func checkDuplicates(n Node) {
	switch e := n.(type) {
	case *IntegerNode, *StringNode, *VariableNode:
		// no children
	case *LambdaNode:
		seen := make(map[string]struct{}, len(e.Params))
		for _, p := range e.Params {
			if _, dup := seen[p.Name]; dup {
				semanticErrorf(p.Loc(), "duplicate parameter %q", p.Name)
			}
			seen[p.Name] = struct{}{}
		}
		checkDuplicates(e.Body)
	case *LetrecNode:
		seen := make(map[string]struct{}, len(e.Names))
		for _, v := range e.Names {
			if _, dup := seen[v.Name]; dup {
				semanticErrorf(v.Loc(), "duplicate binding %q", v.Name)
			}
			seen[v.Name] = struct{}{}
		}
		for _, ex := range e.Exprs {
			checkDuplicates(ex)
		}
		checkDuplicates(e.Body)
	case *IfNode:
		checkDuplicates(e.Cond)
		checkDuplicates(e.Branch1)
		checkDuplicates(e.Branch2)
	case *SequenceNode:
		for _, ex := range e.Exprs {
			checkDuplicates(ex)
		}
	case *IntrinsicCallNode:
		for _, a := range e.Args {
			checkDuplicates(a)
		}
	case *ExprCallNode:
		checkDuplicates(e.Callee)
		for _, a := range e.Args {
			checkDuplicates(a)
		}
	case *AtNode:
		checkDuplicates(e.Expr)
	}
}

func union(sets ...map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for _, s := range sets {
		for k := range s {
			out[k] = struct{}{}
		}
	}
	return out
}

func subtract(s map[string]struct{}, names []*VariableNode) map[string]struct{} {
	out := make(map[string]struct{}, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	for _, v := range names {
		delete(out, v.Name)
	}
	return out
}

// computeFreeVars is a post-order pass recording, on every node, the
// set of variable names its subtree references but does not bind.
func computeFreeVars(n Node) map[string]struct{} {
	var fv map[string]struct{}
	switch e := n.(type) {
	case *IntegerNode:
		fv = map[string]struct{}{}
	case *StringNode:
		fv = map[string]struct{}{}
	case *VariableNode:
		fv = map[string]struct{}{e.Name: {}}
	case *LambdaNode:
		body := computeFreeVars(e.Body)
		fv = subtract(body, e.Params)
	case *LetrecNode:
		parts := make([]map[string]struct{}, 0, len(e.Exprs)+1)
		for _, ex := range e.Exprs {
			parts = append(parts, computeFreeVars(ex))
		}
		parts = append(parts, computeFreeVars(e.Body))
		fv = subtract(union(parts...), e.Names)
	case *IfNode:
		fv = union(computeFreeVars(e.Cond), computeFreeVars(e.Branch1), computeFreeVars(e.Branch2))
	case *SequenceNode:
		parts := make([]map[string]struct{}, len(e.Exprs))
		for i, ex := range e.Exprs {
			parts[i] = computeFreeVars(ex)
		}
		fv = union(parts...)
	case *IntrinsicCallNode:
		parts := make([]map[string]struct{}, len(e.Args))
		for i, a := range e.Args {
			parts[i] = computeFreeVars(a)
		}
		fv = union(parts...)
	case *ExprCallNode:
		parts := make([]map[string]struct{}, 0, len(e.Args)+1)
		parts = append(parts, computeFreeVars(e.Callee))
		for _, a := range e.Args {
			parts = append(parts, computeFreeVars(a))
		}
		fv = union(parts...)
	case *AtNode:
		fv = computeFreeVars(e.Expr)
	default:
		fv = map[string]struct{}{}
	}
	n.setFreeVars(fv)
	return fv
}

// computeTail is a top-down pass recording whether each node sits in
// tail position with respect to the enclosing function body. Only
// ExprCallNode consults its own Tail() (at the call step, for TCO);
// every other node kind's Tail() is unused at evaluation time but
// still computed for uniformity and for tests.
func computeTail(n Node, parentTail bool) {
	n.setTail(parentTail)
	switch e := n.(type) {
	case *IntegerNode, *StringNode, *VariableNode:
		// leaves
	case *LambdaNode:
		for _, p := range e.Params {
			computeTail(p, false)
		}
		computeTail(e.Body, true)
	case *LetrecNode:
		for i, v := range e.Names {
			computeTail(v, false)
			computeTail(e.Exprs[i], false)
		}
		computeTail(e.Body, parentTail)
	case *IfNode:
		computeTail(e.Cond, false)
		computeTail(e.Branch1, parentTail)
		computeTail(e.Branch2, parentTail)
	case *SequenceNode:
		last := len(e.Exprs) - 1
		for i, ex := range e.Exprs {
			if i == last {
				computeTail(ex, parentTail)
			} else {
				computeTail(ex, false)
			}
		}
	case *IntrinsicCallNode:
		for _, a := range e.Args {
			computeTail(a, false)
		}
	case *ExprCallNode:
		computeTail(e.Callee, false)
		for _, a := range e.Args {
			computeTail(a, false)
		}
	case *AtNode:
		computeTail(e.Var, false)
		computeTail(e.Expr, false)
	}
}
