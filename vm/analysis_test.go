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

import "testing"

func analyze(t *testing.T, source string) Node {
	t.Helper()
	n := parse(t, source)
	checkDuplicates(n)
	computeFreeVars(n)
	computeTail(n, false)
	return n
}

func TestFreeVarsLambdaExcludesParams(t *testing.T) {
	n := analyze(t, "lambda (x) (.+ x y)")
	fv := n.FreeVars()
	if _, ok := fv["x"]; ok {
		t.Errorf("lambda parameter x leaked into free vars: %v", fv)
	}
	if _, ok := fv["y"]; !ok {
		t.Errorf("free variable y missing: %v", fv)
	}
}

func TestFreeVarsLetrecExcludesBoundNames(t *testing.T) {
	n := analyze(t, "letrec (x 1 y x) (.+ x z)")
	fv := n.FreeVars()
	if _, ok := fv["x"]; ok {
		t.Errorf("letrec-bound x leaked into free vars: %v", fv)
	}
	if _, ok := fv["z"]; !ok {
		t.Errorf("free variable z missing: %v", fv)
	}
}

func TestTailLambdaBodyIsFreshTailContext(t *testing.T) {
	n := analyze(t, "lambda (x) x").(*LambdaNode)
	if !n.Body.Tail() {
		t.Error("a lambda's body must be in tail position regardless of the lambda's own position")
	}
}

func TestTailSequenceOnlyLastInherits(t *testing.T) {
	n := analyze(t, "lambda () { 1 2 3 }").(*LambdaNode)
	seq := n.Body.(*SequenceNode)
	for i, e := range seq.Exprs {
		isLast := i == len(seq.Exprs)-1
		if e.Tail() != isLast {
			t.Errorf("sequence element %d: Tail()=%v, want %v", i, e.Tail(), isLast)
		}
	}
}

func TestTailIfBothBranchesInherit(t *testing.T) {
	n := analyze(t, "lambda () if 1 2 3").(*LambdaNode)
	ifnode := n.Body.(*IfNode)
	if ifnode.Cond.Tail() {
		t.Error("if condition must never be in tail position")
	}
	if !ifnode.Branch1.Tail() || !ifnode.Branch2.Tail() {
		t.Error("both if branches must inherit the if's own tail position")
	}
}

func TestTailCallArgsAndCalleeNeverTail(t *testing.T) {
	n := analyze(t, "lambda (f x) (f x)").(*LambdaNode)
	call := n.Body.(*ExprCallNode)
	if !call.Tail() {
		t.Error("the call node itself sits in tail position here")
	}
	if call.Callee.Tail() || call.Args[0].Tail() {
		t.Error("callee and arguments of a call are never themselves in tail position")
	}
}

func TestDuplicateLambdaParamsRejected(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic for duplicate lambda parameters")
		}
	}()
	analyze(t, "lambda (x x) x")
}

func TestDuplicateLetrecBindingsRejected(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic for duplicate letrec bindings")
		}
	}()
	analyze(t, "letrec (x 1 x 2) x")
}
