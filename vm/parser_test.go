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

func parse(t *testing.T, source string) Node {
	t.Helper()
	return Parse(Lex(source))
}

func TestParseLambda(t *testing.T) {
	n := parse(t, "lambda (x y) (.+ x y)")
	lam, ok := n.(*LambdaNode)
	if !ok {
		t.Fatalf("got %T, want *LambdaNode", n)
	}
	if len(lam.Params) != 2 || lam.Params[0].Name != "x" || lam.Params[1].Name != "y" {
		t.Fatalf("unexpected params: %v", lam.Params)
	}
}

func TestParseLetrec(t *testing.T) {
	n := parse(t, "letrec (x 1 y 2) (.+ x y)")
	lr, ok := n.(*LetrecNode)
	if !ok {
		t.Fatalf("got %T, want *LetrecNode", n)
	}
	if len(lr.Names) != 2 || lr.Names[0].Name != "x" || lr.Names[1].Name != "y" {
		t.Fatalf("unexpected bindings: %v", lr.Names)
	}
}

func TestParseIf(t *testing.T) {
	n := parse(t, "if 1 2 3")
	if _, ok := n.(*IfNode); !ok {
		t.Fatalf("got %T, want *IfNode", n)
	}
}

func TestParseSequence(t *testing.T) {
	n := parse(t, "{ 1 2 3 }")
	seq, ok := n.(*SequenceNode)
	if !ok || len(seq.Exprs) != 3 {
		t.Fatalf("got %#v, want a 3-element SequenceNode", n)
	}
}

func TestParseEmptySequenceRejected(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic for an empty sequence")
		}
	}()
	parse(t, "{ }")
}

func TestParseIntrinsicVsCallDisambiguation(t *testing.T) {
	n := parse(t, "(.+ 1 2)")
	if _, ok := n.(*IntrinsicCallNode); !ok {
		t.Fatalf("got %T, want *IntrinsicCallNode", n)
	}
	n2 := parse(t, "(f 1 2)")
	if _, ok := n2.(*ExprCallNode); !ok {
		t.Fatalf("got %T, want *ExprCallNode", n2)
	}
}

func TestParseAt(t *testing.T) {
	n := parse(t, "@ x f")
	at, ok := n.(*AtNode)
	if !ok || at.Var.Name != "x" {
		t.Fatalf("got %#v, want an AtNode binding x", n)
	}
}

func TestParseRedundantTokens(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic for redundant trailing tokens")
		}
	}()
	parse(t, "1 2")
}

func TestParseKeywordsNotVariables(t *testing.T) {
	// "if" must be recognized as the keyword even though it also
	// matches the identifier grammar.
	n := parse(t, "if 1 2 3")
	if _, ok := n.(*IfNode); !ok {
		t.Fatalf("%q parsed as %T, expected the if-keyword to win over variable lookup", "if 1 2 3", n)
	}
}
