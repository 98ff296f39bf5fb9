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

// TestGCReclaimsDeadAllocations forces a low initial threshold so a
// loop that allocates garbage strings every iteration triggers many
// collections, then checks the final result and heap size are both
// sane: the collector must never reclaim something still reachable,
// and must eventually shrink the heap back down.
func TestGCReclaimsDeadAllocations(t *testing.T) {
	src := `
	letrec (
		loop lambda (n acc)
			if (.= n 0)
				acc
				(loop (.- n 1) (.s+ acc (.i->s n)))
	)
	(.s|| (loop 500 ""))
	`
	st, err := NewStateWithOptions(src, Options{GCInitialThreshold: 8})
	if err != nil {
		t.Fatalf("NewStateWithOptions: %v", err)
	}
	if err := st.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	total := 0
	for n := 1; n <= 500; n++ {
		switch {
		case n < 10:
			total += 1
		case n < 100:
			total += 2
		default:
			total += 3
		}
	}
	wantInt(t, st.Result(), int64(total))

	if len(st.Heap) > st.NumLiterals+64 {
		t.Errorf("heap did not shrink after GC: %d live slots (NumLiterals=%d)", len(st.Heap), st.NumLiterals)
	}
}

// TestGCPreservesClosureEnvAfterRelocation builds many short-lived
// closures so compaction must relocate a surviving one, then calls it
// to make sure its captured environment's Locations were rewritten
// correctly and still point at the right values.
func TestGCPreservesClosureEnvAfterRelocation(t *testing.T) {
	src := `
	letrec (mk lambda (x) lambda (y) (.+ x y))
	letrec (survivor (mk 1000))
	letrec (
		junk lambda (n acc)
			if (.= n 0)
				acc
				(junk (.- n 1) (mk n))
	)
	{
		(junk 300 (mk 0))
		(survivor 1)
	}
	`
	st, err := NewStateWithOptions(src, Options{GCInitialThreshold: 4})
	if err != nil {
		t.Fatalf("NewStateWithOptions: %v", err)
	}
	if err := st.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	wantInt(t, st.Result(), 1001)
}
