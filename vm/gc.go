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

// gc runs one mark / sweep-and-compact / relocate cycle and returns
// the number of heap slots reclaimed. Locations below NumLiterals are
// preallocated literal constants: always live, never moved, never
// touched by compaction (mark may record them when reachable, but
// that has no effect on them).
func (s *State) gc() int {
	visited := s.mark()
	removed, relocation := s.sweepAndCompact(visited)
	s.relocate(relocation)
	return removed
}

// mark computes the set of live heap Locations reachable from the
// roots: every Layer's Local slots, every frame Layer's environment
// bindings (non-frame layers share their owning frame's Env, so
// marking it once per frame already covers them), and resultLoc.
// Closures are traced recursively through their captured Env.
func (s *State) mark() map[Location]struct{} {
	visited := make(map[Location]struct{})

	var markLoc func(Location)
	markLoc = func(loc Location) {
		if int(loc) < 0 || int(loc) >= len(s.Heap) {
			return
		}
		if _, ok := visited[loc]; ok {
			return
		}
		visited[loc] = struct{}{}
		if v := s.Heap[loc]; v.Kind == KindClosure {
			for _, b := range v.Closure.Env {
				markLoc(b.Loc)
			}
		}
	}

	for _, layer := range s.Stack {
		for _, loc := range layer.Local {
			markLoc(loc)
		}
		if layer.Frame && layer.Env != nil {
			for _, b := range layer.Env.bindings {
				markLoc(b.Loc)
			}
		}
	}
	markLoc(s.ResultLoc)

	return visited
}

// sweepAndCompact performs a stable two-pointer compaction of every
// heap slot at or above NumLiterals, keeping only those visited.
// Returns how many slots were reclaimed and a map from every moved
// slot's old Location to its new one (Locations that didn't move, and
// literals, are absent from the map).
func (s *State) sweepAndCompact(visited map[Location]struct{}) (int, map[Location]Location) {
	relocation := make(map[Location]Location)
	write := s.NumLiterals
	for read := s.NumLiterals; read < len(s.Heap); read++ {
		loc := Location(read)
		if _, live := visited[loc]; !live {
			continue
		}
		if write != read {
			s.Heap[write] = s.Heap[read]
			relocation[loc] = Location(write)
		}
		write++
	}
	removed := len(s.Heap) - write
	s.Heap = s.Heap[:write]
	return removed, relocation
}

// relocate applies a sweepAndCompact relocation map to every stack
// Local, every frame Env's bindings, resultLoc, and the captured Env
// of every Closure left in the (already-compacted) heap.
func (s *State) relocate(relocation map[Location]Location) {
	remap := func(loc Location) Location {
		if nl, ok := relocation[loc]; ok {
			return nl
		}
		return loc
	}

	for i := range s.Stack {
		layer := &s.Stack[i]
		for k, loc := range layer.Local {
			layer.Local[k] = remap(loc)
		}
		if layer.Frame && layer.Env != nil {
			for k, b := range layer.Env.bindings {
				layer.Env.bindings[k].Loc = remap(b.Loc)
			}
		}
	}

	s.ResultLoc = remap(s.ResultLoc)

	for i := range s.Heap {
		if s.Heap[i].Kind != KindClosure {
			continue
		}
		env := s.Heap[i].Closure.Env
		for k, b := range env {
			env[k].Loc = remap(b.Loc)
		}
	}
}
