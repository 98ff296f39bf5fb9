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

import "fmt"

// SourceLocation is a 1-based line/column position in a source file.
// A zero value means "no location available".
type SourceLocation struct {
	Line   int
	Column int
}

func (sl SourceLocation) Valid() bool {
	return sl.Line > 0 && sl.Column > 0
}

func (sl SourceLocation) String() string {
	if !sl.Valid() {
		return "(SourceLocation N/A)"
	}
	return fmt.Sprintf("(SourceLocation %d %d)", sl.Line, sl.Column)
}
