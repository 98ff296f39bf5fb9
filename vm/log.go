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
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Verbosity controls the minimum level of a State's logger. 0 is
// warn-and-above (the default), 1 raises it to info, 2 or more to
// debug.
type Verbosity int

func (v Verbosity) level() zerolog.Level {
	switch {
	case v >= 2:
		return zerolog.DebugLevel
	case v == 1:
		return zerolog.InfoLevel
	default:
		return zerolog.WarnLevel
	}
}

// newLogger builds a session-scoped logger writing to stderr only —
// never stdout, so logging can never perturb the §6 output contract.
// parent is the empty UUID for a top-level State; .eval-spawned child
// states pass their parent's session id so log output can be
// correlated across nesting.
func newLogger(session uuid.UUID, parent uuid.UUID, v Verbosity) zerolog.Logger {
	ctx := zerolog.New(os.Stderr).Level(v.level()).With().Timestamp().Str("session", session.String())
	if parent != uuid.Nil {
		ctx = ctx.Str("parent_session", parent.String())
	}
	return ctx.Logger()
}
