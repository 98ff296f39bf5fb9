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
	"bufio"
	"os"
	"strconv"
)

var (
	stdin  = bufio.NewReader(os.Stdin)
	stdout = bufio.NewWriter(os.Stdout)
)

// FlushStdout drains buffered `.putstr` output. main.go calls this
// once after Execute returns, before printing the §6 sentinel and
// final value, so program output and that trailer never interleave.
func FlushStdout() { stdout.Flush() }

// IntrinsicFn implements one entry of the fixed intrinsic surface
// (§6). Arguments are already-evaluated heap Locations, in source
// order; the function returns the Value step() stores at the call's
// result Location.
type IntrinsicFn func(s *State, loc SourceLocation, args []Location) Value

func (s *State) mustArity(loc SourceLocation, name string, args []Location, n int) {
	if len(args) != n {
		s.runtimeErrorf(loc, "%s expects %d argument(s), got %d", name, n, len(args))
	}
}

func (s *State) mustInt(loc SourceLocation, l Location) int64 {
	v := s.Heap[l]
	if v.Kind != KindInteger {
		s.runtimeErrorf(loc, "expected an integer operand, got %s", v.Kind)
	}
	return v.Int
}

func (s *State) mustString(loc SourceLocation, l Location) string {
	v := s.Heap[l]
	if v.Kind != KindString {
		s.runtimeErrorf(loc, "expected a string operand, got %s", v.Kind)
	}
	return v.Str
}

func boolInt(b bool) Value {
	if b {
		return IntegerValue(1)
	}
	return IntegerValue(0)
}

func (s *State) callIntrinsic(loc SourceLocation, name string, args []Location) Value {
	fn, ok := intrinsicTable[name]
	if !ok {
		s.runtimeErrorf(loc, "unknown intrinsic %s", name)
	}
	return fn(s, loc, args)
}

var intrinsicTable map[string]IntrinsicFn

func init() {
	intrinsicTable = map[string]IntrinsicFn{
		".void": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, ".void", args, 0)
			return VoidValue()
		},
		".+": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, ".+", args, 2)
			return IntegerValue(s.mustInt(loc, args[0]) + s.mustInt(loc, args[1]))
		},
		".-": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, ".-", args, 2)
			return IntegerValue(s.mustInt(loc, args[0]) - s.mustInt(loc, args[1]))
		},
		".*": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, ".*", args, 2)
			return IntegerValue(s.mustInt(loc, args[0]) * s.mustInt(loc, args[1]))
		},
		"./": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, "./", args, 2)
			a, b := s.mustInt(loc, args[0]), s.mustInt(loc, args[1])
			if b == 0 {
				s.runtimeErrorf(loc, "division by zero")
			}
			return IntegerValue(a / b)
		},
		".%": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, ".%", args, 2)
			a, b := s.mustInt(loc, args[0]), s.mustInt(loc, args[1])
			if b == 0 {
				s.runtimeErrorf(loc, "division by zero")
			}
			return IntegerValue(a % b)
		},
		".<": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, ".<", args, 2)
			return boolInt(s.mustInt(loc, args[0]) < s.mustInt(loc, args[1]))
		},
		".<=": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, ".<=", args, 2)
			return boolInt(s.mustInt(loc, args[0]) <= s.mustInt(loc, args[1]))
		},
		".>": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, ".>", args, 2)
			return boolInt(s.mustInt(loc, args[0]) > s.mustInt(loc, args[1]))
		},
		".>=": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, ".>=", args, 2)
			return boolInt(s.mustInt(loc, args[0]) >= s.mustInt(loc, args[1]))
		},
		".=": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, ".=", args, 2)
			return boolInt(s.mustInt(loc, args[0]) == s.mustInt(loc, args[1]))
		},
		"./=": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, "./=", args, 2)
			return boolInt(s.mustInt(loc, args[0]) != s.mustInt(loc, args[1]))
		},
		".and": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, ".and", args, 2)
			return boolInt(s.mustInt(loc, args[0]) != 0 && s.mustInt(loc, args[1]) != 0)
		},
		".or": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, ".or", args, 2)
			return boolInt(s.mustInt(loc, args[0]) != 0 || s.mustInt(loc, args[1]) != 0)
		},
		".not": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, ".not", args, 1)
			return boolInt(s.mustInt(loc, args[0]) == 0)
		},
		".s+": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, ".s+", args, 2)
			return StringValue(s.mustString(loc, args[0]) + s.mustString(loc, args[1]))
		},
		".s<": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, ".s<", args, 2)
			return boolInt(s.mustString(loc, args[0]) < s.mustString(loc, args[1]))
		},
		".s<=": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, ".s<=", args, 2)
			return boolInt(s.mustString(loc, args[0]) <= s.mustString(loc, args[1]))
		},
		".s>": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, ".s>", args, 2)
			return boolInt(s.mustString(loc, args[0]) > s.mustString(loc, args[1]))
		},
		".s>=": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, ".s>=", args, 2)
			return boolInt(s.mustString(loc, args[0]) >= s.mustString(loc, args[1]))
		},
		".s=": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, ".s=", args, 2)
			return boolInt(s.mustString(loc, args[0]) == s.mustString(loc, args[1]))
		},
		".s/=": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, ".s/=", args, 2)
			return boolInt(s.mustString(loc, args[0]) != s.mustString(loc, args[1]))
		},
		".s||": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, ".s||", args, 1)
			return IntegerValue(int64(len(s.mustString(loc, args[0]))))
		},
		".s[]": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, ".s[]", args, 3)
			str := s.mustString(loc, args[0])
			l := s.mustInt(loc, args[1])
			r := s.mustInt(loc, args[2])
			n := int64(len(str))
			if !(l >= 0 && l <= r && r <= n) {
				s.runtimeErrorf(loc, "substring range [%d,%d) out of bounds for string of length %d", l, r, n)
			}
			return StringValue(str[l:r])
		},
		".quote": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, ".quote", args, 1)
			return StringValue(quote(s.mustString(loc, args[0])))
		},
		".unquote": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, ".unquote", args, 1)
			raw, err := unquote(s.mustString(loc, args[0]))
			if err != nil {
				s.runtimeErrorf(loc, "%v", err)
			}
			return StringValue(raw)
		},
		".s->i": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, ".s->i", args, 1)
			n, err := strconv.ParseInt(s.mustString(loc, args[0]), 10, 64)
			if err != nil {
				s.runtimeErrorf(loc, "not an integer: %v", err)
			}
			return IntegerValue(n)
		},
		".i->s": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, ".i->s", args, 1)
			return StringValue(strconv.FormatInt(s.mustInt(loc, args[0]), 10))
		},
		".type": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, ".type", args, 1)
			switch s.Heap[args[0]].Kind {
			case KindVoid:
				return IntegerValue(0)
			case KindInteger:
				return IntegerValue(1)
			default:
				return IntegerValue(2)
			}
		},
		".eval": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, ".eval", args, 1)
			src := s.mustString(loc, args[0])
			child, err := NewStateWithOptions(src, Options{Verbosity: s.Verbosity, Parent: s.SessionID})
			if err != nil {
				panic(err)
			}
			s.Logger.Info().Str("child_session", child.SessionID.String()).Msg("eval: entering nested state")
			if err := child.Execute(); err != nil {
				panic(err)
			}
			s.Logger.Info().Str("child_session", child.SessionID.String()).Msg("eval: nested state finished")
			return child.Result()
		},
		".getchar": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, ".getchar", args, 0)
			b, err := stdin.ReadByte()
			if err != nil {
				return VoidValue()
			}
			return StringValue(string(rune(b)))
		},
		".getint": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, ".getint", args, 0)
			return readInt()
		},
		".putstr": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, ".putstr", args, 1)
			stdout.WriteString(s.mustString(loc, args[0]))
			return VoidValue()
		},
		".flush": func(s *State, loc SourceLocation, args []Location) Value {
			s.mustArity(loc, ".flush", args, 0)
			stdout.Flush()
			return VoidValue()
		},
	}
}

// readInt mirrors C++ `std::cin >> int`: skip leading whitespace,
// then read an optional sign and a maximal run of digits. Returns
// Void if no digits were found; the skipped whitespace stays
// consumed, and so does a sign that has no digit after it.
func readInt() Value {
	for {
		b, err := stdin.ReadByte()
		if err != nil {
			return VoidValue()
		}
		if b == ' ' || b == '\t' || b == '\n' || b == '\r' {
			continue
		}
		stdin.UnreadByte()
		break
	}

	var digits []byte
	b, err := stdin.ReadByte()
	if err != nil {
		return VoidValue()
	}
	if b == '+' || b == '-' {
		next, err2 := stdin.ReadByte()
		if err2 != nil || !isDigit(next) {
			if err2 == nil {
				stdin.UnreadByte()
			}
			return VoidValue()
		}
		if b == '-' {
			digits = append(digits, '-')
		}
		digits = append(digits, next)
	} else if isDigit(b) {
		digits = append(digits, b)
	} else {
		stdin.UnreadByte()
		return VoidValue()
	}

	for {
		b, err := stdin.ReadByte()
		if err != nil {
			break
		}
		if !isDigit(b) {
			stdin.UnreadByte()
			break
		}
		digits = append(digits, b)
	}

	n, err := strconv.ParseInt(string(digits), 10, 64)
	if err != nil {
		return VoidValue()
	}
	return IntegerValue(n)
}
