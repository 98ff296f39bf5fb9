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
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// gcInitialSlack is how far above NumLiterals the heap is allowed to
// grow before the first collection; ported from the original's
// numLiterals+64 starting threshold.
const gcInitialSlack = 64

// Options configures NewStateWithOptions. The zero value is the
// default top-level session: warn-level logging, no parent, default
// GC threshold.
type Options struct {
	Verbosity          Verbosity
	Parent             uuid.UUID
	GCInitialThreshold int
}

// State is one suspendable evaluation: an AST, an explicit control
// stack of Layers standing in for the host call stack, and a heap of
// Values those Layers and the AST's preallocated literals refer to by
// Location. It is advanced one node at a time by step(), driven to
// completion by Execute.
type State struct {
	Root        Node
	Stack       []Layer
	Heap        []Value
	NumLiterals int
	ResultLoc   Location

	SessionID uuid.UUID
	ParentID  uuid.UUID
	Verbosity Verbosity
	Logger    zerolog.Logger

	gcThreshold int
}

// NewState parses and statically analyzes source and constructs a
// State ready to Execute, with default ambient options.
func NewState(source string) (*State, error) {
	return NewStateWithOptions(source, Options{})
}

// NewStateWithOptions is NewState with explicit session/logging
// options; used directly by the `.eval` intrinsic to spawn a child
// session correlated to its parent's session id.
func NewStateWithOptions(source string, opts Options) (st *State, err error) {
	defer func() {
		if r := recover(); r != nil {
			st = nil
			err = toError(r)
		}
	}()

	session := uuid.New()
	s := &State{
		SessionID: session,
		ParentID:  opts.Parent,
		Verbosity: opts.Verbosity,
		Logger:    newLogger(session, opts.Parent, opts.Verbosity),
	}

	tokens := Lex(source)
	root := Parse(tokens)
	checkDuplicates(root)
	computeFreeVars(root)
	computeTail(root, false)

	s.Root = root
	s.preallocateLiterals(root)
	s.NumLiterals = len(s.Heap)

	threshold := opts.GCInitialThreshold
	if threshold <= 0 {
		threshold = s.NumLiterals + gcInitialSlack
	}
	s.gcThreshold = threshold

	mainEnv := newSharedEnv(nil)
	s.Stack = []Layer{
		{Env: mainEnv, Expr: nil, Frame: true, PC: 0},
		{Env: mainEnv, Expr: root, Frame: false, PC: 0},
	}

	return s, nil
}

func toError(r interface{}) error {
	if e, ok := r.(error); ok {
		return e
	}
	return fmt.Errorf("%v", r)
}

// preallocateLiterals walks the AST top-down, allocating each
// Integer/String literal's runtime Value into the heap once and
// recording the Location on the node. These slots, [0, NumLiterals),
// are immortal: never moved, never swept.
func (s *State) preallocateLiterals(n Node) {
	switch e := n.(type) {
	case *IntegerNode:
		val, err := strconv.ParseInt(e.Text, 10, 64)
		if err != nil {
			lexErrorf(e.Loc(), "malformed integer literal %q", e.Text)
		}
		e.HeapLoc = s.newValue(IntegerValue(val))
	case *StringNode:
		raw, err := unquote(e.Text)
		if err != nil {
			lexErrorf(e.Loc(), "%v", err)
		}
		e.HeapLoc = s.newValue(StringValue(raw))
	case *VariableNode:
		// leaf, nothing to preallocate
	case *LambdaNode:
		s.preallocateLiterals(e.Body)
	case *LetrecNode:
		for _, ex := range e.Exprs {
			s.preallocateLiterals(ex)
		}
		s.preallocateLiterals(e.Body)
	case *IfNode:
		s.preallocateLiterals(e.Cond)
		s.preallocateLiterals(e.Branch1)
		s.preallocateLiterals(e.Branch2)
	case *SequenceNode:
		for _, ex := range e.Exprs {
			s.preallocateLiterals(ex)
		}
	case *IntrinsicCallNode:
		for _, a := range e.Args {
			s.preallocateLiterals(a)
		}
	case *ExprCallNode:
		s.preallocateLiterals(e.Callee)
		for _, a := range e.Args {
			s.preallocateLiterals(a)
		}
	case *AtNode:
		s.preallocateLiterals(e.Expr)
	}
}

func (s *State) newValue(v Value) Location {
	s.Heap = append(s.Heap, v)
	return Location(len(s.Heap) - 1)
}

func (s *State) pushChild(env *sharedEnv, expr Node) {
	s.Stack = append(s.Stack, Layer{Env: env, Expr: expr, Frame: false, PC: 0})
}

func (s *State) runtimeErrorf(loc SourceLocation, format string, args ...interface{}) {
	panic(&RuntimeError{Loc: loc, Msg: fmt.Sprintf(format, args...), Frames: s.FrameTrace()})
}

// FrameTrace collects the source location of every active call frame,
// innermost last, synthesizing (1,1) for the bottommost main frame.
func (s *State) FrameTrace() []SourceLocation {
	var out []SourceLocation
	for _, l := range s.Stack {
		if l.Frame {
			out = append(out, l.sourceLocOrMain())
		}
	}
	return out
}

// Result returns the Value currently held at resultLoc; meaningful
// once Execute has returned without error.
func (s *State) Result() Value {
	return s.Heap[s.ResultLoc]
}

// Execute drives step() to completion, running a GC cycle whenever
// the heap crosses the current threshold and resetting the threshold
// to twice the post-collection live count, same schedule as the
// original evaluator. Any lex/parse/semantic/runtime error raised
// along the way is recovered here and returned as a plain error.
func (s *State) Execute() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = toError(r)
			if re, ok := err.(*RuntimeError); ok {
				s.Logger.Info().
					Str("kind", "runtime").
					Str("msg", re.Msg).
					Str("loc", re.Loc.String()).
					Interface("frames", re.Frames).
					Msg("runtime error")
			}
		}
	}()

	for s.step() {
		if len(s.Heap) > s.gcThreshold {
			removed := s.gc()
			live := len(s.Heap)
			s.gcThreshold = live * 2
			s.Logger.Debug().
				Int("removed", removed).
				Int("live", live).
				Int("new_threshold", s.gcThreshold).
				Msg("gc cycle")
		}
	}
	return nil
}

// step advances evaluation by exactly one node-transition: it pushes
// at most one child Layer, pops the current Layer (leaves, lambdas,
// intrinsic calls and @ publish a new resultLoc; the other kinds keep
// their last child's), or performs a call step's push-with-possible-pop.
// A Letrec's first step only extends the environment. Returns false
// once only the sentinel main frame remains.
func (s *State) step() bool {
	i := len(s.Stack) - 1
	layer := s.Stack[i]

	if layer.Expr == nil {
		return false
	}

	switch node := layer.Expr.(type) {
	case *IntegerNode:
		s.ResultLoc = node.HeapLoc
		s.Stack = s.Stack[:i]

	case *StringNode:
		s.ResultLoc = node.HeapLoc
		s.Stack = s.Stack[:i]

	case *VariableNode:
		loc, ok := layer.Env.bindings.lookup(node.Name)
		if !ok {
			s.runtimeErrorf(node.Loc(), "undefined variable %q", node.Name)
		}
		s.ResultLoc = loc
		s.Stack = s.Stack[:i]

	case *LambdaNode:
		env := layer.Env.bindings.capture(node.FreeVars())
		s.ResultLoc = s.newValue(ClosureVal(env, node))
		s.Stack = s.Stack[:i]

	case *LetrecNode:
		s.stepLetrec(i, layer, node)

	case *IfNode:
		s.stepIf(i, layer, node)

	case *SequenceNode:
		s.stepSequence(i, layer, node)

	case *IntrinsicCallNode:
		s.stepIntrinsicCall(i, layer, node)

	case *ExprCallNode:
		s.stepExprCall(i, layer, node)

	case *AtNode:
		s.stepAt(i, layer, node)

	default:
		panic(fmt.Sprintf("unhandled node type %T", node))
	}

	return true
}

func (s *State) stepLetrec(i int, layer Layer, node *LetrecNode) {
	n := len(node.Names)
	pc := layer.PC

	if pc > 1 && pc <= n+1 {
		name := node.Names[pc-2].Name
		loc, _ := layer.Env.bindings.lookup(name)
		v := s.Heap[s.ResultLoc]
		if v.Kind == KindClosure {
			v.Closure = &ClosureValue{Env: v.Closure.Env.clone(), Lambda: v.Closure.Lambda}
		}
		s.Heap[loc] = v
	}

	switch {
	case pc == 0:
		for _, v := range node.Names {
			loc := s.newValue(VoidValue())
			layer.Env.push(v.Name, loc)
		}
		s.Stack[i].PC = 1
	case pc <= n:
		s.Stack[i].PC = pc + 1
		s.pushChild(layer.Env, node.Exprs[pc-1])
	case pc == n+1:
		s.Stack[i].PC = pc + 1
		s.pushChild(layer.Env, node.Body)
	default:
		layer.Env.pop(n)
		s.Stack = s.Stack[:i]
	}
}

func (s *State) stepIf(i int, layer Layer, node *IfNode) {
	switch layer.PC {
	case 0:
		s.Stack[i].PC = 1
		s.pushChild(layer.Env, node.Cond)
	case 1:
		cond := s.Heap[s.ResultLoc]
		if cond.Kind != KindInteger {
			s.runtimeErrorf(node.Cond.Loc(), "if condition must be an integer")
		}
		s.Stack[i].PC = 2
		branch := node.Branch2
		if cond.Int != 0 {
			branch = node.Branch1
		}
		s.pushChild(layer.Env, branch)
	default:
		s.Stack = s.Stack[:i]
	}
}

func (s *State) stepSequence(i int, layer Layer, node *SequenceNode) {
	pc := layer.PC
	if pc < len(node.Exprs) {
		s.Stack[i].PC = pc + 1
		s.pushChild(layer.Env, node.Exprs[pc])
		return
	}
	s.Stack = s.Stack[:i]
}

func (s *State) stepIntrinsicCall(i int, layer Layer, node *IntrinsicCallNode) {
	pc := layer.PC
	n := len(node.Args)

	if pc > 0 && pc <= n {
		s.Stack[i].Local = append(s.Stack[i].Local, s.ResultLoc)
	}

	if pc < n {
		s.Stack[i].PC = pc + 1
		s.pushChild(layer.Env, node.Args[pc])
		return
	}

	result := s.callIntrinsic(node.Loc(), node.Name, s.Stack[i].Local)
	s.ResultLoc = s.newValue(result)
	s.Stack = s.Stack[:i]
}

func (s *State) stepExprCall(i int, layer Layer, node *ExprCallNode) {
	n := len(node.Args)
	pc := layer.PC

	switch {
	case pc == 0:
		s.Stack[i].PC = 1
		s.pushChild(layer.Env, node.Callee)

	case pc == n+1:
		s.Stack[i].Local = append(s.Stack[i].Local, s.ResultLoc)
		s.callStep(i, node)

	case pc >= 1 && pc <= n:
		if pc == 1 {
			s.Stack[i].Local = []Location{s.ResultLoc}
		} else {
			s.Stack[i].Local = append(s.Stack[i].Local, s.ResultLoc)
		}
		s.Stack[i].PC = pc + 1
		s.pushChild(layer.Env, node.Args[pc-1])

	default: // pc == n+2: the call frame pushed by callStep has returned
		s.Stack = s.Stack[:i]
	}
}

// callStep performs the actual function application once the callee
// and every argument have been evaluated and recorded in Local. On a
// tail call it first unwinds the current frame (bounding stack growth
// under tail recursion); either way it pushes a fresh frame Layer for
// the callee's body.
func (s *State) callStep(i int, node *ExprCallNode) {
	local := s.Stack[i].Local
	calleeVal := s.Heap[local[0]]
	if calleeVal.Kind != KindClosure {
		s.runtimeErrorf(node.Loc(), "call target is not a closure")
	}
	lam := calleeVal.Closure.Lambda
	args := local[1:]
	if len(args) != len(lam.Params) {
		s.runtimeErrorf(node.Loc(), "closure expects %d argument(s), got %d", len(lam.Params), len(args))
	}

	newEnv := calleeVal.Closure.Env.clone()
	for k, p := range lam.Params {
		newEnv = append(newEnv, binding{Name: p.Name, Loc: args[k]})
	}

	if node.Tail() {
		s.popToFrameInclusive()
	} else {
		s.Stack[i].PC = len(node.Args) + 2
	}

	s.Stack = append(s.Stack, Layer{Env: newSharedEnv(newEnv), Expr: lam.Body, Frame: true, PC: 0})
}

// popToFrameInclusive pops Layers off the top of the stack through
// and including the nearest enclosing frame Layer. Used by tail calls
// to discard the exhausted caller frame before pushing the callee's.
func (s *State) popToFrameInclusive() {
	for len(s.Stack) > 0 {
		top := s.Stack[len(s.Stack)-1]
		s.Stack = s.Stack[:len(s.Stack)-1]
		if top.Frame {
			return
		}
	}
}

func (s *State) stepAt(i int, layer Layer, node *AtNode) {
	switch layer.PC {
	case 0:
		s.Stack[i].PC = 1
		s.pushChild(layer.Env, node.Expr)
	default:
		v := s.Heap[s.ResultLoc]
		if v.Kind != KindClosure {
			s.runtimeErrorf(node.Expr.Loc(), "@ requires a closure operand")
		}
		loc, ok := v.Closure.Env.lookup(node.Var.Name)
		if !ok {
			s.runtimeErrorf(node.Var.Loc(), "undefined variable %q in closure environment", node.Var.Name)
		}
		s.ResultLoc = loc
		s.Stack = s.Stack[:i]
	}
}

// Clone returns a copy with its own AST in Root, its own heap (with
// every Closure's captured Env copied so compaction in one State can
// never touch the other's), and its own control stack, preserving Env
// sharing *within* the clone (two Layers that shared one sharedEnv in
// s still share one, distinct, sharedEnv in the clone) without sharing
// any Env or heap slot *with* s. The cloned Layers' Expr and the cloned
// Closures' Lambda still point at s's AST nodes, not at the nodes
// under the clone's Root.
func (s *State) Clone() *State {
	root := s.Root.Clone()

	heap := make([]Value, len(s.Heap))
	copy(heap, s.Heap)
	for i, v := range heap {
		if v.Kind == KindClosure {
			heap[i].Closure = &ClosureValue{Env: v.Closure.Env.clone(), Lambda: v.Closure.Lambda}
		}
	}

	envMap := make(map[*sharedEnv]*sharedEnv)
	stack := make([]Layer, len(s.Stack))
	for i, l := range s.Stack {
		ne, ok := envMap[l.Env]
		if !ok {
			ne = newSharedEnv(l.Env.bindings.clone())
			envMap[l.Env] = ne
		}
		local := make([]Location, len(l.Local))
		copy(local, l.Local)
		stack[i] = Layer{Env: ne, Expr: l.Expr, Frame: l.Frame, PC: l.PC, Local: local}
	}

	session := uuid.New()
	return &State{
		Root:        root,
		Stack:       stack,
		Heap:        heap,
		NumLiterals: s.NumLiterals,
		ResultLoc:   s.ResultLoc,
		SessionID:   session,
		ParentID:    s.ParentID,
		Verbosity:   s.Verbosity,
		Logger:      newLogger(session, s.ParentID, s.Verbosity),
		gcThreshold: s.gcThreshold,
	}
}
