// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

import (
	"strconv"

	"github.com/pkg/errors"
)

// Kind tells how a block is rendered by netlist emitters.
//
type Kind int

// Block kinds.
//
const (
	// Structural blocks are rendered from their signals, children, assignments,
	// registers and links.
	Structural Kind = iota
	// Primitive blocks carry a manual rendering (see Block.Verilog). Their
	// equivalence with the simulated behavior is asserted by their author.
	Primitive
)

func (k Kind) String() string {
	if k == Primitive {
		return "primitive"
	}
	return "structural"
}

// An Assignment continuously drives Dst with the value of Src.
//
type Assignment struct {
	Dst *Signal
	Src Expr
}

// A Register loads Q with the value of D on every rising edge of Clock.
//
type Register struct {
	Clock *Signal
	Q     *Signal
	D     Expr
	Init  uint64
}

// A Func is custom logic written in Go. Combinational funcs (nil Clock) are
// run on every settle pass and must be pure functions of the signals they
// read. Sequential funcs run on every rising edge of Clock and see the values
// settled before the edge.
//
// A Func may only Set the signals listed in Drives. If Reads is not nil, a
// combinational Func may only Get the signals it lists. A nil Reads means
// that the Func may read any signal of its block and of its children.
//
type Func struct {
	Clock  *Signal
	Fn     func(c *Circuit)
	Drives []*Signal
	Reads  []*Signal
}

// An Edge is a directed connection created by Link or Join.
//
type Edge struct {
	Dst, Src *Signal
	Join     bool
}

// Wrapper is a manual Verilog rendering for a Primitive block.
//
// Code is the module body, it uses the block's port names. Cores holds extra
// top-level definitions (like blackbox modules) that are emitted once.
//
type Wrapper struct {
	Code  string
	Cores string
}

// A Block is a component of a circuit. It owns signals, interfaces and
// sub-blocks, and describes how its outputs and its children's inputs are
// computed.
//
// Blocks are built once, then handed to Validate, Elaborate or a netlist
// emitter. Construction errors are sticky: the first one is kept and reported
// by Validate. Modifying a block after elaboration panics with ErrFrozen.
//
type Block struct {
	name     string
	parent   *Block
	children []*Block
	signals  []*Signal
	ifaces   []*Interface
	names    map[string]struct{}

	assigns []Assignment
	regs    []Register
	funcs   []Func
	edges   []Edge
	wrapper *Wrapper

	err    error
	frozen bool
}

// NewBlock returns a new empty block.
//
func NewBlock(name string) *Block {
	b := &Block{name: name, names: make(map[string]struct{})}
	if !isIdent(name) {
		b.fail(&LinkError{Path: name, Msg: "invalid block name"})
	}
	return b
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z':
		case i > 0 && '0' <= r && r <= '9':
		default:
			return false
		}
	}
	return true
}

// Name returns the block name.
//
func (b *Block) Name() string { return b.name }

// Path returns the hierarchical name of the block, like "top.counter".
//
func (b *Block) Path() string {
	if b.parent == nil {
		return b.name
	}
	return b.parent.Path() + "." + b.name
}

// Parent returns the parent block, nil for a root block.
//
func (b *Block) Parent() *Block { return b.parent }

// Children returns the sub-blocks in the order they were added.
//
func (b *Block) Children() []*Block { return b.children }

// Child returns the sub-block with the given name, or nil.
//
func (b *Block) Child(name string) *Block {
	for _, c := range b.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// Signals returns the signals owned by b, in declaration order.
//
func (b *Block) Signals() []*Signal { return b.signals }

// Signal returns the signal with the given name, or nil.
//
func (b *Block) Signal(name string) *Signal {
	for _, s := range b.signals {
		if s.name == name {
			return s
		}
	}
	return nil
}

// Interfaces returns the interfaces owned by b.
//
func (b *Block) Interfaces() []*Interface { return b.ifaces }

// Assigns returns the continuous assignments of b.
//
func (b *Block) Assigns() []Assignment { return b.assigns }

// Registers returns the registers of b.
//
func (b *Block) Registers() []Register { return b.regs }

// Funcs returns the custom logic functions of b.
//
func (b *Block) Funcs() []Func { return b.funcs }

// Edges returns the connections created by Link and Join, in creation order.
//
func (b *Block) Edges() []Edge { return b.edges }

// Kind returns Primitive if the block has a manual rendering.
//
func (b *Block) Kind() Kind {
	if b.wrapper != nil {
		return Primitive
	}
	return Structural
}

// Wrapper returns the manual rendering of a Primitive block, nil otherwise.
//
func (b *Block) Wrapper() *Wrapper { return b.wrapper }

// Err returns the first construction error recorded on b.
//
func (b *Block) Err() error { return b.err }

func (b *Block) fail(err error) {
	if b.err != nil {
		return
	}
	switch e := err.(type) {
	case *WidthError:
		if e.Path == "" {
			e.Path = b.Path()
		}
	}
	b.err = err
}

func (b *Block) mutable() {
	if b.frozen {
		panic(errors.Wrap(ErrFrozen, b.Path()))
	}
}

// declare reserves name in b's namespace.
//
func (b *Block) declare(name string) bool {
	if _, ok := b.names[name]; ok {
		b.fail(&LinkError{Path: b.Path() + "." + name, Msg: "name already in use"})
		return false
	}
	b.names[name] = struct{}{}
	return true
}

// Add adds children to b. A block can only have one parent. Adding a block
// that has already been elaborated panics with ErrFrozen.
//
func (b *Block) Add(children ...*Block) {
	b.mutable()
	for _, c := range children {
		if c.frozen {
			panic(errors.Wrap(ErrFrozen, c.Path()))
		}
		switch {
		case c.isAncestorOf(b):
			b.fail(&LinkError{Path: c.Path(), Msg: "block added to itself or one of its descendants"})
			continue
		case c.parent != nil:
			b.fail(&LinkError{Path: c.Path(), Msg: "block already has a parent"})
			continue
		}
		if !b.declare(c.name) {
			continue
		}
		c.parent = b
		b.children = append(b.children, c)
	}
}

func (b *Block) newSignal(name string, dir Direction, width int, ident bool) *Signal {
	b.mutable()
	s := &Signal{name: name, dir: dir, width: width, owner: b, id: -1}
	if ident && !isIdent(name) {
		b.fail(&LinkError{Path: b.Path() + "." + name, Msg: "invalid signal name"})
	}
	if err := checkWidth(width, "signal "+name); err != nil {
		b.fail(err)
	}
	b.declare(name)
	b.signals = append(b.signals, s)
	return s
}

// In declares an input signal.
//
func (b *Block) In(name string, width int) *Signal { return b.newSignal(name, In, width, true) }

// Out declares an output signal.
//
func (b *Block) Out(name string, width int) *Signal { return b.newSignal(name, Out, width, true) }

// InOut declares a bidirectional signal.
//
func (b *Block) InOut(name string, width int) *Signal { return b.newSignal(name, InOut, width, true) }

// Local declares an internal signal.
//
func (b *Block) Local(name string, width int) *Signal {
	return b.newSignal(name, Local, width, true)
}

// ClockIn declares a 1 bit clock input.
//
func (b *Block) ClockIn(name string) *Signal {
	s := b.newSignal(name, In, 1, true)
	s.clock = true
	return s
}

// Assign drives dst with the value of src. The widths must match.
//
func (b *Block) Assign(dst *Signal, src Expr) {
	b.mutable()
	if err := src.check(); err != nil {
		b.fail(err)
		return
	}
	if dst.width != src.Width() {
		b.fail(&WidthError{Path: dst.Path(), Msg: "cannot assign " + strconv.Itoa(src.Width()) +
			" bits value " + src.String() + " to " + strconv.Itoa(dst.width) + " bits signal"})
		return
	}
	b.assigns = append(b.assigns, Assignment{dst, src})
}

// Register creates a register: q is loaded with d on every rising edge of
// clk. The register holds init until the first edge.
//
func (b *Block) Register(clk, q *Signal, d Expr, init uint64) {
	b.mutable()
	if err := d.check(); err != nil {
		b.fail(err)
		return
	}
	switch {
	case clk.width != 1:
		b.fail(&WidthError{Path: clk.Path(), Msg: "register clock must be 1 bit wide"})
		return
	case q.width != d.Width():
		b.fail(&WidthError{Path: q.Path(), Msg: "cannot load " + strconv.Itoa(d.Width()) +
			" bits value " + d.String() + " into " + strconv.Itoa(q.width) + " bits register"})
		return
	case init&^Mask(q.width) != 0:
		b.fail(&WidthError{Path: q.Path(), Msg: "initial value " + strconv.FormatUint(init, 10) + " does not fit"})
		return
	}
	b.regs = append(b.regs, Register{clk, q, d, init})
}

// Comb adds custom combinational logic. fn must only Set the signals listed
// in drives, and must be a pure function of the values it reads.
//
// Since the signals read by fn are unknown, it is assumed to read every
// signal of b and of its children, except the ones it drives. Use CombReads
// to narrow this down when it makes Validate report a false combinational
// cycle.
//
// Blocks using Comb have no structural rendering and need a Verilog wrapper
// to be emitted.
//
func (b *Block) Comb(fn func(c *Circuit), drives ...*Signal) {
	b.mutable()
	b.funcs = append(b.funcs, Func{Fn: fn, Drives: drives})
}

// CombReads is like Comb, but fn may only Get the signals listed in reads.
// Reading any other signal is reported as a *ScopeError when the circuit
// settles.
//
func (b *Block) CombReads(fn func(c *Circuit), reads []*Signal, drives ...*Signal) {
	b.mutable()
	if reads == nil {
		reads = []*Signal{}
	}
	b.funcs = append(b.funcs, Func{Fn: fn, Drives: drives, Reads: reads})
}

// OnEdge adds custom sequential logic run on every rising edge of clk. fn
// sees the values settled before the edge; its Set calls are committed
// together with all registers triggered by the same edge.
//
func (b *Block) OnEdge(clk *Signal, fn func(c *Circuit), drives ...*Signal) {
	b.mutable()
	if clk.width != 1 {
		b.fail(&WidthError{Path: clk.Path(), Msg: "edge clock must be 1 bit wide"})
		return
	}
	b.funcs = append(b.funcs, Func{Clock: clk, Fn: fn, Drives: drives})
}

// Verilog makes b a Primitive block rendered with w by the Verilog emitter.
// Its children are still simulated but are not emitted.
//
func (b *Block) Verilog(w Wrapper) {
	b.mutable()
	b.wrapper = &w
}

// Walk calls fn for b and all its descendants, parents first.
//
func (b *Block) Walk(fn func(*Block)) {
	fn(b)
	for _, c := range b.children {
		c.Walk(fn)
	}
}

func (b *Block) isAncestorOf(o *Block) bool {
	for ; o != nil; o = o.parent {
		if o == b {
			return true
		}
	}
	return false
}

func (b *Block) depth() int {
	d := 0
	for _, c := range b.children {
		if cd := c.depth() + 1; cd > d {
			d = cd
		}
	}
	return d
}
