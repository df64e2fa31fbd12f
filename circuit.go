// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

import (
	"github.com/pkg/errors"
)

// element is a unit of logic in an elaborated circuit.
//
type element struct {
	owner  *Block
	dst    int // target slot of expression elements
	expr   Expr
	fn     func(*Circuit)
	drives []int
	reads  []int // nil if not declared
}

func (e *element) mayDrive(id int) bool {
	for _, d := range e.drives {
		if d == id {
			return true
		}
	}
	return false
}

func (e *element) mayRead(id int) bool {
	for _, r := range e.reads {
		if r == id {
			return true
		}
	}
	return false
}

type register struct {
	q     int
	d     Expr
	init  uint64
	owner *Block
}

// domain groups the registers and edge funcs triggered by the same clock slot.
//
type domain struct {
	clk   int
	last  uint64
	regs  []int
	funcs []int
}

type load struct {
	id int
	v  uint64
}

// Circuit is an elaborated block tree: a flat arena of signal values plus the
// logic that computes them.
//
// The arena holds two frames: cur, read by all logic, and next, where logic
// stages its results. Settling evaluates every combinational element against
// cur, then commits next into cur, until nothing changes. Since every element
// reads the same frame, the evaluation order never changes the result.
//
// A Circuit is not safe for concurrent use. Separate circuits elaborated from
// the same tree can be used concurrently.
//
type Circuit struct {
	root *Block
	sigs []*Signal

	cur, next []uint64
	stamp     []uint32
	pass      uint32
	dirty     []int
	last      []int // slots changed by the last commit
	changed   []int // slots changed since the last drain
	mark      []bool

	comb    []element
	seq     []element
	regs    []register
	domains []domain
	loads   []load

	limit    int
	now      uint64
	writer   *element
	fault    error
	deferred []func()
	mems     map[*Block][]uint64
	reverse  bool // evaluate combinational elements backwards
}

// Elaborate validates the block tree rooted at root and builds a Circuit from
// it. The tree is frozen: it cannot be modified afterwards.
//
// A frozen tree can be elaborated again, always yielding the same arena
// layout, but only from the same root.
//
func Elaborate(root *Block) (*Circuit, error) {
	if err := Validate(root); err != nil {
		return nil, err
	}
	if root.frozen {
		if s := firstSignal(root); s != nil && s.id != 0 {
			return nil, &LinkError{Path: root.Path(), Msg: "block already elaborated as part of another tree"}
		}
	}
	c := &Circuit{root: root}
	frozen := root.frozen
	root.Walk(func(b *Block) {
		b.frozen = true
		for _, s := range b.signals {
			if !frozen {
				s.id = len(c.sigs)
			}
			c.sigs = append(c.sigs, s)
		}
	})
	n := len(c.sigs)
	c.cur = make([]uint64, n)
	c.next = make([]uint64, n)
	c.stamp = make([]uint32, n)
	c.mark = make([]bool, n)

	dom := make(map[int]int)
	domainOf := func(clk *Signal) *domain {
		i, ok := dom[clk.id]
		if !ok {
			i = len(c.domains)
			dom[clk.id] = i
			c.domains = append(c.domains, domain{clk: clk.id})
		}
		return &c.domains[i]
	}

	root.Walk(func(b *Block) {
		for _, a := range b.assigns {
			c.comb = append(c.comb, element{owner: b, dst: a.Dst.id, expr: a.Src})
		}
		for _, e := range b.edges {
			c.comb = append(c.comb, element{owner: b, dst: e.Dst.id, expr: Sig(e.Src)})
		}
		for _, r := range b.regs {
			d := domainOf(r.Clock)
			d.regs = append(d.regs, len(c.regs))
			c.regs = append(c.regs, register{q: r.Q.id, d: r.D, init: r.Init, owner: b})
		}
		for _, f := range b.funcs {
			e := element{owner: b, dst: -1, fn: f.Fn, drives: make([]int, len(f.Drives))}
			for i, s := range f.Drives {
				e.drives[i] = s.id
			}
			if f.Clock == nil {
				if f.Reads != nil {
					e.reads = make([]int, len(f.Reads))
					for i, s := range f.Reads {
						e.reads[i] = s.id
					}
				}
				c.comb = append(c.comb, e)
				continue
			}
			d := domainOf(f.Clock)
			d.funcs = append(d.funcs, len(c.seq))
			c.seq = append(c.seq, e)
		}
	})

	c.limit = 4 * (root.depth() + 1)
	if l := len(c.comb) + 2; l > c.limit {
		c.limit = l
	}
	c.Reset()
	return c, nil
}

// Reset puts c back in its initial state: time 0, all signals at 0 except
// registers holding their initial value, and empty memories.
//
func (c *Circuit) Reset() {
	for i := range c.cur {
		c.cur[i] = 0
		c.next[i] = 0
		c.stamp[i] = 0
		c.mark[i] = false
	}
	for _, r := range c.regs {
		c.cur[r.q] = r.init
		c.next[r.q] = r.init
	}
	for i := range c.domains {
		c.domains[i].last = 0
	}
	c.pass = 0
	c.dirty = c.dirty[:0]
	c.last = c.last[:0]
	c.changed = c.changed[:0]
	c.loads = c.loads[:0]
	c.now = 0
	c.writer = nil
	c.fault = nil
	c.deferred = c.deferred[:0]
	c.mems = make(map[*Block][]uint64)
}

func firstSignal(root *Block) *Signal {
	var first *Signal
	root.Walk(func(b *Block) {
		if first == nil && len(b.signals) > 0 {
			first = b.signals[0]
		}
	})
	return first
}

// Root returns the root block of the circuit.
//
func (c *Circuit) Root() *Block { return c.root }

// Signals returns all signals of the circuit in arena order (tree order).
//
func (c *Circuit) Signals() []*Signal { return c.sigs }

// Now returns the logical time of the circuit.
//
func (c *Circuit) Now() uint64 { return c.now }

// SettleLimit returns the maximum number of passes of a settle.
//
func (c *Circuit) SettleLimit() int { return c.limit }

// SetSettleLimit sets the maximum number of passes of a settle. If n <= 0,
// the default bound is kept.
//
func (c *Circuit) SetSettleLimit(n int) {
	if n > 0 {
		c.limit = n
	}
}

// Lookup returns the signal with the given hierarchical path, or nil.
//
func (c *Circuit) Lookup(path string) *Signal {
	for _, s := range c.sigs {
		if s.Path() == path {
			return s
		}
	}
	return nil
}

func (c *Circuit) slot(s *Signal) int {
	if s.id < 0 || s.id >= len(c.sigs) || c.sigs[s.id] != s {
		panic("hdl: signal " + s.Path() + " does not belong to circuit " + c.root.Path())
	}
	return s.id
}

// Get returns the current value of s. A combinational Func with declared
// reads may only Get those signals.
//
func (c *Circuit) Get(s *Signal) uint64 {
	id := c.slot(s)
	if e := c.writer; e != nil && e.reads != nil && !e.mayRead(id) {
		c.failf(&ScopeError{Block: e.owner.Path(), Path: s.Path(), Msg: "reads undeclared signal"})
	}
	return c.cur[id]
}

// Set stages v as the next value of s. It must only be called from a Func,
// for one of the signals the Func declared it drives.
//
func (c *Circuit) Set(s *Signal, v uint64) {
	e := c.writer
	if e == nil {
		panic("hdl: Circuit.Set called outside of a Func")
	}
	id := c.slot(s)
	if !e.mayDrive(id) {
		c.failf(&ScopeError{Block: e.owner.Path(), Path: s.Path(), Msg: "sets undeclared signal"})
		return
	}
	c.stage(id, v&Mask(s.width))
}

// Memory returns the storage of owner in this circuit, allocating size words
// on first use. It lets stateful Funcs, like RAMs, keep their state per
// circuit rather than per block.
//
func (c *Circuit) Memory(owner *Block, size int) []uint64 {
	m, ok := c.mems[owner]
	if !ok {
		m = make([]uint64, size)
		c.mems[owner] = m
	}
	return m
}

// Defer schedules fn to run when the current clock edge is committed. Edge
// funcs use it to update private state (like memory contents) without making
// the update visible to other funcs triggered by the same edge.
//
func (c *Circuit) Defer(fn func()) {
	c.deferred = append(c.deferred, fn)
}

func (c *Circuit) failf(err error) {
	if c.fault == nil {
		c.fault = err
	}
}

func (c *Circuit) takeFault() error {
	err := c.fault
	c.fault = nil
	c.dirty = c.dirty[:0]
	c.deferred = c.deferred[:0]
	return err
}

func (c *Circuit) newPass() {
	c.pass++
	if c.pass == 0 {
		for i := range c.stamp {
			c.stamp[i] = 0
		}
		c.pass = 1
	}
}

func (c *Circuit) stage(id int, v uint64) {
	c.next[id] = v
	if c.stamp[id] != c.pass {
		c.stamp[id] = c.pass
		c.dirty = append(c.dirty, id)
	}
}

// commit copies staged values into the current frame and returns the number
// of slots that changed.
//
func (c *Circuit) commit() int {
	c.last = c.last[:0]
	for _, id := range c.dirty {
		if c.next[id] != c.cur[id] {
			c.cur[id] = c.next[id]
			c.last = append(c.last, id)
			c.touch(id)
		}
	}
	c.dirty = c.dirty[:0]
	return len(c.last)
}

func (c *Circuit) touch(id int) {
	if !c.mark[id] {
		c.mark[id] = true
		c.changed = append(c.changed, id)
	}
}

// drain calls fn for every slot changed since the last drain, in arena order
// of first change.
//
func (c *Circuit) drain(fn func(id int)) {
	for _, id := range c.changed {
		c.mark[id] = false
		if fn != nil {
			fn(id)
		}
	}
	c.changed = c.changed[:0]
}

// pokable returns an error if s cannot be written by the environment. Only
// the inputs of the root block can be poked.
//
func (c *Circuit) pokable(s *Signal) error {
	if err := c.check(s); err != nil {
		return err
	}
	if s.owner != c.root || s.dir != In && s.dir != InOut {
		return &ScopeError{Block: c.root.Path(), Path: s.Path(), Msg: "cannot poke non input signal"}
	}
	return nil
}

// poke writes v directly into the current frame of s.
//
func (c *Circuit) poke(id int, v uint64) {
	v &= Mask(c.sigs[id].width)
	if c.cur[id] != v {
		c.cur[id] = v
		c.next[id] = v
		c.touch(id)
	}
}

// Snapshot returns the current value of every signal, in arena order.
//
func (c *Circuit) Snapshot() Snapshot {
	s := make(Snapshot, len(c.sigs))
	for i, sig := range c.sigs {
		s[i] = SignalValue{Path: sig.Path(), Width: sig.width, Value: c.cur[i]}
	}
	return s
}

func (c *Circuit) paths(ids []int) []string {
	p := make([]string, len(ids))
	for i, id := range ids {
		p[i] = c.sigs[id].Path()
	}
	return p
}

// fire runs the registers and edge funcs of the given domains. All of them
// read the current frame; their results are committed together.
//
func (c *Circuit) fire(ds []int) error {
	c.newPass()
	c.loads = c.loads[:0]
	for _, di := range ds {
		d := &c.domains[di]
		for _, ri := range d.regs {
			r := &c.regs[ri]
			c.loads = append(c.loads, load{r.q, r.d.eval(c)})
		}
		for _, fi := range d.funcs {
			e := &c.seq[fi]
			c.writer = e
			e.fn(c)
		}
	}
	c.writer = nil
	if c.fault != nil {
		return c.takeFault()
	}
	for _, l := range c.loads {
		c.stage(l.id, l.v)
	}
	c.commit()
	for _, fn := range c.deferred {
		fn()
	}
	c.deferred = c.deferred[:0]
	return nil
}

// rising returns the domains whose clock rose since the previous call.
//
func (c *Circuit) rising() []int {
	var r []int
	for i := range c.domains {
		d := &c.domains[i]
		v := c.cur[d.clk] & 1
		if v == 1 && d.last == 0 {
			r = append(r, i)
		}
		d.last = v
	}
	return r
}

// resetEdges forgets previous clock values so that no edge is seen on the
// first settle.
//
func (c *Circuit) resetEdges() {
	for i := range c.domains {
		c.domains[i].last = c.cur[c.domains[i].clk] & 1
	}
}

func (c *Circuit) check(s *Signal) error {
	if s.id < 0 || s.id >= len(c.sigs) || c.sigs[s.id] != s {
		return errors.Errorf("signal %s does not belong to circuit %s", s.Path(), c.root.Path())
	}
	return nil
}
