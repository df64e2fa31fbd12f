// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

import (
	"log/slog"
	"sort"

	"github.com/pkg/errors"
)

type clock struct {
	id     int
	period uint64
	next   uint64
}

type counter struct {
	last uint64
	n    uint64
}

// Kernel drives a circuit through logical time.
//
// Time is a counter of abstract units. An instant is only processed when
// something happens: a clock toggles or pending pokes must be applied. At
// every instant, the kernel applies pokes and clock toggles, settles the
// circuit, then fires the registers and edge funcs of every clock that rose,
// and settles again. Clocks derived from registers are handled by repeating
// the last step until no clock rises.
//
type Kernel struct {
	c       *Circuit
	log     *slog.Logger
	tracer  Tracer
	clocks  []clock
	pokes   []load
	edges   map[int]*counter
	order   []int // counter slots, sorted
	traced  []uint64
	changes []Change
	now     uint64
	started bool
}

// NewKernel resets c and returns a new kernel for it, at time 0. A circuit
// must only be driven by one kernel at a time.
//
func NewKernel(c *Circuit, cfg Config) *Kernel {
	c.Reset()
	c.SetSettleLimit(cfg.SettleLimit)
	k := &Kernel{
		c:      c,
		log:    cfg.logger(),
		tracer: cfg.Tracer,
		edges:  make(map[int]*counter),
	}
	for i := range c.domains {
		k.counter(c.domains[i].clk)
	}
	return k
}

// Circuit returns the circuit driven by k.
//
func (k *Kernel) Circuit() *Circuit { return k.c }

// Now returns the current logical time.
//
func (k *Kernel) Now() uint64 { return k.now }

// AddClock makes the 1 bit root input sig a clock that toggles every period
// time units, starting low. Its first rising edge is at t = now + period.
//
func (k *Kernel) AddClock(period uint64, sig *Signal) error {
	if err := k.c.pokable(sig); err != nil {
		return err
	}
	switch {
	case period == 0:
		return errors.Errorf("clock %s: zero period", sig.Path())
	case sig.width != 1:
		return &WidthError{Path: sig.Path(), Msg: "clock must be 1 bit wide"}
	}
	for _, ck := range k.clocks {
		if ck.id == sig.id {
			return errors.Errorf("clock %s: already added", sig.Path())
		}
	}
	k.clocks = append(k.clocks, clock{id: sig.id, period: period, next: k.now + period})
	k.pokes = append(k.pokes, load{sig.id, 0})
	k.counter(sig.id)
	return nil
}

// Poke schedules sig to be set to v at the next instant. Only the inputs of
// the root block can be poked.
//
func (k *Kernel) Poke(sig *Signal, v uint64) error {
	if err := k.c.pokable(sig); err != nil {
		return err
	}
	k.pokes = append(k.pokes, load{sig.id, v})
	return nil
}

// Edges returns the number of rising edges of clk since it was first
// observed: clocks and register clocks are observed from the start, other
// signals from the first call.
//
func (k *Kernel) Edges(clk *Signal) uint64 {
	if k.c.check(clk) != nil {
		return 0
	}
	return k.counter(clk.id).n
}

func (k *Kernel) counter(id int) *counter {
	ct, ok := k.edges[id]
	if !ok {
		ct = &counter{last: k.c.cur[id] & 1}
		k.edges[id] = ct
		i := sort.SearchInts(k.order, id)
		k.order = append(k.order, 0)
		copy(k.order[i+1:], k.order[i:])
		k.order[i] = id
	}
	return ct
}

func (k *Kernel) count() {
	for _, id := range k.order {
		ct := k.edges[id]
		v := k.c.cur[id] & 1
		if v == 1 && ct.last == 0 {
			ct.n++
		}
		ct.last = v
	}
}

// NextEvent returns the time of the next instant to process. It returns
// false if nothing is scheduled.
//
func (k *Kernel) NextEvent() (uint64, bool) {
	if !k.started || len(k.pokes) > 0 {
		if !k.started {
			return k.now, true
		}
		return k.now + 1, true
	}
	var t uint64
	ok := false
	for _, ck := range k.clocks {
		if !ok || ck.next < t {
			t, ok = ck.next, true
		}
	}
	return t, ok
}

// Step processes the next instant.
//
func (k *Kernel) Step() error {
	t, ok := k.NextEvent()
	if !ok {
		return nil
	}
	return k.instant(t)
}

// Advance processes all instants up to now+d, then sets the time to now+d.
//
func (k *Kernel) Advance(d uint64) error {
	return k.runTo(k.now + d)
}

func (k *Kernel) runTo(target uint64) error {
	for {
		t, ok := k.NextEvent()
		if !ok || t > target {
			break
		}
		if err := k.instant(t); err != nil {
			return err
		}
	}
	if target > k.now {
		k.now = target
		k.c.now = target
	}
	return nil
}

// start settles the initial state of the circuit. No edge is seen at start.
//
func (k *Kernel) start() error {
	k.started = true
	k.c.now = k.now
	k.applyPokes()
	if err := k.c.Settle(); err != nil {
		return err
	}
	k.c.resetEdges()
	for _, id := range k.order {
		k.edges[id].last = k.c.cur[id] & 1
	}
	k.c.drain(nil)
	k.traced = append(k.traced[:0], k.c.cur...)
	k.log.Debug("kernel start", "signals", len(k.c.sigs), "clocks", len(k.clocks), "domains", len(k.c.domains))
	if k.tracer != nil {
		return errors.Wrap(k.tracer.TraceStart(k.c), "trace start")
	}
	return nil
}

func (k *Kernel) applyPokes() {
	for _, p := range k.pokes {
		k.c.poke(p.id, p.v)
	}
	k.pokes = k.pokes[:0]
}

// instant processes time t. t must not be before the next event.
//
func (k *Kernel) instant(t uint64) error {
	if !k.started {
		k.now = t
		return k.start()
	}
	c := k.c
	k.now, c.now = t, t
	k.applyPokes()
	for i := range k.clocks {
		ck := &k.clocks[i]
		if ck.next == t {
			c.poke(ck.id, c.cur[ck.id]^1)
			ck.next += ck.period
		}
	}
	if err := c.Settle(); err != nil {
		return err
	}
	for i := 0; ; i++ {
		k.count()
		ds := c.rising()
		if len(ds) == 0 {
			break
		}
		if i >= c.limit {
			ids := make([]int, len(ds))
			for j, d := range ds {
				ids[j] = c.domains[d].clk
			}
			return &CombinationalCycleError{Paths: c.paths(ids), Iterations: i, Time: t}
		}
		if err := c.fire(ds); err != nil {
			return err
		}
		if err := c.Settle(); err != nil {
			return err
		}
	}
	return k.flush(t)
}

// flush reports the changes of the instant to the tracer.
//
func (k *Kernel) flush(t uint64) error {
	k.changes = k.changes[:0]
	k.c.drain(func(id int) {
		if v := k.c.cur[id]; v != k.traced[id] {
			k.traced[id] = v
			k.changes = append(k.changes, Change{k.c.sigs[id], v})
		}
	})
	if k.tracer == nil || len(k.changes) == 0 {
		return nil
	}
	sort.Slice(k.changes, func(i, j int) bool { return k.changes[i].Signal.id < k.changes[j].Signal.id })
	return errors.Wrapf(k.tracer.TraceChanges(t, k.changes), "trace at t=%d", t)
}
