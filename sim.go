// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

import (
	"context"
	"log/slog"
	"math"
	"strconv"

	"github.com/pkg/errors"
)

// A Task is a testbench. Resume runs it until it must wait for something, as
// described by the returned Wait, or until it is done.
//
// Tasks are run cooperatively, one at a time, in a single goroutine.
//
type Task interface {
	Resume(b *Bench) (Wait, error)
}

// TaskFunc adapts a function to the Task interface.
//
type TaskFunc func(b *Bench) (Wait, error)

// Resume implements Task.
//
func (f TaskFunc) Resume(b *Bench) (Wait, error) { return f(b) }

// Tasks implementing Resetter are reset at the start of every run.
//
type Resetter interface {
	Reset()
}

type waitKind int

const (
	waitDone waitKind = iota
	waitDelay
	waitCycles
	waitUntil
)

// Wait describes what a task waits for.
//
type Wait struct {
	kind  waitKind
	d     uint64
	clk   *Signal
	n     uint64
	pred  func(*Bench) bool
	limit uint64
}

// Done ends the task.
//
func Done() Wait { return Wait{} }

// Delay waits for d time units. Delay(0) resumes the task immediately.
//
func Delay(d uint64) Wait { return Wait{kind: waitDelay, d: d} }

// Cycles waits for n rising edges of clk.
//
func Cycles(clk *Signal, n uint64) Wait { return Wait{kind: waitCycles, clk: clk, n: n} }

// Until waits for pred to be true. pred is polled once per instant. The wait
// fails after Config.WatchLimit time units, if set.
//
func Until(pred func(*Bench) bool) Wait { return Wait{kind: waitUntil, pred: pred} }

// UntilWithin waits for pred to be true, failing with a *WatchTimeoutError
// after limit time units.
//
func UntilWithin(pred func(*Bench) bool, limit uint64) Wait {
	return Wait{kind: waitUntil, pred: pred, limit: limit}
}

// High returns a predicate true when s is not zero.
//
func High(s *Signal) func(*Bench) bool {
	return func(b *Bench) bool { return b.Get(s) != 0 }
}

// Low returns a predicate true when s is zero.
//
func Low(s *Signal) func(*Bench) bool {
	return func(b *Bench) bool { return b.Get(s) == 0 }
}

// Equals returns a predicate true when s has value v.
//
func Equals(s *Signal, v uint64) func(*Bench) bool {
	return func(b *Bench) bool { return b.Get(s) == v }
}

type taskState struct {
	name   string
	task   Task
	wait   Wait
	since  uint64
	wake   uint64 // delay end or watch deadline
	target uint64 // edge count
	done   bool
	bench  *Bench
}

func (ts *taskState) timed() bool {
	return ts.wait.kind == waitDelay || ts.wait.kind == waitUntil && ts.wait.limit > 0
}

// Bench is the view of the simulation given to a running task.
//
type Bench struct {
	k   *Kernel
	ts  *taskState
	log *slog.Logger
}

// Now returns the current logical time.
//
func (b *Bench) Now() uint64 { return b.k.now }

// Get returns the current value of s.
//
func (b *Bench) Get(s *Signal) uint64 { return b.k.c.Get(s) }

// Poke schedules s to be set to v at the next instant.
//
func (b *Bench) Poke(s *Signal, v uint64) error { return b.k.Poke(s, v) }

// Edges returns the number of rising edges of clk.
//
func (b *Bench) Edges(clk *Signal) uint64 { return b.k.Edges(clk) }

// Circuit returns the simulated circuit.
//
func (b *Bench) Circuit() *Circuit { return b.k.c }

// Task returns the name of the running task.
//
func (b *Bench) Task() string { return b.ts.name }

// Logger returns the simulation logger, with the task name attached.
//
func (b *Bench) Logger() *slog.Logger { return b.log }

// Result is the outcome of a successful run.
//
type Result struct {
	Time     uint64
	Snapshot Snapshot
}

type simClock struct {
	period uint64
	sig    *Signal
}

type bench struct {
	name string
	task Task
}

// Simulation runs testbenches against a circuit.
//
// A simulation can be run several times, against different circuits
// elaborated from the same tree. Tasks implementing Resetter are reset before
// every run.
//
type Simulation struct {
	cfg     Config
	clocks  []simClock
	benches []bench
}

// NewSimulation returns a new simulation.
//
func NewSimulation(cfg Config) *Simulation {
	return &Simulation{cfg: cfg}
}

// AddClock adds a free running clock driving the root input sig. See
// Kernel.AddClock.
//
func (s *Simulation) AddClock(period uint64, sig *Signal) {
	s.clocks = append(s.clocks, simClock{period, sig})
}

// AddTestbench adds a task. Tasks run in the order they are added.
//
func (s *Simulation) AddTestbench(name string, t Task) {
	s.benches = append(s.benches, bench{name, t})
}

// Run resets c, then simulates it from time 0 until all testbenches are done,
// or until maxTime. Without testbenches, Run runs the clocks until maxTime.
//
// A testbench that panics is stopped and reported as a *TaskError.
//
// Errors are returned as a *SimulationError holding the last signal values.
// The wrapped error is one of *TaskError, *WatchTimeoutError,
// *CombinationalCycleError, ErrTimeLimit or the context error.
//
func (s *Simulation) Run(ctx context.Context, c *Circuit, maxTime uint64) (*Result, error) {
	log := s.cfg.logger()
	k := NewKernel(c, s.cfg)
	fail := func(err error) (*Result, error) {
		log.Debug("simulation failed", "time", k.now, "err", err)
		return nil, &SimulationError{Time: k.now, Err: err, Snapshot: c.Snapshot()}
	}
	for _, ck := range s.clocks {
		if err := k.AddClock(ck.period, ck.sig); err != nil {
			return fail(err)
		}
	}
	tasks := make([]*taskState, len(s.benches))
	for i, b := range s.benches {
		if r, ok := b.task.(Resetter); ok {
			r.Reset()
		}
		ts := &taskState{name: b.name, task: b.task}
		ts.bench = &Bench{k: k, ts: ts, log: log.With("task", b.name)}
		tasks[i] = ts
	}
	log.Debug("simulation start", "root", c.root.Path(), "tasks", len(tasks), "max_time", maxTime)

	if err := k.Step(); err != nil {
		return fail(err)
	}
	if len(tasks) == 0 {
		if err := k.runTo(maxTime); err != nil {
			return fail(err)
		}
		return s.done(log, k)
	}

	for {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		pending := 0
		for _, ts := range tasks {
			if ts.done {
				continue
			}
			if err := s.poll(k, ts, log); err != nil {
				return fail(err)
			}
			if !ts.done {
				pending++
			}
		}
		if pending == 0 {
			return s.done(log, k)
		}

		next, ok := k.NextEvent()
		for _, ts := range tasks {
			if !ts.done && ts.timed() && (!ok || ts.wake < next) {
				next, ok = ts.wake, true
			}
		}
		if !ok || next > maxTime {
			if err := k.runTo(maxTime); err != nil {
				return fail(err)
			}
			return fail(s.timeout(tasks, k.now))
		}
		if err := k.runTo(next); err != nil {
			return fail(err)
		}
	}
}

func (s *Simulation) done(log *slog.Logger, k *Kernel) (*Result, error) {
	log.Debug("simulation done", "time", k.now)
	return &Result{Time: k.now, Snapshot: k.c.Snapshot()}, nil
}

// timeout returns the error for tasks still pending at the time limit.
//
func (s *Simulation) timeout(tasks []*taskState, now uint64) error {
	for _, ts := range tasks {
		if !ts.done && ts.wait.kind == waitUntil {
			return &WatchTimeoutError{Task: ts.name, Since: ts.since, Time: now}
		}
	}
	var names string
	for _, ts := range tasks {
		if !ts.done {
			if names != "" {
				names += ", "
			}
			names += ts.name
		}
	}
	return errors.Wrap(ErrTimeLimit, "at t="+strconv.FormatUint(now, 10)+", pending testbenches: "+names)
}

// ready reports whether ts can be resumed at the current instant.
//
func (s *Simulation) ready(k *Kernel, ts *taskState) (bool, error) {
	switch ts.wait.kind {
	case waitDelay:
		return k.now >= ts.wake, nil
	case waitCycles:
		return k.Edges(ts.wait.clk) >= ts.target, nil
	case waitUntil:
		if ts.wait.pred(ts.bench) {
			return true, nil
		}
		if ts.wait.limit > 0 && k.now >= ts.wake {
			return false, &WatchTimeoutError{Task: ts.name, Since: ts.since, Time: k.now}
		}
		return false, nil
	}
	// a new task
	return true, nil
}

// poll resumes ts for as long as it does not block.
//
func (s *Simulation) poll(k *Kernel, ts *taskState, log *slog.Logger) error {
	for {
		ok, err := s.ready(k, ts)
		if err != nil {
			log.Debug("watch timeout", "task", ts.name, "since", ts.since, "time", k.now)
			return err
		}
		if !ok {
			return nil
		}
		w, err := resume(ts)
		if err != nil {
			return &TaskError{Task: ts.name, Time: k.now, Err: err}
		}
		ts.wait = w
		ts.since = k.now
		switch w.kind {
		case waitDone:
			ts.done = true
			log.Debug("testbench done", "task", ts.name, "time", k.now)
			return nil
		case waitDelay:
			ts.wake = after(k.now, w.d)
		case waitCycles:
			if err := k.c.check(w.clk); err != nil {
				return &TaskError{Task: ts.name, Time: k.now, Err: err}
			}
			ts.target = k.Edges(w.clk) + w.n
		case waitUntil:
			if w.pred == nil {
				return &TaskError{Task: ts.name, Time: k.now, Err: errors.New("nil predicate")}
			}
			if ts.wait.limit == 0 {
				ts.wait.limit = s.cfg.WatchLimit
			}
			ts.wake = after(k.now, ts.wait.limit)
		}
	}
}

// resume runs ts until it blocks, turning panics into errors.
//
func resume(ts *taskState) (w Wait, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()
	return ts.task.Resume(ts.bench)
}

// after returns now+d, saturated at the maximum time.
//
func after(now, d uint64) uint64 {
	if d > math.MaxUint64-now {
		return math.MaxUint64
	}
	return now + d
}
