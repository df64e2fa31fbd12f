// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

import (
	"github.com/pkg/errors"
)

type stepKind int

const (
	stepPoke stepKind = iota
	stepDelay
	stepCycles
	stepWatch
	stepCheck
	stepExpect
	stepDo
	stepRepeat
	stepLog
)

type step struct {
	kind  stepKind
	sig   *Signal
	v     uint64
	pred  func(*Bench) bool
	limit uint64
	fn    func(*Bench) error
	msg   string
	args  []any
	body  []step
}

type frame struct {
	steps []step
	pc    int
	left  uint64
}

// Script is a Task built from a sequence of steps, like:
//
//	s := hdl.NewScript().
//		Poke(top.In, 0x45).
//		Delay(1).
//		Expect(top.Out, 0x45)
//
// A script can be run several times: it restarts from its first step after
// every Reset.
//
type Script struct {
	steps  []step
	frames []frame
	done   bool
}

// NewScript returns an empty script.
//
func NewScript() *Script { return &Script{} }

func (s *Script) add(st step) *Script {
	s.steps = append(s.steps, st)
	return s
}

// Poke adds a step that schedules sig to be set to v at the next instant.
//
func (s *Script) Poke(sig *Signal, v uint64) *Script {
	return s.add(step{kind: stepPoke, sig: sig, v: v})
}

// Delay adds a step that waits for d time units.
//
func (s *Script) Delay(d uint64) *Script { return s.add(step{kind: stepDelay, v: d}) }

// Cycles adds a step that waits for n rising edges of clk.
//
func (s *Script) Cycles(clk *Signal, n uint64) *Script {
	return s.add(step{kind: stepCycles, sig: clk, v: n})
}

// Watch adds a step that waits for pred to be true.
//
func (s *Script) Watch(pred func(*Bench) bool) *Script {
	return s.add(step{kind: stepWatch, pred: pred})
}

// WatchWithin adds a step that waits at most limit time units for pred to be
// true.
//
func (s *Script) WatchWithin(pred func(*Bench) bool, limit uint64) *Script {
	return s.add(step{kind: stepWatch, pred: pred, limit: limit})
}

// Check adds a step that fails the task with msg if pred is false.
//
func (s *Script) Check(pred func(*Bench) bool, msg string) *Script {
	return s.add(step{kind: stepCheck, pred: pred, msg: msg})
}

// Expect adds a step that fails the task if sig does not have value v.
//
func (s *Script) Expect(sig *Signal, v uint64) *Script {
	return s.add(step{kind: stepExpect, sig: sig, v: v})
}

// Do adds a step that calls fn. An error returned by fn fails the task.
//
func (s *Script) Do(fn func(*Bench) error) *Script {
	return s.add(step{kind: stepDo, fn: fn})
}

// Repeat adds n repetitions of the steps added to the script passed to body.
//
func (s *Script) Repeat(n uint64, body func(*Script)) *Script {
	r := NewScript()
	body(r)
	return s.add(step{kind: stepRepeat, v: n, body: r.steps})
}

// Log adds a step that logs msg at info level.
//
func (s *Script) Log(msg string, args ...any) *Script {
	return s.add(step{kind: stepLog, msg: msg, args: args})
}

// Reset implements Resetter.
//
func (s *Script) Reset() {
	s.frames = s.frames[:0]
	s.done = false
}

// Resume implements Task.
//
func (s *Script) Resume(b *Bench) (Wait, error) {
	if s.done {
		return Done(), nil
	}
	if len(s.frames) == 0 {
		s.frames = append(s.frames, frame{steps: s.steps, left: 1})
	}
	for len(s.frames) > 0 {
		f := &s.frames[len(s.frames)-1]
		if f.pc == len(f.steps) {
			if f.left--; f.left > 0 {
				f.pc = 0
				continue
			}
			s.frames = s.frames[:len(s.frames)-1]
			continue
		}
		st := &f.steps[f.pc]
		f.pc++
		switch st.kind {
		case stepPoke:
			if err := b.Poke(st.sig, st.v); err != nil {
				return Done(), err
			}
		case stepDelay:
			return Delay(st.v), nil
		case stepCycles:
			return Cycles(st.sig, st.v), nil
		case stepWatch:
			if st.limit > 0 {
				return UntilWithin(st.pred, st.limit), nil
			}
			return Until(st.pred), nil
		case stepCheck:
			if !st.pred(b) {
				return Done(), errors.Errorf("check failed: %s", st.msg)
			}
		case stepExpect:
			if v := b.Get(st.sig); v != st.v {
				return Done(), errors.Errorf("%s = %#x, expected %#x", st.sig.Path(), v, st.v)
			}
		case stepDo:
			if err := st.fn(b); err != nil {
				return Done(), err
			}
		case stepRepeat:
			if st.v > 0 && len(st.body) > 0 {
				s.frames = append(s.frames, frame{steps: st.body, left: st.v})
			}
		case stepLog:
			b.Logger().Info(st.msg, st.args...)
		}
	}
	s.done = true
	return Done(), nil
}
