// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hwtest provides utility functions for testing circuits.
//
package hwtest

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/db47h/hdl"
	"github.com/db47h/hdl/internal/vlog"
	"github.com/db47h/hdl/verilog"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"
)

// Stimulus returns the values to poke into root inputs before the given
// clock cycle. It may return nil.
//
type Stimulus func(cycle int) map[*hdl.Signal]uint64

// netName returns the name of s in the flattened netlist of root.
//
func netName(root *hdl.Block, s *hdl.Signal) string {
	return strings.TrimPrefix(s.Path(), root.Path()+".")
}

// CompareNetlist simulates root and its Verilog rendering side by side for
// the given number of cycles of the root input clk, and checks that every
// signal present in both has the same value after every clock half period.
//
func CompareNetlist(t testing.TB, root *hdl.Block, clk *hdl.Signal, cycles int, stim Stimulus) {
	t.Helper()

	c, err := hdl.Elaborate(root)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	src, err := verilog.Emit(root)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	d, err := vlog.Parse(src)
	if err != nil {
		t.Fatalf("%+v\n%s", err, src)
	}
	vm, err := vlog.New(d, verilog.ModuleName(root))
	if err != nil {
		t.Fatalf("%+v\n%s", err, src)
	}
	k := hdl.NewKernel(c, hdl.Config{})

	known := make(map[string]bool)
	for _, n := range vm.Names() {
		known[n] = true
	}
	var sigs []*hdl.Signal
	for _, s := range c.Signals() {
		if known[netName(root, s)] {
			sigs = append(sigs, s)
		} else if s.Owner() == root {
			t.Fatalf("port %s missing from netlist", s.Path())
		}
	}

	poke := func(s *hdl.Signal, v uint64) {
		if err := k.Poke(s, v); err != nil {
			t.Fatalf("%+v", err)
		}
		if err := vm.Set(netName(root, s), v); err != nil {
			t.Fatalf("%+v", err)
		}
	}
	step := func(cycle int, phase string) {
		if err := k.Step(); err != nil {
			t.Fatalf("cycle %d %s: simulator: %+v", cycle, phase, err)
		}
		if err := vm.Settle(); err != nil {
			t.Fatalf("cycle %d %s: netlist: %+v", cycle, phase, err)
		}
		var diffs []string
		for _, s := range sigs {
			got, _ := vm.Get(netName(root, s))
			if exp := c.Get(s); got != exp {
				diffs = append(diffs, fmt.Sprintf("%s: simulator %#x, netlist %#x", s.Path(), exp, got))
			}
		}
		if len(diffs) > 0 {
			sort.Strings(diffs)
			t.Fatalf("cycle %d %s: mismatch at t=%d:\n%s", cycle, phase, k.Now(), strings.Join(diffs, "\n"))
		}
	}

	for cycle := 0; cycle < cycles; cycle++ {
		poke(clk, 0)
		if stim != nil {
			in := stim(cycle)
			ins := make([]*hdl.Signal, 0, len(in))
			for s := range in {
				ins = append(ins, s)
			}
			sort.Slice(ins, func(i, j int) bool { return ins[i].Path() < ins[j].Path() })
			for _, s := range ins {
				poke(s, in[s])
			}
		}
		step(cycle, "low")
		poke(clk, 1)
		step(cycle, "high")
	}
}

// Deterministic calls run n times concurrently, each with its own recorder,
// and checks that all runs record the same events. run must build its own
// circuit and trace it with the given tracer.
//
func Deterministic(t testing.TB, n int, run func(tr hdl.Tracer) error) {
	t.Helper()
	recs := make([]*hdl.Recorder, n)
	var g errgroup.Group
	for i := range recs {
		rec := &hdl.Recorder{}
		recs[i] = rec
		g.Go(func() error { return run(rec) })
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("%+v", err)
	}
	for i := 1; i < n; i++ {
		if diff := cmp.Diff(recs[0].Events, recs[i].Events); diff != "" {
			t.Fatalf("run %d differs from run 0 (-run0 +run%d):\n%s", i, i, diff)
		}
	}
}
