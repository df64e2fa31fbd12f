// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"sort"

	"github.com/db47h/hdl"
	"github.com/db47h/hdl/hwlib"
	"github.com/pkg/errors"
)

// design is a demo circuit: a root block, its clock input and an optional
// testbench driving the other inputs.
//
type design struct {
	root  *hdl.Block
	clock *hdl.Signal
	bench hdl.Task
}

var designs = map[string]func() *design{
	"counter": func() *design {
		cnt := hwlib.NewCounter("counter", 8)
		top := hwlib.TopWrap("top", cnt.Block)
		clk, en, q := top.Signal("clock"), top.Signal("enable"), top.Signal("count")
		return &design{top, clk,
			hdl.NewScript().
				Poke(en, 1).
				Cycles(clk, 100).
				Poke(en, 0).
				Log("counter paused").
				Cycles(clk, 20).
				Expect(q, 100)}
	},
	"pwm": func() *design {
		top := hdl.NewBlock("top")
		clk := top.ClockIn("clock")
		level := top.In("level", 8)
		p := hwlib.PWM("pwm", 8)
		top.Add(p.Block)
		top.Assign(p.Clock, hdl.Sig(clk))
		top.Assign(p.Enable, hdl.Bool(true))
		top.Assign(p.Threshold, hdl.Sig(level))
		top.Assign(top.Out("active", 1), hdl.Sig(p.Active))
		s := hdl.NewScript()
		for _, l := range []uint64{0x20, 0x80, 0xe0} {
			s.Poke(level, l).Cycles(clk, 512).Log("level done", "level", l)
		}
		return &design{top, clk, s}
	},
	"ram": func() *design {
		m := hwlib.RAM("ram", 4, 8)
		top := hwlib.TopWrap("top", m.Block)
		clk := top.Signal("clock")
		wa, wd, we := top.Signal("write_addr"), top.Signal("write_data"), top.Signal("write_enable")
		ra, rd := top.Signal("read_addr"), top.Signal("read_data")
		s := hdl.NewScript().Poke(we, 1)
		for i := uint64(0); i < 16; i++ {
			s.Poke(wa, i).Poke(wd, i*i).Cycles(clk, 1)
		}
		s.Poke(we, 0)
		for i := uint64(0); i < 16; i++ {
			s.Poke(ra, i).Cycles(clk, 1).Expect(rd, i*i&0xff)
		}
		return &design{top, clk, s}
	},
}

func designNames() []string {
	ns := make([]string, 0, len(designs))
	for n := range designs {
		ns = append(ns, n)
	}
	sort.Strings(ns)
	return ns
}

func lookupDesign(name string) (*design, error) {
	f, ok := designs[name]
	if !ok {
		return nil, errors.Errorf("unknown design %q, expected one of %v", name, designNames())
	}
	return f(), nil
}
