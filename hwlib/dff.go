// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import "github.com/db47h/hdl"

// FlipFlop is a w bits data flip flop.
//
type FlipFlop struct {
	*hdl.Block
	Clock *hdl.Signal `hdl:"clock"`
	D     *hdl.Signal `hdl:"in,w"`
	Q     *hdl.Signal `hdl:"out,w"`
}

// DFF returns a w bits clocked data flip flop.
//
//	Inputs: clock, d[w]
//	Outputs: q[w]
//	Function: q(t) = d(t-1) // where t is the current clock cycle.
//
func DFF(name string, w int) *FlipFlop {
	f := &FlipFlop{Block: hdl.NewBlock(name)}
	hdl.Ports(f.Block, f, w)
	f.Register(f.Clock, f.Q, hdl.Sig(f.D), 0)
	return f
}

// Counter is a w bits counter.
//
type Counter struct {
	*hdl.Block
	Clock  *hdl.Signal `hdl:"clock"`
	Enable *hdl.Signal `hdl:"in"`
	Count  *hdl.Signal `hdl:"out,w"`
}

// NewCounter returns a w bits counter. The counter increments on every rising
// clock edge while enable is high, wrapping around to 0.
//
//	Inputs: clock, enable
//	Outputs: count[w]
//	Function: if enable { count(t) = count(t-1) + 1 }
//
func NewCounter(name string, w int) *Counter {
	c := &Counter{Block: hdl.NewBlock(name)}
	hdl.Ports(c.Block, c, w)
	q := hdl.Sig(c.Count)
	c.Register(c.Clock, c.Count, hdl.Mux(hdl.Sig(c.Enable), q, hdl.Add(q, hdl.Const(w, 1))), 0)
	return c
}
