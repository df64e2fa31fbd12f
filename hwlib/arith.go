// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import "github.com/db47h/hdl"

// Adder is a w bits adder with carry in and carry out.
//
type Adder struct {
	*hdl.Block
	A, B *hdl.Signal `hdl:"in,w"`
	Cin  *hdl.Signal `hdl:"in"`
	Sum  *hdl.Signal `hdl:"out,w"`
	Cout *hdl.Signal `hdl:"out"`
}

// NewAdder returns a w bits adder. w must be lower than 64.
//
//	Inputs: a[w], b[w], cin
//	Outputs: sum[w], cout
//	Function: sum = lsb(a + b + cin)
//	          cout = msb(a + b + cin)
//
func NewAdder(name string, w int) *Adder {
	a := &Adder{Block: hdl.NewBlock(name)}
	hdl.Ports(a.Block, a, w)
	zero := hdl.Const(1, 0)
	full := a.Local("full", w+1)
	a.Assign(full, hdl.Add(
		hdl.Add(hdl.Concat(zero, hdl.Sig(a.A)), hdl.Concat(zero, hdl.Sig(a.B))),
		hdl.Concat(hdl.Const(w, 0), hdl.Sig(a.Cin))))
	a.Assign(a.Sum, hdl.Slice(hdl.Sig(full), w-1, 0))
	a.Assign(a.Cout, hdl.Bit(hdl.Sig(full), w))
	return a
}

// HalfAdder returns a half adder.
//
//	Inputs: a, b
//	Outputs: s, c
//	Function: s = lsb(a + b)
//	          c = msb(a + b)
//
func HalfAdder(name string) *hdl.Block {
	b := hdl.NewBlock(name)
	x, y := hdl.Sig(b.In("a", 1)), hdl.Sig(b.In("b", 1))
	b.Assign(b.Out("s", 1), hdl.Xor(x, y))
	b.Assign(b.Out("c", 1), hdl.And(x, y))
	return b
}

// Inc returns a w bits incrementer.
//
//	Inputs: in[w]
//	Outputs: out[w]
//	Function: out = in + 1
//
func Inc(name string, w int) *Unary {
	u := &Unary{Block: hdl.NewBlock(name)}
	hdl.Ports(u.Block, u, w)
	u.Assign(u.Out, hdl.Add(hdl.Sig(u.In), hdl.Const(w, 1)))
	return u
}
