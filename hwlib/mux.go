// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import "github.com/db47h/hdl"

// Multiplexer is a two way multiplexer.
//
type Multiplexer struct {
	*hdl.Block
	A, B *hdl.Signal `hdl:"in,w"`
	Sel  *hdl.Signal `hdl:"in"`
	Out  *hdl.Signal `hdl:"out,w"`
}

// Mux returns a w bits multiplexer.
//
//	Inputs: a[w], b[w], sel
//	Outputs: out[w]
//	Function: if sel == 0 { out = a } else { out = b }
//
func Mux(name string, w int) *Multiplexer {
	m := &Multiplexer{Block: hdl.NewBlock(name)}
	hdl.Ports(m.Block, m, w)
	m.Assign(m.Out, hdl.Mux(hdl.Sig(m.Sel), hdl.Sig(m.A), hdl.Sig(m.B)))
	return m
}

// Demultiplexer is a two way demultiplexer.
//
type Demultiplexer struct {
	*hdl.Block
	In   *hdl.Signal `hdl:"in,w"`
	Sel  *hdl.Signal `hdl:"in"`
	A, B *hdl.Signal `hdl:"out,w"`
}

// DMux returns a w bits demultiplexer.
//
//	Inputs: in[w], sel
//	Outputs: a[w], b[w]
//	Function: if sel == 0 { a = in; b = 0 } else { a = 0; b = in }
//
func DMux(name string, w int) *Demultiplexer {
	d := &Demultiplexer{Block: hdl.NewBlock(name)}
	hdl.Ports(d.Block, d, w)
	zero := hdl.Const(w, 0)
	d.Assign(d.A, hdl.Mux(hdl.Sig(d.Sel), hdl.Sig(d.In), zero))
	d.Assign(d.B, hdl.Mux(hdl.Sig(d.Sel), zero, hdl.Sig(d.In)))
	return d
}
