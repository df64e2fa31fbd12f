// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hwlib provides a library of reusable blocks for hdl.
//
// Copyright 2018 Denis Bernard <db047h@gmail.com>
//
// This package is licensed under the MIT license. See license text in the LICENSE file.
//
package hwlib

import (
	"github.com/db47h/hdl"
)

// Unary is a block with one input and one output of the same width.
//
type Unary struct {
	*hdl.Block
	In  *hdl.Signal `hdl:"in,w"`
	Out *hdl.Signal `hdl:"out,w"`
}

// Not returns a w bits NOT gate.
//
//	Inputs: in[w]
//	Outputs: out[w]
//	Function: out = ^in
//
func Not(name string, w int) *Unary {
	g := &Unary{Block: hdl.NewBlock(name)}
	hdl.Ports(g.Block, g, w)
	g.Assign(g.Out, hdl.Not(hdl.Sig(g.In)))
	return g
}

// Gate is a two inputs logic gate.
//
type Gate struct {
	*hdl.Block
	A, B *hdl.Signal `hdl:"in,w"`
	Out  *hdl.Signal `hdl:"out,w"`
}

func newGate(name string, w int, fn func(a, b hdl.Expr) hdl.Expr) *Gate {
	g := &Gate{Block: hdl.NewBlock(name)}
	hdl.Ports(g.Block, g, w)
	g.Assign(g.Out, fn(hdl.Sig(g.A), hdl.Sig(g.B)))
	return g
}

// And returns a w bits AND gate.
//
//	Inputs: a[w], b[w]
//	Outputs: out[w]
//	Function: out = a & b
//
func And(name string, w int) *Gate {
	return newGate(name, w, func(a, b hdl.Expr) hdl.Expr { return hdl.And(a, b) })
}

// Nand returns a w bits NAND gate.
//
//	Inputs: a[w], b[w]
//	Outputs: out[w]
//	Function: out = ^(a & b)
//
func Nand(name string, w int) *Gate {
	return newGate(name, w, func(a, b hdl.Expr) hdl.Expr { return hdl.Not(hdl.And(a, b)) })
}

// Or returns a w bits OR gate.
//
//	Inputs: a[w], b[w]
//	Outputs: out[w]
//	Function: out = a | b
//
func Or(name string, w int) *Gate {
	return newGate(name, w, func(a, b hdl.Expr) hdl.Expr { return hdl.Or(a, b) })
}

// Nor returns a w bits NOR gate.
//
//	Inputs: a[w], b[w]
//	Outputs: out[w]
//	Function: out = ^(a | b)
//
func Nor(name string, w int) *Gate {
	return newGate(name, w, func(a, b hdl.Expr) hdl.Expr { return hdl.Not(hdl.Or(a, b)) })
}

// Xor returns a w bits XOR gate.
//
//	Inputs: a[w], b[w]
//	Outputs: out[w]
//	Function: out = a ^ b
//
func Xor(name string, w int) *Gate {
	return newGate(name, w, func(a, b hdl.Expr) hdl.Expr { return hdl.Xor(a, b) })
}

// Xnor returns a w bits XNOR gate.
//
//	Inputs: a[w], b[w]
//	Outputs: out[w]
//	Function: out = ^(a ^ b)
//
func Xnor(name string, w int) *Gate {
	return newGate(name, w, func(a, b hdl.Expr) hdl.Expr { return hdl.Not(hdl.Xor(a, b)) })
}

// OrNWay returns a w bits OR reduction.
//
//	Inputs: in[w]
//	Outputs: out
//	Function: out = in[0] | in[1] | ... | in[w-1]
//
func OrNWay(name string, w int) *Unary {
	g := &Unary{Block: hdl.NewBlock(name)}
	g.In = g.Block.In("in", w)
	g.Out = g.Block.Out("out", 1)
	g.Assign(g.Out, hdl.Ne(hdl.Sig(g.In), hdl.Const(w, 0)))
	return g
}

// AndNWay returns a w bits AND reduction.
//
//	Inputs: in[w]
//	Outputs: out
//	Function: out = in[0] & in[1] & ... & in[w-1]
//
func AndNWay(name string, w int) *Unary {
	g := &Unary{Block: hdl.NewBlock(name)}
	g.In = g.Block.In("in", w)
	g.Out = g.Block.Out("out", 1)
	g.Assign(g.Out, hdl.Eq(hdl.Sig(g.In), hdl.Const(w, hdl.Mask(w))))
	return g
}
