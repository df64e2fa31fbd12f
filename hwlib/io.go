// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"strings"

	"github.com/db47h/hdl"
)

// Constant returns a block with a single w bits output tied to v.
//
//	Outputs: out[w]
//	Function: out = v
//
func Constant(name string, w int, v uint64) *hdl.Block {
	b := hdl.NewBlock(name)
	b.Assign(b.Out("out", w), hdl.Const(w, v))
	return b
}

// TopWrap returns a new root block named name, with child as its only
// sub-block. The ports of child are forwarded to ports of the new block with
// the same names, directions and widths. The interfaces of child are linked
// to interfaces of the new block with the same names and members.
//
func TopWrap(name string, child *hdl.Block) *hdl.Block {
	top := hdl.NewBlock(name)
	top.Add(child)
	for _, ci := range child.Interfaces() {
		ti := top.Interface(ci.Name())
		for _, m := range ci.Members() {
			n := strings.TrimPrefix(m.Name(), ci.Name()+"$")
			switch m.Dir() {
			case hdl.In:
				ti.In(n, m.Width())
			case hdl.Out:
				ti.Out(n, m.Width())
			case hdl.InOut:
				ti.InOut(n, m.Width())
			}
		}
		top.Link(ti, ci)
	}
	for _, s := range child.Signals() {
		if s.Interface() != nil {
			continue
		}
		switch s.Dir() {
		case hdl.In, hdl.InOut:
			var p *hdl.Signal
			switch {
			case s.IsClock():
				p = top.ClockIn(s.Name())
			case s.Dir() == hdl.InOut:
				p = top.InOut(s.Name(), s.Width())
			default:
				p = top.In(s.Name(), s.Width())
			}
			top.Assign(s, hdl.Sig(p))
		case hdl.Out:
			top.Assign(top.Out(s.Name(), s.Width()), hdl.Sig(s))
		}
	}
	return top
}
