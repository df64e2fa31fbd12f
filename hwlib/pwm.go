// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import "github.com/db47h/hdl"

// PulseWidthModulator outputs a periodic pulse train. With a w bits counter,
// active is high for threshold clock cycles out of every 2^w.
//
type PulseWidthModulator struct {
	*hdl.Block
	Clock     *hdl.Signal `hdl:"clock"`
	Enable    *hdl.Signal `hdl:"in"`
	Threshold *hdl.Signal `hdl:"in,w"`
	Active    *hdl.Signal `hdl:"out"`
}

// PWM returns a w bits pulse width modulator.
//
//	Inputs: clock, enable, threshold[w]
//	Outputs: active
//	Function: counter(t) = counter(t-1) + 1
//	          active = enable & (counter < threshold)
//
func PWM(name string, w int) *PulseWidthModulator {
	p := &PulseWidthModulator{Block: hdl.NewBlock(name)}
	hdl.Ports(p.Block, p, w)
	cnt := p.Local("counter", w)
	p.Register(p.Clock, cnt, hdl.Add(hdl.Sig(cnt), hdl.Const(w, 1)), 0)
	p.Assign(p.Active, hdl.And(hdl.Sig(p.Enable), hdl.Lt(hdl.Sig(cnt), hdl.Sig(p.Threshold))))
	return p
}
