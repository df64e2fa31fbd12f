// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"math/bits"

	"github.com/db47h/hdl"
)

// SPIWires is the interface named "wires" carrying an SPI bus. It has the
// members mosi, sclk, cs (active low) and miso. The master drives mosi, sclk
// and cs, the slave drives miso, so that the wires of a master and a slave
// can be joined.
//
type SPIWires struct {
	*hdl.Interface
	MOSI *hdl.Signal
	SCLK *hdl.Signal
	CS   *hdl.Signal
	MISO *hdl.Signal
}

func spiWires(b *hdl.Block, master bool) SPIWires {
	i := b.Interface("wires")
	if master {
		return SPIWires{i, i.Out("mosi", 1), i.Out("sclk", 1), i.Out("cs", 1), i.In("miso", 1)}
	}
	return SPIWires{i, i.In("mosi", 1), i.In("sclk", 1), i.In("cs", 1), i.Out("miso", 1)}
}

// SPIMaster is a w bits SPI master.
//
type SPIMaster struct {
	*hdl.Block
	Clock        *hdl.Signal `hdl:"clock"`
	DataOutbound *hdl.Signal `hdl:"in,w"`
	StartSend    *hdl.Signal `hdl:"in"`
	DataInbound  *hdl.Signal `hdl:"out,w"`
	TransferDone *hdl.Signal `hdl:"out"`
	Busy         *hdl.Signal `hdl:"out"`
	Wires        SPIWires
}

// NewSPIMaster returns a master exchanging w bits words, MSB first, with
// w >= 2. sclk runs at half the clock frequency and idles low.
//
// When start_send is high on a rising clock edge and the master is idle, it
// latches data_outbound, pulls cs low and shifts the word out on mosi. mosi
// changes on the falling edges of sclk and miso is sampled just before them.
// Once the last bit is sampled, cs goes high and transfer_done is high for
// one clock cycle, with the received word on data_inbound.
//
//	Inputs: clock, data_outbound[w], start_send, wires$miso
//	Outputs: data_inbound[w], transfer_done, busy, wires$mosi, wires$sclk, wires$cs
//
func NewSPIMaster(name string, w int) *SPIMaster {
	m := &SPIMaster{Block: hdl.NewBlock(name)}
	hdl.Ports(m.Block, m, w)
	m.Wires = spiWires(m.Block, true)

	cw := bits.Len(uint(w - 1))
	phase := m.Local("phase", 1)
	count := m.Local("count", cw)
	tx := m.Local("tx", w)

	busy, ph, cnt, txv, rx := hdl.Sig(m.Busy), hdl.Sig(phase), hdl.Sig(count), hdl.Sig(tx), hdl.Sig(m.DataInbound)
	start := hdl.And(hdl.Not(busy), hdl.Sig(m.StartSend))
	fall := hdl.And(busy, ph)
	last := hdl.And(fall, hdl.Eq(cnt, hdl.Const(cw, uint64(w-1))))

	m.Register(m.Clock, m.Busy, hdl.Mux(busy, start, hdl.Not(last)), 0)
	m.Register(m.Clock, phase, hdl.And(busy, hdl.Not(ph)), 0)
	m.Register(m.Clock, count, hdl.Mux(busy, hdl.Const(cw, 0),
		hdl.Mux(ph, cnt, hdl.Add(cnt, hdl.Const(cw, 1)))), 0)
	m.Register(m.Clock, tx, hdl.Mux(busy,
		hdl.Mux(start, txv, hdl.Sig(m.DataOutbound)),
		hdl.Mux(ph, txv, hdl.Shl(txv, 1))), 0)
	m.Register(m.Clock, m.DataInbound, hdl.Mux(fall, rx,
		hdl.Concat(hdl.Slice(rx, w-2, 0), hdl.Sig(m.Wires.MISO))), 0)
	m.Register(m.Clock, m.TransferDone, last, 0)

	m.Assign(m.Wires.MOSI, hdl.Bit(txv, w-1))
	m.Assign(m.Wires.SCLK, ph)
	m.Assign(m.Wires.CS, hdl.Not(busy))
	return m
}

// SPISlave is a w bits SPI slave.
//
type SPISlave struct {
	*hdl.Block
	Clock        *hdl.Signal `hdl:"clock"`
	DataOutbound *hdl.Signal `hdl:"in,w"`
	DataInbound  *hdl.Signal `hdl:"out,w"`
	TransferDone *hdl.Signal `hdl:"out"`
	Wires        SPIWires
}

// NewSPISlave returns a slave exchanging w bits words with an SPIMaster,
// w >= 2. The slave oversamples the bus with its own clock, which must be the
// master's clock.
//
// While cs is high, the slave latches data_outbound. While cs is low, it
// samples mosi after every rising edge of sclk and shifts its word out on
// miso after every falling edge. transfer_done is high for one clock cycle
// after cs goes back high, with the received word on data_inbound.
//
//	Inputs: clock, data_outbound[w], wires$mosi, wires$sclk, wires$cs
//	Outputs: data_inbound[w], transfer_done, wires$miso
//
func NewSPISlave(name string, w int) *SPISlave {
	s := &SPISlave{Block: hdl.NewBlock(name)}
	hdl.Ports(s.Block, s, w)
	s.Wires = spiWires(s.Block, false)

	prevSCLK := s.Local("prev_sclk", 1)
	prevCS := s.Local("prev_cs", 1)
	tx := s.Local("tx", w)

	sclk, cs, txv, rx := hdl.Sig(s.Wires.SCLK), hdl.Sig(s.Wires.CS), hdl.Sig(tx), hdl.Sig(s.DataInbound)
	active := hdl.Not(cs)
	rise := hdl.And(hdl.And(sclk, hdl.Not(hdl.Sig(prevSCLK))), active)
	fall := hdl.And(hdl.And(hdl.Not(sclk), hdl.Sig(prevSCLK)), active)

	s.Register(s.Clock, prevSCLK, sclk, 0)
	s.Register(s.Clock, prevCS, cs, 1)
	s.Register(s.Clock, s.DataInbound, hdl.Mux(rise, rx,
		hdl.Concat(hdl.Slice(rx, w-2, 0), hdl.Sig(s.Wires.MOSI))), 0)
	s.Register(s.Clock, tx, hdl.Mux(cs,
		hdl.Mux(fall, txv, hdl.Shl(txv, 1)),
		hdl.Sig(s.DataOutbound)), 0)
	s.Register(s.Clock, s.TransferDone, hdl.And(cs, hdl.Not(hdl.Sig(prevCS))), 0)

	s.Assign(s.Wires.MISO, hdl.Bit(txv, w-1))
	return s
}
