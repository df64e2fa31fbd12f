// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib_test

import (
	"context"
	"testing"

	"github.com/db47h/hdl"
	hl "github.com/db47h/hdl/hwlib"
	"github.com/db47h/hdl/hwtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type spiPair struct {
	*hdl.Block
	clk, masterTx, slaveTx, start *hdl.Signal
	masterRx, masterDone, busy    *hdl.Signal
	slaveRx, slaveDone            *hdl.Signal
	master                        *hl.SPIMaster
	slave                         *hl.SPISlave
}

// newSPIPair returns a root block with a master and a slave whose wires are
// joined.
//
func newSPIPair(w int) *spiPair {
	p := &spiPair{Block: hdl.NewBlock("pair")}
	p.clk = p.ClockIn("clock")
	p.masterTx = p.In("master_tx", w)
	p.slaveTx = p.In("slave_tx", w)
	p.start = p.In("start", 1)
	p.masterRx = p.Out("master_rx", w)
	p.masterDone = p.Out("master_done", 1)
	p.busy = p.Out("busy", 1)
	p.slaveRx = p.Out("slave_rx", w)
	p.slaveDone = p.Out("slave_done", 1)

	p.master = hl.NewSPIMaster("master", w)
	p.slave = hl.NewSPISlave("slave", w)
	p.Add(p.master.Block, p.slave.Block)
	p.Join(p.master.Wires.Interface, p.slave.Wires.Interface)
	for _, a := range []struct{ dst, src *hdl.Signal }{
		{p.master.Clock, p.clk},
		{p.slave.Clock, p.clk},
		{p.master.DataOutbound, p.masterTx},
		{p.master.StartSend, p.start},
		{p.slave.DataOutbound, p.slaveTx},
		{p.masterRx, p.master.DataInbound},
		{p.masterDone, p.master.TransferDone},
		{p.busy, p.master.Busy},
		{p.slaveRx, p.slave.DataInbound},
		{p.slaveDone, p.slave.TransferDone},
	} {
		p.Assign(a.dst, hdl.Sig(a.src))
	}
	return p
}

func TestSPIExchange(t *testing.T) {
	p := newSPIPair(32)
	c, err := hdl.Elaborate(p.Block)
	require.NoError(t, err)

	sim := hdl.NewSimulation(hdl.Config{})
	sim.AddClock(5, p.clk)
	sim.AddTestbench("master", hdl.NewScript().
		Cycles(p.clk, 4).
		Repeat(4, func(s *hdl.Script) {
			s.Poke(p.masterTx, 0xdeadbeef).
				Poke(p.start, 1).
				Cycles(p.clk, 1).
				Poke(p.start, 0).
				Watch(hdl.High(p.masterDone)).
				Expect(p.masterRx, 0xcafebabe).
				Expect(p.busy, 0).
				Cycles(p.clk, 1)
		}))
	sim.AddTestbench("slave", hdl.NewScript().
		Poke(p.slaveTx, 0xcafebabe).
		Repeat(4, func(s *hdl.Script) {
			s.Watch(hdl.High(p.slaveDone)).
				Expect(p.slaveRx, 0xdeadbeef).
				Cycles(p.clk, 1)
		}))
	res, err := sim.Run(context.Background(), c, 10000)
	require.NoError(t, err)
	// the first exchange starts on the 5th rising edge and each one takes 66
	// clock cycles; the slave is done one cycle after its last transfer_done.
	assert.Equal(t, uint64(5+10*(4+4*66)), res.Time)
}

func TestSPIPairNetlist(t *testing.T) {
	p := newSPIPair(8)
	hwtest.CompareNetlist(t, p.Block, p.clk, 60, func(cycle int) map[*hdl.Signal]uint64 {
		switch cycle {
		case 2:
			return map[*hdl.Signal]uint64{p.masterTx: 0xa5, p.slaveTx: 0x3c, p.start: 1}
		case 3, 24:
			return map[*hdl.Signal]uint64{p.start: 0}
		case 23:
			return map[*hdl.Signal]uint64{p.masterTx: 0x81, p.slaveTx: 0x7e, p.start: 1}
		}
		return nil
	})
}

func TestSPIMasterLink(t *testing.T) {
	m := hl.NewSPIMaster("master", 8)
	top := hl.TopWrap("top", m.Block)
	require.NoError(t, hdl.Validate(top))
	require.Len(t, top.Interfaces(), 1)
	bus := top.Interfaces()[0]
	assert.Equal(t, "top.wires", bus.Path())
	assert.Len(t, top.Edges(), 4)
	for _, n := range []string{"mosi", "sclk", "cs", "miso"} {
		assert.NotNil(t, bus.Member(n), n)
		assert.Nil(t, top.Signal(n), n)
	}

	start, data, miso := top.Signal("start_send"), top.Signal("data_outbound"), bus.Member("miso")
	hwtest.CompareNetlist(t, top, top.Signal("clock"), 40, func(cycle int) map[*hdl.Signal]uint64 {
		in := map[*hdl.Signal]uint64{miso: uint64(cycle/3) & 1}
		switch cycle {
		case 1:
			in[data], in[start] = 0x96, 1
		case 2:
			in[start] = 0
		}
		return in
	})
}
