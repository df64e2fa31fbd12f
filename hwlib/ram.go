// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"fmt"

	"github.com/db47h/hdl"
)

// Memory is a synchronous RAM with one read port and one write port.
//
type Memory struct {
	*hdl.Block
	Clock       *hdl.Signal
	ReadAddr    *hdl.Signal
	ReadData    *hdl.Signal
	WriteAddr   *hdl.Signal
	WriteData   *hdl.Signal
	WriteEnable *hdl.Signal
}

// RAM returns a RAM of 2^addrBits words of dataBits bits. Memory contents
// start at 0.
//
// On every rising clock edge, read_data is loaded with the word at
// read_addr, then, if write_enable is high, write_data is stored at
// write_addr. A read of the address being written returns the old word.
//
//	Inputs: clock, read_addr[addrBits], write_addr[addrBits], write_data[dataBits], write_enable
//	Outputs: read_data[dataBits]
//
func RAM(name string, addrBits, dataBits int) *Memory {
	m := &Memory{Block: hdl.NewBlock(name)}
	m.Clock = m.ClockIn("clock")
	m.ReadAddr = m.In("read_addr", addrBits)
	m.ReadData = m.Out("read_data", dataBits)
	m.WriteAddr = m.In("write_addr", addrBits)
	m.WriteData = m.In("write_data", dataBits)
	m.WriteEnable = m.In("write_enable", 1)
	size := 1 << uint(addrBits)
	m.OnEdge(m.Clock, func(c *hdl.Circuit) {
		mem := c.Memory(m.Block, size)
		c.Set(m.ReadData, mem[c.Get(m.ReadAddr)])
		if c.Get(m.WriteEnable) != 0 {
			addr, data := c.Get(m.WriteAddr), c.Get(m.WriteData)
			c.Defer(func() { mem[addr] = data })
		}
	}, m.ReadData)
	m.Verilog(hdl.Wrapper{Code: fmt.Sprintf(`reg %[2]smem[0:%[3]d];
reg %[2]sread_data;
integer i;
initial begin
    read_data = %[1]d'h0;
    for (i = 0; i < %[4]d; i = i + 1) mem[i] = %[1]d'h0;
end
always @(posedge clock) begin
    read_data <= mem[read_addr];
    if (write_enable) mem[write_addr] <= write_data;
end`, dataBits, vrange(dataBits), size-1, size)})
	return m
}

// vrange returns the Verilog range of a w bits net, matching the port
// declarations of the emitter: 1 bit nets have no range.
//
func vrange(w int) string {
	if w == 1 {
		return ""
	}
	return fmt.Sprintf("[%d:0] ", w-1)
}
