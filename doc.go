/*
Package hdl provides the tools to describe digital circuits in Go, simulate
them and render them as Verilog.

A circuit is a tree of blocks. A block owns signals (bit vectors of 1 to 64
bits with a direction), sub-blocks, and the logic computing its outputs and
the inputs of its children: continuous assignments of expressions,
registers clocked by a 1 bit signal, and custom Go functions.

	top := hdl.NewBlock("top")
	clk := top.ClockIn("clk")
	q := top.Out("q", 8)
	top.Register(clk, q, hdl.Add(hdl.Sig(q), hdl.Const(8, 1)), 0)

The same tree feeds two backends: Elaborate builds a Circuit that a Kernel or
a Simulation runs through logical time, and the verilog package renders it as
a netlist.

Simulation is deterministic. Combinational logic is settled by evaluating all
elements against a frozen frame of values, then committing the results, until
nothing changes. Registers triggered by the same clock edge all see the
values settled before the edge.

Testbenches are Tasks: resumable state machines run cooperatively by a
Simulation until they are done or wait for time to pass, for clock edges, or
for some condition to be true.
*/
package hdl
