// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib_test

import (
	"testing"
	"testing/quick"

	"github.com/db47h/hdl"
	hl "github.com/db47h/hdl/hwlib"
	"github.com/stretchr/testify/require"
)

func TestGates(t *testing.T) {
	data := []struct {
		name string
		gate func(string, int) *hl.Gate
		out  []uint64 // for a, b = 00, 01, 10, 11
	}{
		{"and", hl.And, []uint64{0, 0, 0, 1}},
		{"nand", hl.Nand, []uint64{1, 1, 1, 0}},
		{"or", hl.Or, []uint64{0, 1, 1, 1}},
		{"nor", hl.Nor, []uint64{1, 0, 0, 0}},
		{"xor", hl.Xor, []uint64{0, 1, 1, 0}},
		{"xnor", hl.Xnor, []uint64{1, 0, 0, 1}},
	}
	for _, d := range data {
		t.Run(d.name, func(t *testing.T) {
			g := d.gate(d.name, 1)
			var table truthTable
			for i, o := range d.out {
				table = append(table, struct {
					in  []uint64
					out uint64
				}{[]uint64{uint64(i >> 1), uint64(i & 1)}, o})
			}
			testTable(t, g.Block, []*hdl.Signal{g.A, g.B}, g.Out, table)
		})
	}
}

func TestNot(t *testing.T) {
	g := hl.Not("not", 1)
	testTable(t, g.Block, []*hdl.Signal{g.In}, g.Out, truthTable{
		{[]uint64{0}, 1},
		{[]uint64{1}, 0},
	})
}

func TestGatesN(t *testing.T) {
	and, or, not := hl.And("and", 16), hl.Or("or", 16), hl.Not("not", 16)
	ka, ko, kn := bench(t, and.Block), bench(t, or.Block), bench(t, not.Block)
	f := func(a, b uint16) bool {
		apply(t, ka, map[*hdl.Signal]uint64{and.A: uint64(a), and.B: uint64(b)})
		apply(t, ko, map[*hdl.Signal]uint64{or.A: uint64(a), or.B: uint64(b)})
		apply(t, kn, map[*hdl.Signal]uint64{not.In: uint64(a)})
		return ka.Circuit().Get(and.Out) == uint64(a&b) &&
			ko.Circuit().Get(or.Out) == uint64(a|b) &&
			kn.Circuit().Get(not.Out) == uint64(^a)
	}
	require.NoError(t, quick.Check(f, nil))
}

func TestNWay(t *testing.T) {
	or, and := hl.OrNWay("or", 8), hl.AndNWay("and", 8)
	testTable(t, or.Block, []*hdl.Signal{or.In}, or.Out, truthTable{
		{[]uint64{0}, 0},
		{[]uint64{0x10}, 1},
		{[]uint64{0xff}, 1},
	})
	testTable(t, and.Block, []*hdl.Signal{and.In}, and.Out, truthTable{
		{[]uint64{0}, 0},
		{[]uint64{0xfe}, 0},
		{[]uint64{0xff}, 1},
	})
}
