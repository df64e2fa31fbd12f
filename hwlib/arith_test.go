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

func TestHalfAdder(t *testing.T) {
	b := hl.HalfAdder("ha")
	a, x := b.Signal("a"), b.Signal("b")
	testTable(t, b, []*hdl.Signal{a, x}, b.Signal("s"), truthTable{
		{[]uint64{0, 0}, 0},
		{[]uint64{0, 1}, 1},
		{[]uint64{1, 0}, 1},
		{[]uint64{1, 1}, 0},
	})
}

func TestAdder(t *testing.T) {
	a := hl.NewAdder("adder", 16)
	k := bench(t, a.Block)
	c := k.Circuit()
	f := func(x, y uint16, cin bool) bool {
		var ci uint64
		if cin {
			ci = 1
		}
		apply(t, k, map[*hdl.Signal]uint64{a.A: uint64(x), a.B: uint64(y), a.Cin: ci})
		sum := uint64(x) + uint64(y) + ci
		return c.Get(a.Sum) == sum&0xffff && c.Get(a.Cout) == sum>>16
	}
	require.NoError(t, quick.Check(f, nil))
}

func TestInc(t *testing.T) {
	u := hl.Inc("inc", 8)
	testTable(t, u.Block, []*hdl.Signal{u.In}, u.Out, truthTable{
		{[]uint64{0}, 1},
		{[]uint64{0x7f}, 0x80},
		{[]uint64{0xff}, 0},
	})
}

func TestAdderTooWide(t *testing.T) {
	a := hl.NewAdder("adder", 64)
	_, err := hdl.Elaborate(a.Block)
	var werr *hdl.WidthError
	require.ErrorAs(t, err, &werr)
}
