// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib_test

import (
	"testing"

	"github.com/db47h/hdl"
	"github.com/stretchr/testify/require"
)

// bench elaborates b as a root block and returns a kernel for it.
//
func bench(t *testing.T, b *hdl.Block) *hdl.Kernel {
	t.Helper()
	c, err := hdl.Elaborate(b)
	require.NoError(t, err)
	return hdl.NewKernel(c, hdl.Config{})
}

// apply pokes inputs then processes the next instant.
//
func apply(t *testing.T, k *hdl.Kernel, in map[*hdl.Signal]uint64) {
	t.Helper()
	for s, v := range in {
		require.NoError(t, k.Poke(s, v))
	}
	require.NoError(t, k.Step())
}

type truthTable []struct {
	in  []uint64
	out uint64
}

func testTable(t *testing.T, b *hdl.Block, ins []*hdl.Signal, out *hdl.Signal, table truthTable) {
	t.Helper()
	k := bench(t, b)
	for _, row := range table {
		in := make(map[*hdl.Signal]uint64)
		for i, s := range ins {
			in[s] = row.in[i]
		}
		apply(t, k, in)
		if got := k.Circuit().Get(out); got != row.out {
			t.Errorf("%s %v: expected %#x, got %#x", b.Name(), row.in, row.out, got)
		}
	}
}
