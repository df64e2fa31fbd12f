// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl_test

import (
	"testing"

	"github.com/db47h/hdl"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trace(t *testing.T, err error) {
	t.Helper()
	if err, ok := err.(interface {
		StackTrace() errors.StackTrace
	}); ok {
		for _, f := range err.StackTrace() {
			t.Logf("%+v ", f)
		}
	}
}

// inverter returns a block with out = ~in.
//
func inverter(name string, w int) *hdl.Block {
	b := hdl.NewBlock(name)
	b.Assign(b.Out("out", w), hdl.Not(hdl.Sig(b.In("in", w))))
	return b
}

func TestBlockErrors(t *testing.T) {
	data := []struct {
		name  string
		build func() *hdl.Block
		check func(err error) bool
	}{
		{"zero width", func() *hdl.Block {
			b := hdl.NewBlock("top")
			b.In("x", 0)
			return b
		}, isWidth},
		{"too wide", func() *hdl.Block {
			b := hdl.NewBlock("top")
			b.Local("x", 65)
			return b
		}, isWidth},
		{"name in use", func() *hdl.Block {
			b := hdl.NewBlock("top")
			b.In("x", 1)
			b.Out("x", 1)
			return b
		}, isLink},
		{"invalid name", func() *hdl.Block {
			b := hdl.NewBlock("top")
			b.In("a.b", 1)
			return b
		}, isLink},
		{"assign width", func() *hdl.Block {
			b := hdl.NewBlock("top")
			b.Assign(b.Out("o", 8), hdl.Const(4, 1))
			return b
		}, isWidth},
		{"operand widths", func() *hdl.Block {
			b := hdl.NewBlock("top")
			b.Assign(b.Out("o", 8), hdl.Add(hdl.Sig(b.In("a", 8)), hdl.Sig(b.In("b", 7))))
			return b
		}, isWidth},
		{"mux selector", func() *hdl.Block {
			b := hdl.NewBlock("top")
			s := b.In("s", 2)
			b.Assign(b.Out("o", 1), hdl.Mux(hdl.Sig(s), hdl.Bool(false), hdl.Bool(true)))
			return b
		}, isWidth},
		{"slice range", func() *hdl.Block {
			b := hdl.NewBlock("top")
			b.Assign(b.Out("o", 2), hdl.Slice(hdl.Sig(b.In("a", 4)), 4, 3))
			return b
		}, isWidth},
		{"register init", func() *hdl.Block {
			b := hdl.NewBlock("top")
			q := b.Out("q", 4)
			b.Register(b.ClockIn("clk"), q, hdl.Sig(q), 16)
			return b
		}, isWidth},
		{"self add", func() *hdl.Block {
			b := hdl.NewBlock("top")
			c := hdl.NewBlock("c")
			b.Add(c)
			c.Add(b)
			return b
		}, isLink},
		{"two parents", func() *hdl.Block {
			b := hdl.NewBlock("top")
			x, y, c := hdl.NewBlock("x"), hdl.NewBlock("y"), inverter("c", 1)
			b.Add(x, y)
			x.Add(c)
			y.Add(c)
			return b
		}, isLink},
		{"join self", func() *hdl.Block {
			b := hdl.NewBlock("top")
			c := hdl.NewBlock("c")
			i := c.Interface("bus")
			i.Out("x", 1)
			b.Add(c)
			b.Join(i, i)
			return b
		}, isLink},
		{"join directions", func() *hdl.Block {
			b := hdl.NewBlock("top")
			x, y := hdl.NewBlock("x"), hdl.NewBlock("y")
			x.Interface("bus").Out("d", 1)
			y.Interface("bus").Out("d", 1)
			b.Add(x, y)
			b.Join(x.Interfaces()[0], y.Interfaces()[0])
			return b
		}, isLink},
		{"join widths", func() *hdl.Block {
			b := hdl.NewBlock("top")
			x, y := hdl.NewBlock("x"), hdl.NewBlock("y")
			x.Interface("bus").Out("d", 2)
			y.Interface("bus").In("d", 1)
			b.Add(x, y)
			b.Join(x.Interfaces()[0], y.Interfaces()[0])
			return b
		}, isWidth},
		{"link members", func() *hdl.Block {
			b := hdl.NewBlock("top")
			c := hdl.NewBlock("c")
			c.Interface("bus").Out("d", 1)
			o := b.Interface("bus")
			o.Out("e", 1)
			b.Add(c)
			b.Link(o, c.Interfaces()[0])
			return b
		}, isLink},
		{"link ownership", func() *hdl.Block {
			b := hdl.NewBlock("top")
			c := hdl.NewBlock("c")
			i := c.Interface("bus")
			b.Add(c)
			b.Link(i, i)
			return b
		}, isLink},
	}
	for _, d := range data {
		t.Run(d.name, func(t *testing.T) {
			err := hdl.Validate(d.build())
			require.Error(t, err)
			assert.True(t, d.check(err), "unexpected error type %T: %v", err, err)
		})
	}
}

func isWidth(err error) bool {
	var e *hdl.WidthError
	return errors.As(err, &e)
}

func isLink(err error) bool {
	var e *hdl.LinkError
	return errors.As(err, &e)
}

func TestValidate(t *testing.T) {
	t.Run("dangling child input", func(t *testing.T) {
		top := hdl.NewBlock("top")
		c := inverter("inv", 1)
		top.Add(c)
		top.Assign(top.Out("o", 1), hdl.Sig(c.Signal("out")))
		err := hdl.Validate(top)
		var e *hdl.DanglingPortError
		require.ErrorAs(t, err, &e)
		assert.Equal(t, "top.inv.in", e.Path)
		assert.Equal(t, hdl.In, e.Dir)
	})
	t.Run("dangling output", func(t *testing.T) {
		top := hdl.NewBlock("top")
		top.In("i", 1)
		top.Out("o", 1)
		var e *hdl.DanglingPortError
		require.ErrorAs(t, hdl.Validate(top), &e)
		assert.Equal(t, "top.o", e.Path)
	})
	t.Run("multiple drivers", func(t *testing.T) {
		top := hdl.NewBlock("top")
		i := top.In("i", 1)
		o := top.Out("o", 1)
		top.Assign(o, hdl.Sig(i))
		top.Comb(func(c *hdl.Circuit) { c.Set(o, 1) }, o)
		var e *hdl.MultipleDriverError
		require.ErrorAs(t, hdl.Validate(top), &e)
		assert.Equal(t, "top.o", e.Path)
		assert.Equal(t, []string{"assign in top", "comb func in top"}, e.Drivers)
	})
	t.Run("driven input", func(t *testing.T) {
		top := hdl.NewBlock("top")
		i := top.In("i", 1)
		top.Assign(i, hdl.Bool(true))
		var e *hdl.ScopeError
		require.ErrorAs(t, hdl.Validate(top), &e)
		assert.Equal(t, "top.i", e.Path)
	})
	t.Run("grandchild read", func(t *testing.T) {
		top := hdl.NewBlock("top")
		mid := hdl.NewBlock("mid")
		inv := inverter("inv", 1)
		mid.Add(inv)
		mid.Assign(inv.Signal("in"), hdl.Bool(false))
		top.Add(mid)
		top.Assign(top.Out("o", 1), hdl.Sig(inv.Signal("out")))
		var e *hdl.ScopeError
		require.ErrorAs(t, hdl.Validate(top), &e)
		assert.Equal(t, "top", e.Block)
		assert.Equal(t, "top.mid.inv.out", e.Path)
	})
	t.Run("child output driven by parent", func(t *testing.T) {
		top := hdl.NewBlock("top")
		inv := inverter("inv", 1)
		top.Add(inv)
		top.Assign(inv.Signal("in"), hdl.Bool(false))
		top.Assign(inv.Signal("out"), hdl.Bool(false))
		var e *hdl.ScopeError
		require.ErrorAs(t, hdl.Validate(top), &e)
		assert.Equal(t, "top.inv.out", e.Path)
	})
	t.Run("foreign register", func(t *testing.T) {
		top := hdl.NewBlock("top")
		clk := top.ClockIn("clk")
		c := hdl.NewBlock("c")
		q := c.Local("q", 1)
		top.Add(c)
		top.Register(clk, q, hdl.Bool(true), 0)
		var e *hdl.ScopeError
		require.ErrorAs(t, hdl.Validate(top), &e)
		assert.Equal(t, "top.c.q", e.Path)
	})
	t.Run("valid", func(t *testing.T) {
		top := hdl.NewBlock("top")
		inv := inverter("inv", 4)
		top.Add(inv)
		top.Assign(inv.Signal("in"), hdl.Sig(top.In("i", 4)))
		top.Assign(top.Out("o", 4), hdl.Sig(inv.Signal("out")))
		assert.NoError(t, hdl.Validate(top))
	})
}

func TestFrozen(t *testing.T) {
	top := hdl.NewBlock("top")
	top.Assign(top.Out("o", 1), hdl.Bool(true))
	c, err := hdl.Elaborate(top)
	require.NoError(t, err)
	frozen := func(name string, fn func()) {
		t.Helper()
		defer func() {
			r := recover()
			err, ok := r.(error)
			require.True(t, ok, "%s: expected an error panic, got %v", name, r)
			assert.Equal(t, hdl.ErrFrozen, errors.Cause(err), name)
		}()
		fn()
	}
	frozen("new signal", func() { top.Local("x", 1) })

	// an elaborated block cannot be adopted by another tree
	parent := hdl.NewBlock("parent")
	frozen("adopted", func() { parent.Add(top) })
	assert.Nil(t, top.Parent())
	assert.Empty(t, parent.Children())
	assert.Equal(t, "top.o", c.Signals()[0].Path())
	assert.Equal(t, uint64(0), c.Get(top.Signal("o")))
}

func TestElaborateAgain(t *testing.T) {
	top := hdl.NewBlock("top")
	inv := inverter("inv", 4)
	top.Add(inv)
	top.Assign(inv.Signal("in"), hdl.Sig(top.In("i", 4)))
	top.Assign(top.Out("o", 4), hdl.Sig(inv.Signal("out")))

	c1, err := hdl.Elaborate(top)
	require.NoError(t, err)
	c2, err := hdl.Elaborate(top)
	require.NoError(t, err)
	assert.Equal(t, c1.Signals(), c2.Signals())

	_, err = hdl.Elaborate(inv)
	var e *hdl.LinkError
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "top.inv", e.Path)
}

func TestLinkJoin(t *testing.T) {
	// a producer and a consumer connected through interfaces, and the same
	// thing with plain assignments, must behave the same.
	build := func(ifaces bool) (*hdl.Block, *hdl.Signal, *hdl.Signal) {
		p := hdl.NewBlock("p")
		pi := p.In("in", 8)
		pb := p.Interface("bus")
		pd := pb.Out("data", 8)
		pv := pb.Out("valid", 1)
		p.Assign(pd, hdl.Add(hdl.Sig(pi), hdl.Const(8, 1)))
		p.Assign(pv, hdl.Ne(hdl.Sig(pi), hdl.Const(8, 0)))

		q := hdl.NewBlock("q")
		qb := q.Interface("bus")
		qd := qb.In("data", 8)
		qv := qb.In("valid", 1)
		qo := q.Interface("res")
		q.Assign(qo.Out("sum", 8), hdl.Mux(hdl.Sig(qv), hdl.Const(8, 0xff), hdl.Xor(hdl.Sig(qd), hdl.Const(8, 0x0f))))

		top := hdl.NewBlock("top")
		in := top.In("in", 8)
		res := top.Interface("res")
		sum := res.Out("sum", 8)
		top.Add(p, q)
		top.Assign(pi, hdl.Sig(in))
		if ifaces {
			top.Join(pb, qb)
			top.Link(res, qo)
		} else {
			top.Assign(qd, hdl.Sig(pd))
			top.Assign(qv, hdl.Sig(pv))
			top.Assign(sum, hdl.Sig(qo.Member("sum")))
		}
		return top, in, sum
	}
	for _, ifaces := range []bool{false, true} {
		top, in, sum := build(ifaces)
		c, err := hdl.Elaborate(top)
		if err != nil {
			trace(t, err)
			t.Fatal(err)
		}
		k := hdl.NewKernel(c, hdl.Config{})
		for _, v := range []uint64{0, 1, 0x41, 0xfe, 0xff} {
			require.NoError(t, k.Poke(in, v))
			require.NoError(t, k.Step())
			exp := uint64(0xff)
			if v != 0 {
				exp = (v + 1) & 0xff ^ 0x0f
			}
			assert.Equal(t, exp, c.Get(sum), "interfaces: %v, in: %#x", ifaces, v)
		}
	}
}
