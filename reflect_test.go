// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl_test

import (
	"testing"

	"github.com/db47h/hdl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type uart struct {
	Clock      *hdl.Signal `hdl:"clock"`
	TxData     *hdl.Signal `hdl:"in,8"`
	TxValid    *hdl.Signal `hdl:"in"`
	RX         *hdl.Signal `hdl:"in,1,rx_pin"`
	Bus        *hdl.Signal `hdl:"inout,w"`
	Busy       *hdl.Signal `hdl:"out,"`
	HTTPStatus *hdl.Signal `hdl:"local,w"`
	Unexported *hdl.Signal
	Note       string
}

func TestPorts(t *testing.T) {
	b := hdl.NewBlock("uart")
	var u uart
	hdl.Ports(b, &u, 16)

	data := []struct {
		s     *hdl.Signal
		name  string
		dir   hdl.Direction
		width int
	}{
		{u.Clock, "clock", hdl.In, 1},
		{u.TxData, "tx_data", hdl.In, 8},
		{u.TxValid, "tx_valid", hdl.In, 1},
		{u.RX, "rx_pin", hdl.In, 1},
		{u.Bus, "bus", hdl.InOut, 16},
		{u.Busy, "busy", hdl.Out, 1},
		{u.HTTPStatus, "http_status", hdl.Local, 16},
	}
	require.Len(t, b.Signals(), len(data))
	for i, d := range data {
		require.NotNil(t, d.s, d.name)
		assert.Equal(t, b.Signals()[i], d.s)
		assert.Equal(t, d.name, d.s.Name())
		assert.Equal(t, d.dir, d.s.Dir(), d.name)
		assert.Equal(t, d.width, d.s.Width(), d.name)
		assert.Equal(t, b, d.s.Owner())
	}
	assert.True(t, u.Clock.IsClock())
	assert.Nil(t, u.Unexported)
	assert.NoError(t, b.Err())
}

func TestPortsErrors(t *testing.T) {
	data := []struct {
		name string
		v    interface{}
	}{
		{"not a pointer", uart{}},
		{"not a struct", new(int)},
		{"bad field type", &struct {
			A int `hdl:"in"`
		}{}},
		{"bad direction", &struct {
			A *hdl.Signal `hdl:"input"`
		}{}},
		{"bad width", &struct {
			A *hdl.Signal `hdl:"in,x"`
		}{}},
		{"too many values", &struct {
			A *hdl.Signal `hdl:"in,1,a,b"`
		}{}},
	}
	for _, d := range data {
		t.Run(d.name, func(t *testing.T) {
			assert.Panics(t, func() { hdl.Ports(hdl.NewBlock("b"), d.v, 1) })
		})
	}
}
