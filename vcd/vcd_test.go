// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package vcd_test

import (
	"strings"
	"testing"

	"github.com/db47h/hdl"
	"github.com/db47h/hdl/hwlib"
	"github.com/db47h/hdl/vcd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter(t *testing.T) {
	cnt := hwlib.NewCounter("counter", 4)
	c, err := hdl.Elaborate(cnt.Block)
	require.NoError(t, err)

	var sb strings.Builder
	k := hdl.NewKernel(c, hdl.Config{Tracer: vcd.NewWriter(&sb)})
	require.NoError(t, k.AddClock(5, cnt.Clock))
	require.NoError(t, k.Poke(cnt.Enable, 1))
	require.NoError(t, k.Advance(20))

	exp := `$version github.com/db47h/hdl $end
$timescale 1ns $end
$scope module counter $end
$var wire 1 ! clock $end
$var wire 1 " enable $end
$var reg 4 # count [3:0] $end
$upscope $end
$enddefinitions $end
#0
$dumpvars
0!
1"
b0 #
$end
#5
1!
b1 #
#10
0!
#15
1!
b10 #
#20
0!
`
	assert.Equal(t, exp, sb.String())
}
