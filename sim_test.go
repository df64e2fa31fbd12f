// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl_test

import (
	"bytes"
	"context"
	"log/slog"
	"math"
	"testing"

	"github.com/db47h/hdl"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echo returns a root block forwarding its 8 bits input to its output.
//
func echo() (top *hdl.Block, in, out *hdl.Signal) {
	top = hdl.NewBlock("top")
	in = top.In("in", 8)
	out = top.Out("out", 8)
	top.Assign(out, hdl.Sig(in))
	return top, in, out
}

func elaborate(t *testing.T, b *hdl.Block) *hdl.Circuit {
	t.Helper()
	c, err := hdl.Elaborate(b)
	if err != nil {
		trace(t, err)
		t.Fatal(err)
	}
	return c
}

func TestRendezvous(t *testing.T) {
	top, in, out := echo()
	c := elaborate(t, top)
	var seen uint64
	sim := hdl.NewSimulation(hdl.Config{})
	sim.AddTestbench("driver", hdl.NewScript().Delay(10).Poke(in, 0x45))
	sim.AddTestbench("watcher", hdl.NewScript().
		Watch(hdl.Equals(out, 0x45)).
		Do(func(b *hdl.Bench) error { seen = b.Now(); return nil }))
	res, err := sim.Run(context.Background(), c, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), seen)
	assert.Equal(t, uint64(11), res.Time)
	v, _ := res.Snapshot.Value("top.out")
	assert.Equal(t, uint64(0x45), v)
}

func TestWatchTimeout(t *testing.T) {
	top, _, out := echo()
	c := elaborate(t, top)

	sim := hdl.NewSimulation(hdl.Config{})
	sim.AddTestbench("tb", hdl.NewScript().Delay(20).WatchWithin(hdl.High(out), 1000))
	_, err := sim.Run(context.Background(), c, 5000)
	var werr *hdl.WatchTimeoutError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, "tb", werr.Task)
	assert.Equal(t, uint64(20), werr.Since)
	assert.Equal(t, uint64(1020), werr.Time)
	var serr *hdl.SimulationError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, uint64(1020), serr.Time)
	assert.Len(t, serr.Snapshot, 2)

	// default limit
	sim = hdl.NewSimulation(hdl.Config{WatchLimit: 300})
	sim.AddTestbench("tb", hdl.TaskFunc(func(*hdl.Bench) (hdl.Wait, error) {
		return hdl.Until(hdl.Equals(out, 1)), nil
	}))
	_, err = sim.Run(context.Background(), c, 5000)
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, uint64(300), werr.Time)

	// no limit: the watch times out at the end of the simulation
	sim = hdl.NewSimulation(hdl.Config{})
	sim.AddTestbench("tb", hdl.NewScript().Watch(hdl.Low(out)).Watch(hdl.High(out)))
	_, err = sim.Run(context.Background(), c, 5000)
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, uint64(0), werr.Since)
	assert.Equal(t, uint64(5000), werr.Time)

	// a 1000 cycles bound with a running clock
	top = hdl.NewBlock("top")
	clk := top.ClockIn("clk")
	q := top.Out("q", 1)
	top.Register(clk, q, hdl.Sig(q), 0)
	sim = hdl.NewSimulation(hdl.Config{})
	sim.AddClock(5, clk)
	sim.AddTestbench("tb", hdl.NewScript().WatchWithin(hdl.High(q), 1000*10))
	_, err = sim.Run(context.Background(), elaborate(t, top), 100000)
	require.ErrorAs(t, err, &werr)
	assert.GreaterOrEqual(t, werr.Time, uint64(1000))
	assert.Equal(t, uint64(10000), werr.Time)

	// huge bounds do not wrap around
	top, in, out := echo()
	sim = hdl.NewSimulation(hdl.Config{})
	sim.AddTestbench("driver", hdl.NewScript().Delay(10).Poke(in, 7))
	sim.AddTestbench("watcher", hdl.NewScript().Delay(5).WatchWithin(hdl.Equals(out, 7), math.MaxUint64))
	res, err := sim.Run(context.Background(), elaborate(t, top), 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), res.Time)
}

func TestTimeLimit(t *testing.T) {
	top, _, _ := echo()
	c := elaborate(t, top)
	sim := hdl.NewSimulation(hdl.Config{})
	sim.AddTestbench("slow", hdl.NewScript().Delay(100).Delay(100))
	_, err := sim.Run(context.Background(), c, 150)
	require.Error(t, err)
	assert.True(t, errors.Is(err, hdl.ErrTimeLimit), "%v", err)
	assert.Contains(t, err.Error(), "slow")
}

func TestTaskError(t *testing.T) {
	top, in, out := echo()
	c := elaborate(t, top)
	sim := hdl.NewSimulation(hdl.Config{})
	sim.AddTestbench("expect", hdl.NewScript().Poke(in, 3).Delay(1).Expect(out, 3).Expect(out, 4))
	_, err := sim.Run(context.Background(), c, 100)
	var terr *hdl.TaskError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "expect", terr.Task)
	assert.Equal(t, uint64(1), terr.Time)
	assert.EqualError(t, errors.Cause(terr), "top.out = 0x3, expected 0x4")

	sim = hdl.NewSimulation(hdl.Config{})
	sim.AddTestbench("bad poke", hdl.NewScript().Poke(out, 1))
	_, err = sim.Run(context.Background(), elaborate(t, top), 100)
	var serr *hdl.ScopeError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "top.out", serr.Path)

	sim = hdl.NewSimulation(hdl.Config{})
	sim.AddTestbench("check", hdl.NewScript().Check(hdl.High(out), "out is low"))
	_, err = sim.Run(context.Background(), elaborate(t, top), 100)
	require.ErrorAs(t, err, &terr)
	assert.Contains(t, err.Error(), "out is low")

	// a panicking testbench aborts the run
	sim = hdl.NewSimulation(hdl.Config{})
	sim.AddTestbench("crash", hdl.NewScript().Delay(7).Do(func(b *hdl.Bench) error {
		var s []int
		i := 3
		return errors.Errorf("unreachable %d", s[i])
	}))
	_, err = sim.Run(context.Background(), elaborate(t, top), 100)
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "crash", terr.Task)
	assert.Equal(t, uint64(7), terr.Time)
	assert.Contains(t, errors.Cause(terr).Error(), "panic: runtime error: index out of range")
	var serr2 *hdl.SimulationError
	require.ErrorAs(t, err, &serr2)
	assert.Equal(t, uint64(7), serr2.Time)
}

func TestCancel(t *testing.T) {
	top, _, _ := echo()
	c := elaborate(t, top)
	ctx, cancel := context.WithCancel(context.Background())
	sim := hdl.NewSimulation(hdl.Config{})
	sim.AddTestbench("tb", hdl.TaskFunc(func(b *hdl.Bench) (hdl.Wait, error) {
		if b.Now() == 50 {
			cancel()
		}
		return hdl.Delay(10), nil
	}))
	_, err := sim.Run(ctx, c, 1000)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), "%v", err)
	var serr *hdl.SimulationError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, uint64(60), serr.Time)
}

func TestScriptRepeat(t *testing.T) {
	top, in, out := echo()
	var log []uint64
	s := hdl.NewScript().Repeat(3, func(s *hdl.Script) {
		s.Do(func(b *hdl.Bench) error {
			log = append(log, b.Now())
			return b.Poke(in, b.Get(out)+1)
		}).Delay(2).
			Repeat(2, func(s *hdl.Script) { s.Delay(1) }).
			Repeat(0, func(s *hdl.Script) { s.Delay(100) })
	}).Expect(out, 3)

	for run := 0; run < 2; run++ {
		log = nil
		sim := hdl.NewSimulation(hdl.Config{})
		sim.AddTestbench("repeat", s)
		res, err := sim.Run(context.Background(), elaborate(t, top), 1000)
		require.NoError(t, err, "run %d", run)
		assert.Equal(t, []uint64{0, 4, 8}, log, "run %d", run)
		assert.Equal(t, uint64(12), res.Time, "run %d", run)
	}
}

func TestCycles(t *testing.T) {
	top := hdl.NewBlock("top")
	clk := top.ClockIn("clk")
	q := top.Out("q", 8)
	top.Register(clk, q, hdl.Add(hdl.Sig(q), hdl.Const(8, 1)), 0)
	c := elaborate(t, top)

	sim := hdl.NewSimulation(hdl.Config{})
	sim.AddClock(5, clk)
	sim.AddTestbench("tb", hdl.NewScript().
		Cycles(clk, 3).
		Expect(q, 3).
		Do(func(b *hdl.Bench) error {
			if b.Edges(clk) != 3 {
				return errors.Errorf("%d edges", b.Edges(clk))
			}
			return nil
		}).
		Watch(hdl.Equals(q, 10)))
	res, err := sim.Run(context.Background(), c, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(95), res.Time)

	// without testbenches, the clocks run until the time limit
	sim = hdl.NewSimulation(hdl.Config{})
	sim.AddClock(5, clk)
	res, err = sim.Run(context.Background(), elaborate(t, top), 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), res.Time)
	v, _ := res.Snapshot.Value("top.q")
	assert.Equal(t, uint64(10), v)
}

func TestRunTwice(t *testing.T) {
	top := hdl.NewBlock("top")
	clk := top.ClockIn("clk")
	q := top.Out("q", 8)
	top.Register(clk, q, hdl.Add(hdl.Sig(q), hdl.Const(8, 1)), 3)
	c := elaborate(t, top)

	var runs [2][]hdl.Event
	for i := range runs {
		rec := &hdl.Recorder{}
		sim := hdl.NewSimulation(hdl.Config{Tracer: rec})
		sim.AddClock(5, clk)
		res, err := sim.Run(context.Background(), c, 100)
		require.NoError(t, err)
		v, _ := res.Snapshot.Value("top.q")
		assert.Equal(t, uint64(13), v, "run %d", i)
		runs[i] = rec.Filter("top.q")
	}
	assert.Equal(t, hdl.Event{Time: 0, Path: "top.q", Value: 3}, runs[0][0])
	assert.Equal(t, runs[0], runs[1])
}

func TestBenchLogger(t *testing.T) {
	top, _, _ := echo()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	sim := hdl.NewSimulation(hdl.Config{Logger: logger})
	sim.AddTestbench("hello", hdl.NewScript().Log("greeting", "answer", 42))
	_, err := sim.Run(context.Background(), elaborate(t, top), 10)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "msg=greeting task=hello answer=42")
}
