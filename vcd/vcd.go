// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package vcd writes simulation traces in the Value Change Dump format read by
// waveform viewers like GTKWave.
//
package vcd

import (
	"bufio"
	"io"
	"strconv"

	"github.com/db47h/hdl"
	"github.com/pkg/errors"
)

// Writer is a hdl.Tracer writing a VCD file.
//
type Writer struct {
	// Timescale is the duration of one time unit. Defaults to "1ns".
	Timescale string

	w   *bufio.Writer
	ids map[*hdl.Signal]string
}

// NewWriter returns a new Writer writing to w.
//
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// ident returns the VCD identifier code for the n-th signal.
//
func ident(n int) string {
	var b []byte
	for {
		b = append(b, byte('!'+n%94))
		n /= 94
		if n == 0 {
			break
		}
		n--
	}
	return string(b)
}

func (vw *Writer) value(s *hdl.Signal, v uint64) {
	if s.Width() == 1 {
		vw.w.WriteString(strconv.FormatUint(v&1, 10))
		vw.w.WriteString(vw.ids[s])
		vw.w.WriteByte('\n')
		return
	}
	vw.w.WriteByte('b')
	vw.w.WriteString(strconv.FormatUint(v, 2))
	vw.w.WriteByte(' ')
	vw.w.WriteString(vw.ids[s])
	vw.w.WriteByte('\n')
}

func (vw *Writer) scope(b *hdl.Block) {
	vw.w.WriteString("$scope module " + b.Name() + " $end\n")
	for _, s := range b.Signals() {
		id := ident(len(vw.ids))
		vw.ids[s] = id
		kind := "wire"
		for _, r := range b.Registers() {
			if r.Q == s {
				kind = "reg"
			}
		}
		vw.w.WriteString("$var " + kind + " " + strconv.Itoa(s.Width()) + " " + id + " " + s.Name())
		if s.Width() > 1 {
			vw.w.WriteString(" [" + strconv.Itoa(s.Width()-1) + ":0]")
		}
		vw.w.WriteString(" $end\n")
	}
	for _, c := range b.Children() {
		vw.scope(c)
	}
	vw.w.WriteString("$upscope $end\n")
}

// TraceStart implements hdl.Tracer. It writes the VCD header and the initial
// value of all signals.
//
func (vw *Writer) TraceStart(c *hdl.Circuit) error {
	ts := vw.Timescale
	if ts == "" {
		ts = "1ns"
	}
	vw.ids = make(map[*hdl.Signal]string, len(c.Signals()))
	vw.w.WriteString("$version github.com/db47h/hdl $end\n")
	vw.w.WriteString("$timescale " + ts + " $end\n")
	vw.scope(c.Root())
	vw.w.WriteString("$enddefinitions $end\n")
	vw.w.WriteString("#" + strconv.FormatUint(c.Now(), 10) + "\n$dumpvars\n")
	for _, s := range c.Signals() {
		vw.value(s, c.Get(s))
	}
	vw.w.WriteString("$end\n")
	return errors.Wrap(vw.w.Flush(), "vcd")
}

// TraceChanges implements hdl.Tracer.
//
func (vw *Writer) TraceChanges(t uint64, changes []hdl.Change) error {
	vw.w.WriteString("#" + strconv.FormatUint(t, 10) + "\n")
	for _, ch := range changes {
		vw.value(ch.Signal, ch.Value)
	}
	return errors.Wrap(vw.w.Flush(), "vcd")
}
