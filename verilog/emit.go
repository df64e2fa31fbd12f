// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package verilog renders circuits built with package hdl as Verilog
// netlists.
//
// Every block instance is rendered as its own module, named after the block
// path with dots replaced by '$': the block top.counter becomes the module
// top$counter. Modules are emitted children first, the root module last.
//
// Ports are declared in non-ANSI style. Inside a module, the ports of a child
// block c are connected to wires named c$port.
//
package verilog

import (
	"io"
	"strconv"
	"strings"

	"github.com/db47h/hdl"
	"github.com/pkg/errors"
)

// EmitError is returned when a block cannot be rendered.
//
type EmitError struct {
	Path string
	Msg  string
}

func (e *EmitError) Error() string { return e.Path + ": " + e.Msg }

// Emit validates the block tree rooted at root and renders it.
//
func Emit(root *hdl.Block) (string, error) {
	var sb strings.Builder
	if err := Write(&sb, root); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Write validates the block tree rooted at root and writes its rendering to w.
//
func Write(w io.Writer, root *hdl.Block) error {
	if err := hdl.Validate(root); err != nil {
		return err
	}
	e := &emitter{cores: make(map[string]bool)}
	if err := e.module(root); err != nil {
		return err
	}
	for _, c := range e.order {
		e.out.WriteString(c)
		if !strings.HasSuffix(c, "\n") {
			e.out.WriteByte('\n')
		}
	}
	_, err := io.WriteString(w, e.out.String())
	return errors.Wrap(err, "write netlist")
}

// ModuleName returns the module name of b.
//
func ModuleName(b *hdl.Block) string {
	return strings.ReplaceAll(b.Path(), ".", "$")
}

type emitter struct {
	out   strings.Builder
	cores map[string]bool
	order []string
}

// module renders b and its children.
//
func (e *emitter) module(b *hdl.Block) error {
	if w := b.Wrapper(); w != nil {
		e.primitive(b, w)
		return nil
	}
	if fs := b.Funcs(); len(fs) > 0 {
		return &EmitError{Path: b.Path(), Msg: "custom logic without Verilog wrapper"}
	}
	for _, c := range b.Children() {
		if err := e.module(c); err != nil {
			return err
		}
	}
	m := &module{b: b}
	m.header()
	regs := make(map[*hdl.Signal]bool)
	for _, r := range b.Registers() {
		regs[r.Q] = true
	}
	for _, s := range b.Signals() {
		switch {
		case s.Dir() == hdl.Local && regs[s]:
			m.decl("reg", s.Width(), s.Name())
		case s.Dir() == hdl.Local:
			m.decl("wire", s.Width(), s.Name())
		case regs[s]:
			m.decl("reg", s.Width(), s.Name())
		}
	}
	for _, c := range b.Children() {
		for _, s := range c.Signals() {
			if s.Dir() != hdl.Local {
				m.decl("wire", s.Width(), c.Name()+"$"+s.Name())
			}
		}
	}
	for _, a := range b.Assigns() {
		m.assign(a.Dst, a.Src)
	}
	for _, l := range b.Edges() {
		m.assign(l.Dst, hdl.Sig(l.Src))
	}
	for _, r := range b.Registers() {
		m.body.WriteString("    initial " + r.Q.Name() + " = " + constant(r.Q.Width(), r.Init) + ";\n")
		d := m.expr(r.D)
		m.body.WriteString("    always @(posedge " + m.name(r.Clock) + ") " + r.Q.Name() + " <= " + d + ";\n")
	}
	for _, c := range b.Children() {
		m.instance(c)
	}
	e.out.WriteString(m.head.String())
	e.out.WriteString(m.decls.String())
	e.out.WriteString(m.body.String())
	e.out.WriteString("endmodule\n\n")
	return nil
}

func (e *emitter) primitive(b *hdl.Block, w *hdl.Wrapper) {
	m := &module{b: b}
	m.header()
	e.out.WriteString(m.head.String())
	code := strings.Trim(w.Code, "\n")
	for _, l := range strings.Split(code, "\n") {
		if l == "" {
			e.out.WriteByte('\n')
			continue
		}
		e.out.WriteString("    " + l + "\n")
	}
	e.out.WriteString("endmodule\n\n")
	if w.Cores != "" && !e.cores[w.Cores] {
		e.cores[w.Cores] = true
		e.order = append(e.order, w.Cores)
	}
}

type module struct {
	b     *hdl.Block
	head  strings.Builder
	decls strings.Builder
	body  strings.Builder
	tmp   int
}

func ports(b *hdl.Block) []*hdl.Signal {
	var ps []*hdl.Signal
	for _, s := range b.Signals() {
		if s.Dir() != hdl.Local {
			ps = append(ps, s)
		}
	}
	return ps
}

func (m *module) header() {
	ps := ports(m.b)
	m.head.WriteString("module " + ModuleName(m.b))
	if len(ps) > 0 {
		names := make([]string, len(ps))
		for i, s := range ps {
			names[i] = s.Name()
		}
		m.head.WriteString("(" + strings.Join(names, ", ") + ")")
	}
	m.head.WriteString(";\n")
	for _, s := range ps {
		kw := "input"
		switch s.Dir() {
		case hdl.Out:
			kw = "output"
		case hdl.InOut:
			kw = "inout"
		}
		m.head.WriteString("    " + kw + rng(s.Width()) + s.Name() + ";\n")
	}
}

func rng(w int) string {
	if w == 1 {
		return " "
	}
	return " [" + strconv.Itoa(w-1) + ":0] "
}

func (m *module) decl(kind string, w int, name string) {
	m.decls.WriteString("    " + kind + rng(w) + name + ";\n")
}

// name returns the name of s in m: its own name for signals of m, or the
// name of the connecting wire for ports of children.
//
func (m *module) name(s *hdl.Signal) string {
	if s.Owner() == m.b {
		return s.Name()
	}
	return s.Owner().Name() + "$" + s.Name()
}

func (m *module) assign(dst *hdl.Signal, src hdl.Expr) {
	x := m.expr(src)
	m.body.WriteString("    assign " + m.name(dst) + " = " + x + ";\n")
}

func (m *module) instance(c *hdl.Block) {
	ps := ports(c)
	conns := make([]string, len(ps))
	for i, s := range ps {
		conns[i] = "." + s.Name() + "(" + c.Name() + "$" + s.Name() + ")"
	}
	m.body.WriteString("    " + ModuleName(c) + " " + c.Name() + "(" + strings.Join(conns, ", ") + ");\n")
}

func constant(w int, v uint64) string {
	return strconv.Itoa(w) + "'h" + strconv.FormatUint(v, 16)
}

// temp declares a wire holding the value of x.
//
func (m *module) temp(x string, w int) string {
	n := "tmp$" + strconv.Itoa(m.tmp)
	m.tmp++
	m.decl("wire", w, n)
	m.body.WriteString("    assign " + n + " = " + x + ";\n")
	return n
}

// expr renders x. Slices of anything but a signal go through temporary
// wires.
//
func (m *module) expr(x hdl.Expr) string {
	switch x := x.(type) {
	case *hdl.SignalExpr:
		return m.name(x.Signal)
	case hdl.ConstExpr:
		return constant(x.W, x.Value)
	case *hdl.UnaryExpr:
		op := "~"
		if x.Op == hdl.OpNeg {
			op = "-"
		}
		return "(" + op + m.expr(x.X) + ")"
	case *hdl.BinaryExpr:
		return "(" + m.expr(x.X) + " " + x.Op.String() + " " + m.expr(x.Y) + ")"
	case *hdl.ShiftExpr:
		op := " >> "
		if x.Left {
			op = " << "
		}
		return "(" + m.expr(x.X) + op + strconv.Itoa(x.N) + ")"
	case *hdl.MuxExpr:
		return "(" + m.expr(x.Sel) + " ? " + m.expr(x.B) + " : " + m.expr(x.A) + ")"
	case *hdl.SliceExpr:
		var base string
		if s, ok := x.X.(*hdl.SignalExpr); ok {
			if s.Signal.Width() == 1 {
				return m.name(s.Signal)
			}
			base = m.name(s.Signal)
		} else {
			base = m.temp(m.expr(x.X), x.X.Width())
		}
		if x.Hi == x.Lo {
			return base + "[" + strconv.Itoa(x.Hi) + "]"
		}
		return base + "[" + strconv.Itoa(x.Hi) + ":" + strconv.Itoa(x.Lo) + "]"
	case *hdl.ConcatExpr:
		parts := make([]string, len(x.Parts))
		for i, p := range x.Parts {
			parts[i] = m.expr(p)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	panic(errors.Errorf("unsupported expression type %T", x))
}
