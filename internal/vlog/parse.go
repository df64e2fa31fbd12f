// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package vlog reads and evaluates the subset of Verilog produced by the
// verilog package: non-ANSI modules with wires, regs, continuous assignments,
// initial values, posedge always blocks of non-blocking assignments, and
// module instances with named connections.
//
// It is used to check that emitted netlists behave like the simulated
// circuits they are rendered from.
//
package vlog

import (
	"github.com/pkg/errors"
)

// Design is a set of modules.
//
type Design struct {
	Modules []*Module
	byName  map[string]*Module
}

// Module returns the module with the given name, or nil.
//
func (d *Design) Module(name string) *Module { return d.byName[name] }

// Module is a parsed module.
//
type Module struct {
	Name      string
	Ports     []string
	Nets      []*Net
	Assigns   []*Assign
	Inits     []*Assign
	Always    []*Always
	Instances []*Instance
	nets      map[string]*Net
}

// Net returns the net with the given name, or nil.
//
func (m *Module) Net(name string) *Net { return m.nets[name] }

// Net is a port, wire or reg.
//
type Net struct {
	Name  string
	Width int
	Dir   string // "input", "output", "inout", or empty for internal nets
	Reg   bool
}

// Assign is a continuous assignment, or an initial value.
//
type Assign struct {
	Net  string
	Expr Expr
}

// Always is a block of non-blocking assignments triggered on the rising edge
// of Clock.
//
type Always struct {
	Clock string
	Loads []Assign
}

// Instance is a module instance.
//
type Instance struct {
	Module string
	Name   string
	Conns  []Conn
}

// Conn is a named port connection.
//
type Conn struct {
	Port string
	Net  string
}

// Expr is an expression node: *Ref, *Num, *Unary, *Binary, *Cond or *Concat.
//
type Expr interface {
	expr()
}

// Ref reads a net, or a slice of it when Sliced is true.
//
type Ref struct {
	Name   string
	Sliced bool
	Hi, Lo int
}

// Num is a number. Width is 0 for unsized numbers.
//
type Num struct {
	Val   uint64
	Width int
}

// Unary is an unary operation.
//
type Unary struct {
	Op string
	X  Expr
}

// Binary is a binary operation.
//
type Binary struct {
	Op   string
	X, Y Expr
}

// Cond is the conditional operator C ? T : F.
//
type Cond struct {
	C, T, F Expr
}

// Concat is a concatenation, most significant part first.
//
type Concat struct {
	Parts []Expr
}

func (*Ref) expr()    {}
func (*Num) expr()    {}
func (*Unary) expr()  {}
func (*Binary) expr() {}
func (*Cond) expr()   {}
func (*Concat) expr() {}

type parser struct {
	toks []Token
	cur  int
}

// Parse parses src.
//
func Parse(src string) (*Design, error) {
	toks, err := Lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	d := &Design{byName: make(map[string]*Module)}
	if err := p.design(d); err != nil {
		return nil, err
	}
	return d, nil
}

// bail is the panic value used to abort parsing.
//
type bail struct{ err error }

func (p *parser) errorf(format string, args ...interface{}) {
	t := p.peek()
	panic(bail{errors.Errorf("line %d: "+format, append([]interface{}{t.Line}, args...)...)})
}

func (p *parser) peek() Token { return p.toks[p.cur] }

func (p *parser) next() Token {
	t := p.toks[p.cur]
	if t.Type != EOF {
		p.cur++
	}
	return t
}

func (p *parser) is(val string) bool {
	t := p.peek()
	return (t.Type == Punct || t.Type == Ident) && t.Val == val
}

func (p *parser) match(val string) bool {
	if p.is(val) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(val string) {
	if !p.match(val) {
		p.errorf("expected %q, got %s", val, p.peek())
	}
}

func (p *parser) ident() string {
	t := p.next()
	if t.Type != Ident {
		p.cur--
		p.errorf("expected identifier, got %s", t)
	}
	return t.Val
}

func (p *parser) number() int {
	t := p.next()
	if t.Type != Number {
		p.cur--
		p.errorf("expected number, got %s", t)
	}
	return int(t.Num)
}

func (p *parser) design(d *Design) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bail)
			if !ok {
				panic(r)
			}
			err = b.err
		}
	}()
	for p.peek().Type != EOF {
		m := p.module()
		if d.byName[m.Name] != nil {
			return errors.Errorf("module %s redefined", m.Name)
		}
		d.byName[m.Name] = m
		d.Modules = append(d.Modules, m)
	}
	return nil
}

func (p *parser) module() *Module {
	p.expect("module")
	m := &Module{Name: p.ident(), nets: make(map[string]*Net)}
	if p.match("(") {
		if !p.is(")") {
			m.Ports = append(m.Ports, p.ident())
			for p.match(",") {
				m.Ports = append(m.Ports, p.ident())
			}
		}
		p.expect(")")
	}
	p.expect(";")
	for !p.match("endmodule") {
		if p.peek().Type == EOF {
			p.errorf("missing endmodule in %s", m.Name)
		}
		p.item(m)
	}
	for _, n := range m.Ports {
		if net := m.nets[n]; net == nil || net.Dir == "" {
			panic(bail{errors.Errorf("module %s: port %s has no direction", m.Name, n)})
		}
	}
	return m
}

func (p *parser) rng() int {
	if !p.match("[") {
		return 1
	}
	hi := p.number()
	p.expect(":")
	lo := p.number()
	p.expect("]")
	if lo != 0 || hi < 0 || hi > 63 {
		p.errorf("unsupported range [%d:%d]", hi, lo)
	}
	return hi + 1
}

func (p *parser) item(m *Module) {
	switch t := p.peek(); {
	case p.is("input") || p.is("output") || p.is("inout") || p.is("wire") || p.is("reg"):
		p.next()
		w := p.rng()
		for {
			p.declare(m, t.Val, p.ident(), w)
			if !p.match(",") {
				break
			}
		}
		p.expect(";")
	case p.match("assign"):
		n := p.ident()
		p.expect("=")
		m.Assigns = append(m.Assigns, &Assign{n, p.expr()})
		p.expect(";")
	case p.match("initial"):
		n := p.ident()
		p.expect("=")
		m.Inits = append(m.Inits, &Assign{n, p.expr()})
		p.expect(";")
	case p.match("always"):
		p.expect("@")
		p.expect("(")
		p.expect("posedge")
		a := &Always{Clock: p.ident()}
		p.expect(")")
		if p.match("begin") {
			for !p.match("end") {
				a.Loads = append(a.Loads, p.load())
			}
		} else {
			a.Loads = append(a.Loads, p.load())
		}
		m.Always = append(m.Always, a)
	case t.Type == Ident:
		inst := &Instance{Module: p.ident(), Name: p.ident()}
		p.expect("(")
		if !p.is(")") {
			inst.Conns = append(inst.Conns, p.conn())
			for p.match(",") {
				inst.Conns = append(inst.Conns, p.conn())
			}
		}
		p.expect(")")
		p.expect(";")
		m.Instances = append(m.Instances, inst)
	default:
		p.errorf("unexpected %s", t)
	}
}

func (p *parser) declare(m *Module, kind, name string, w int) {
	n := m.nets[name]
	if n == nil {
		n = &Net{Name: name, Width: w}
		m.nets[name] = n
		m.Nets = append(m.Nets, n)
	} else if n.Width != w {
		p.errorf("width of %s redeclared: %d != %d", name, w, n.Width)
	}
	switch kind {
	case "reg":
		n.Reg = true
	case "wire":
	default:
		n.Dir = kind
	}
}

func (p *parser) load() Assign {
	n := p.ident()
	p.expect("<=")
	a := Assign{n, p.expr()}
	p.expect(";")
	return a
}

func (p *parser) conn() Conn {
	p.expect(".")
	c := Conn{Port: p.ident()}
	p.expect("(")
	c.Net = p.ident()
	p.expect(")")
	return c
}

// binary operator precedence, lowest first
var levels = [][]string{
	{"|"},
	{"^"},
	{"&"},
	{"==", "!="},
	{"<", "<=", ">"},
	{"<<", ">>"},
	{"+", "-"},
}

func (p *parser) expr() Expr {
	c := p.binary(0)
	if p.match("?") {
		t := p.expr()
		p.expect(":")
		f := p.expr()
		return &Cond{c, t, f}
	}
	return c
}

func (p *parser) binary(level int) Expr {
	if level == len(levels) {
		return p.unary()
	}
	x := p.binary(level + 1)
	for {
		op := ""
		for _, o := range levels[level] {
			if p.peek().Type == Punct && p.peek().Val == o {
				op = o
				break
			}
		}
		if op == "" {
			return x
		}
		p.next()
		x = &Binary{op, x, p.binary(level + 1)}
	}
}

func (p *parser) unary() Expr {
	if p.match("~") {
		return &Unary{"~", p.unary()}
	}
	if p.match("-") {
		return &Unary{"-", p.unary()}
	}
	return p.primary()
}

func (p *parser) primary() Expr {
	t := p.peek()
	switch {
	case t.Type == Number:
		p.next()
		return &Num{t.Num, t.Width}
	case t.Type == Ident:
		r := &Ref{Name: p.ident()}
		if p.match("[") {
			r.Sliced = true
			r.Hi = p.number()
			r.Lo = r.Hi
			if p.match(":") {
				r.Lo = p.number()
			}
			p.expect("]")
		}
		return r
	case p.match("("):
		x := p.expr()
		p.expect(")")
		return x
	case p.match("{"):
		c := &Concat{Parts: []Expr{p.expr()}}
		for p.match(",") {
			c.Parts = append(c.Parts, p.expr())
		}
		p.expect("}")
		return c
	}
	p.errorf("unexpected %s in expression", t)
	return nil
}
