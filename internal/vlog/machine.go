// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package vlog

import (
	"sort"

	"github.com/pkg/errors"
)

type evalFn func(nets []uint64) uint64

func mask(w int) uint64 {
	if w >= 64 {
		return ^uint64(0)
	}
	return 1<<uint(w) - 1
}

type cassign struct {
	dst int
	fn  evalFn
}

type calways struct {
	clk   int
	last  uint64
	loads []cassign
}

// Machine is a flattened, two-state evaluator for a design.
//
// Ports of instances are aliased to the nets they are connected to. All nets
// start at 0, then initial values are applied.
//
type Machine struct {
	d       *Design
	nets    []uint64
	widths  []int
	names   map[string]int
	inputs  map[string]bool
	assigns []cassign
	always  []calways
	started bool
}

// New flattens the module top of d.
//
func New(d *Design, top string) (*Machine, error) {
	m := d.Module(top)
	if m == nil {
		return nil, errors.Errorf("no module %s", top)
	}
	vm := &Machine{d: d, names: make(map[string]int), inputs: make(map[string]bool)}
	var inits []cassign
	if err := vm.flatten(m, "", nil, &inits, 0); err != nil {
		return nil, errors.Wrapf(err, "elaborate %s", top)
	}
	for _, i := range inits {
		vm.nets[i.dst] = i.fn(vm.nets) & mask(vm.widths[i.dst])
	}
	for _, n := range m.Nets {
		if n.Dir == "input" || n.Dir == "inout" {
			vm.inputs[n.Name] = true
		}
	}
	return vm, nil
}

func (vm *Machine) alloc(w int) int {
	vm.nets = append(vm.nets, 0)
	vm.widths = append(vm.widths, w)
	return len(vm.nets) - 1
}

func (vm *Machine) flatten(m *Module, prefix string, ports map[string]int, inits *[]cassign, depth int) error {
	if depth > 64 {
		return errors.Errorf("module %s: instance hierarchy too deep", m.Name)
	}
	scope := make(map[string]int, len(m.Nets))
	for _, n := range m.Nets {
		idx, ok := ports[n.Name]
		if ok && n.Dir == "" {
			return errors.Errorf("module %s: %s is not a port", m.Name, n.Name)
		}
		if ok {
			if w := vm.widths[idx]; w != n.Width {
				return errors.Errorf("module %s: port %s width %d connected to a %d bits net", m.Name, n.Name, n.Width, w)
			}
		} else {
			idx = vm.alloc(n.Width)
		}
		scope[n.Name] = idx
		vm.names[prefix+n.Name] = idx
	}
	for p := range ports {
		if _, ok := scope[p]; !ok {
			return errors.Errorf("module %s has no port %s", m.Name, p)
		}
	}
	c := &compiler{m: m, scope: scope, widths: vm.widths}
	lookup := func(name string) (int, error) {
		idx, ok := scope[name]
		if !ok {
			return 0, errors.Errorf("module %s: undeclared net %s", m.Name, name)
		}
		return idx, nil
	}
	compileAssign := func(a *Assign) (cassign, error) {
		dst, err := lookup(a.Net)
		if err != nil {
			return cassign{}, err
		}
		fn, _, err := c.compile(a.Expr)
		if err != nil {
			return cassign{}, err
		}
		w := mask(vm.widths[dst])
		return cassign{dst, func(nets []uint64) uint64 { return fn(nets) & w }}, nil
	}
	for _, a := range m.Assigns {
		ca, err := compileAssign(a)
		if err != nil {
			return err
		}
		vm.assigns = append(vm.assigns, ca)
	}
	for _, a := range m.Inits {
		ca, err := compileAssign(a)
		if err != nil {
			return err
		}
		*inits = append(*inits, ca)
	}
	for _, a := range m.Always {
		clk, err := lookup(a.Clock)
		if err != nil {
			return err
		}
		ca := calways{clk: clk}
		for i := range a.Loads {
			l, err := compileAssign(&a.Loads[i])
			if err != nil {
				return err
			}
			ca.loads = append(ca.loads, l)
		}
		vm.always = append(vm.always, ca)
	}
	for _, inst := range m.Instances {
		sub := vm.d.Module(inst.Module)
		if sub == nil {
			return errors.Errorf("module %s: instance %s of unknown module %s", m.Name, inst.Name, inst.Module)
		}
		conns := make(map[string]int, len(inst.Conns))
		for _, cn := range inst.Conns {
			idx, err := lookup(cn.Net)
			if err != nil {
				return err
			}
			conns[cn.Port] = idx
		}
		if err := vm.flatten(sub, prefix+inst.Name+".", conns, inits, depth+1); err != nil {
			return err
		}
	}
	return nil
}

type compiler struct {
	m      *Module
	scope  map[string]int
	widths []int
}

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// compile returns an evaluation function for x and its width.
//
func (c *compiler) compile(x Expr) (evalFn, int, error) {
	switch x := x.(type) {
	case *Num:
		v, w := x.Val, x.Width
		if w == 0 {
			w = 32
		}
		return func([]uint64) uint64 { return v }, w, nil
	case *Ref:
		idx, ok := c.scope[x.Name]
		if !ok {
			return nil, 0, errors.Errorf("module %s: undeclared net %s", c.m.Name, x.Name)
		}
		w := c.widths[idx]
		if !x.Sliced {
			return func(nets []uint64) uint64 { return nets[idx] }, w, nil
		}
		if x.Hi < x.Lo || x.Hi >= w {
			return nil, 0, errors.Errorf("module %s: invalid slice %s[%d:%d]", c.m.Name, x.Name, x.Hi, x.Lo)
		}
		lo, sw := uint(x.Lo), x.Hi-x.Lo+1
		m := mask(sw)
		return func(nets []uint64) uint64 { return nets[idx] >> lo & m }, sw, nil
	case *Unary:
		fx, w, err := c.compile(x.X)
		if err != nil {
			return nil, 0, err
		}
		m := mask(w)
		if x.Op == "-" {
			return func(nets []uint64) uint64 { return -fx(nets) & m }, w, nil
		}
		return func(nets []uint64) uint64 { return ^fx(nets) & m }, w, nil
	case *Binary:
		return c.binary(x)
	case *Cond:
		fc, _, err := c.compile(x.C)
		if err != nil {
			return nil, 0, err
		}
		ft, wt, err := c.compile(x.T)
		if err != nil {
			return nil, 0, err
		}
		ff, wf, err := c.compile(x.F)
		if err != nil {
			return nil, 0, err
		}
		if wf > wt {
			wt = wf
		}
		return func(nets []uint64) uint64 {
			if fc(nets) != 0 {
				return ft(nets)
			}
			return ff(nets)
		}, wt, nil
	case *Concat:
		fns := make([]evalFn, len(x.Parts))
		ws := make([]int, len(x.Parts))
		total := 0
		for i, p := range x.Parts {
			if n, ok := p.(*Num); ok && n.Width == 0 {
				return nil, 0, errors.Errorf("module %s: unsized number in concatenation", c.m.Name)
			}
			f, w, err := c.compile(p)
			if err != nil {
				return nil, 0, err
			}
			fns[i], ws[i] = f, w
			total += w
		}
		if total > 64 {
			return nil, 0, errors.Errorf("module %s: concatenation wider than 64 bits", c.m.Name)
		}
		return func(nets []uint64) uint64 {
			var v uint64
			for i, f := range fns {
				v = v<<uint(ws[i]) | f(nets)&mask(ws[i])
			}
			return v
		}, total, nil
	}
	return nil, 0, errors.Errorf("unsupported expression %T", x)
}

func (c *compiler) binary(x *Binary) (evalFn, int, error) {
	fx, wx, err := c.compile(x.X)
	if err != nil {
		return nil, 0, err
	}
	fy, wy, err := c.compile(x.Y)
	if err != nil {
		return nil, 0, err
	}
	w := wx
	if wy > w {
		w = wy
	}
	m := mask(w)
	switch x.Op {
	case "&":
		return func(n []uint64) uint64 { return fx(n) & fy(n) }, w, nil
	case "|":
		return func(n []uint64) uint64 { return fx(n) | fy(n) }, w, nil
	case "^":
		return func(n []uint64) uint64 { return fx(n) ^ fy(n) }, w, nil
	case "+":
		return func(n []uint64) uint64 { return (fx(n) + fy(n)) & m }, w, nil
	case "-":
		return func(n []uint64) uint64 { return (fx(n) - fy(n)) & m }, w, nil
	case "==":
		return func(n []uint64) uint64 { return b2u(fx(n) == fy(n)) }, 1, nil
	case "!=":
		return func(n []uint64) uint64 { return b2u(fx(n) != fy(n)) }, 1, nil
	case "<":
		return func(n []uint64) uint64 { return b2u(fx(n) < fy(n)) }, 1, nil
	case "<=":
		return func(n []uint64) uint64 { return b2u(fx(n) <= fy(n)) }, 1, nil
	case ">":
		return func(n []uint64) uint64 { return b2u(fx(n) > fy(n)) }, 1, nil
	case "<<":
		mx := mask(wx)
		return func(n []uint64) uint64 {
			s := fy(n)
			if s >= 64 {
				return 0
			}
			return fx(n) << s & mx
		}, wx, nil
	case ">>":
		return func(n []uint64) uint64 {
			s := fy(n)
			if s >= 64 {
				return 0
			}
			return fx(n) >> s
		}, wx, nil
	}
	return nil, 0, errors.Errorf("unsupported operator %s", x.Op)
}

// Names returns the hierarchical names of all nets, sorted. Nets of
// instances are prefixed with the instance path, like "counter.q".
//
func (vm *Machine) Names() []string {
	ns := make([]string, 0, len(vm.names))
	for n := range vm.names {
		ns = append(ns, n)
	}
	sort.Strings(ns)
	return ns
}

// Set sets the top level input name to v. The change takes effect on the
// next Settle.
//
func (vm *Machine) Set(name string, v uint64) error {
	if !vm.inputs[name] {
		return errors.Errorf("%s is not an input of the top module", name)
	}
	idx := vm.names[name]
	vm.nets[idx] = v & mask(vm.widths[idx])
	return nil
}

// Get returns the value of the net with the given hierarchical name.
//
func (vm *Machine) Get(name string) (uint64, error) {
	idx, ok := vm.names[name]
	if !ok {
		return 0, errors.Errorf("no net %s", name)
	}
	return vm.nets[idx], nil
}

func (vm *Machine) settle() error {
	limit := len(vm.assigns) + 2
	for i := 0; i < limit; i++ {
		changed := false
		for _, a := range vm.assigns {
			if v := a.fn(vm.nets); v != vm.nets[a.dst] {
				vm.nets[a.dst] = v
				changed = true
			}
		}
		if !changed {
			return nil
		}
	}
	return errors.Errorf("no fixpoint after %d passes", limit)
}

// Settle propagates input changes through continuous assignments and fires
// the always blocks whose clock rose, until nothing changes. Clock levels
// seen by the first call are not edges.
//
func (vm *Machine) Settle() error {
	if err := vm.settle(); err != nil {
		return err
	}
	if !vm.started {
		vm.started = true
		for i := range vm.always {
			vm.always[i].last = vm.nets[vm.always[i].clk] & 1
		}
		return nil
	}
	var loads []cassign
	var vals []uint64
	for iter := 0; ; iter++ {
		loads, vals = loads[:0], vals[:0]
		for i := range vm.always {
			a := &vm.always[i]
			v := vm.nets[a.clk] & 1
			if v == 1 && a.last == 0 {
				loads = append(loads, a.loads...)
			}
			a.last = v
		}
		if len(loads) == 0 {
			return nil
		}
		if iter > len(vm.always) {
			return errors.New("clock edges do not settle")
		}
		for _, l := range loads {
			vals = append(vals, l.fn(vm.nets))
		}
		for i, l := range loads {
			vm.nets[l.dst] = vals[i]
		}
		if err := vm.settle(); err != nil {
			return err
		}
	}
}
