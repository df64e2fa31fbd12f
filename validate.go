// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

// Validate checks the structure of the block tree rooted at root:
//
//	- construction errors recorded on any block are reported first
//	- every element only reads signals of its own block or of its direct
//	  children, and only drives its own outputs and locals, or the inputs of
//	  its direct children (*ScopeError)
//	- every signal that must be driven has exactly one driver
//	  (*DanglingPortError, *MultipleDriverError). The inputs of root are
//	  driven by the environment and must have no other driver.
//	- no signal depends combinationally on itself (*CombinationalCycleError).
//	  Registers and edge funcs break dependencies, combinational funcs
//	  depend on the signals they read (see Block.Comb).
//
// Validate does not modify the tree. Errors are reported in tree order, so
// that the same tree always yields the same error.
//
func Validate(root *Block) error {
	var err error
	root.Walk(func(b *Block) {
		if err == nil && b.err != nil {
			err = b.err
		}
	})
	if err != nil {
		return err
	}

	v := &validator{root: root, drivers: make(map[*Signal][]string)}
	root.Walk(v.collect)
	if v.err != nil {
		return v.err
	}
	root.Walk(v.check)
	if v.err != nil {
		return v.err
	}
	v.cycles()
	return v.err
}

type validator struct {
	root    *Block
	drivers map[*Signal][]string
	err     error
}

func (v *validator) fail(err error) {
	if v.err == nil {
		v.err = err
	}
}

func canSee(b *Block, s *Signal) bool {
	return s.owner == b || s.owner.parent == b
}

func canDrive(b *Block, s *Signal) bool {
	if s.owner == b {
		return s.dir == Out || s.dir == Local
	}
	if s.owner.parent == b {
		return s.dir == In || s.dir == InOut
	}
	return false
}

func (v *validator) see(b *Block, s *Signal) {
	if !canSee(b, s) {
		v.fail(&ScopeError{Block: b.Path(), Path: s.Path(), Msg: "reads out of scope signal"})
	}
}

func (v *validator) drive(b *Block, s *Signal, what string) {
	if !canDrive(b, s) {
		v.fail(&ScopeError{Block: b.Path(), Path: s.Path(), Msg: "cannot drive " + s.dir.String() + " signal"})
		return
	}
	v.drivers[s] = append(v.drivers[s], what+" in "+b.Path())
}

// collect records the driver of every signal driven by an element of b.
//
func (v *validator) collect(b *Block) {
	see := func(s *Signal) { v.see(b, s) }
	for _, a := range b.assigns {
		a.Src.walk(see)
		v.drive(b, a.Dst, "assign")
	}
	for _, r := range b.regs {
		see(r.Clock)
		r.D.walk(see)
		if r.Q.owner != b {
			v.fail(&ScopeError{Block: b.Path(), Path: r.Q.Path(), Msg: "register target not owned by block"})
			continue
		}
		v.drive(b, r.Q, "register")
	}
	for _, f := range b.funcs {
		what := "comb func"
		if f.Clock != nil {
			see(f.Clock)
			what = "edge func"
		}
		for _, s := range f.Reads {
			see(s)
		}
		for _, s := range f.Drives {
			v.drive(b, s, what)
		}
	}
	for _, e := range b.edges {
		see(e.Src)
		what := "link"
		if e.Join {
			what = "join"
		}
		v.drive(b, e.Dst, what)
	}
}

func (v *validator) check(b *Block) {
	for _, s := range b.signals {
		if v.err != nil {
			return
		}
		d := v.drivers[s]
		ext := b == v.root && (s.dir == In || s.dir == InOut)
		switch {
		case ext && len(d) > 0:
			v.fail(&MultipleDriverError{Path: s.Path(), Drivers: append([]string{"environment"}, d...)})
		case ext:
		case len(d) == 0:
			v.fail(&DanglingPortError{Path: s.Path(), Dir: s.dir})
		case len(d) > 1:
			v.fail(&MultipleDriverError{Path: s.Path(), Drivers: d})
		}
	}
}

// combReads returns the signals read by the combinational func f of b.
//
func combReads(b *Block, f Func) []*Signal {
	if f.Reads != nil {
		return f.Reads
	}
	var rs []*Signal
	add := func(ss []*Signal) {
	next:
		for _, s := range ss {
			for _, d := range f.Drives {
				if s == d {
					continue next
				}
			}
			rs = append(rs, s)
		}
	}
	add(b.signals)
	for _, c := range b.children {
		add(c.signals)
	}
	return rs
}

// cycles looks for a signal that depends combinationally on itself, visiting
// signals in tree order. The reported path starts and ends with the same
// signal, each signal being computed from the next one.
//
func (v *validator) cycles() {
	var order []*Signal
	deps := make(map[*Signal][]*Signal)
	v.root.Walk(func(b *Block) {
		order = append(order, b.signals...)
		for _, a := range b.assigns {
			dst := a.Dst
			a.Src.walk(func(s *Signal) { deps[dst] = append(deps[dst], s) })
		}
		for _, e := range b.edges {
			deps[e.Dst] = append(deps[e.Dst], e.Src)
		}
		for _, f := range b.funcs {
			if f.Clock != nil {
				continue
			}
			rs := combReads(b, f)
			for _, d := range f.Drives {
				deps[d] = append(deps[d], rs...)
			}
		}
	})

	const (
		unseen = iota
		visiting
		visited
	)
	state := make(map[*Signal]int)
	var stack []*Signal
	var visit func(s *Signal) bool
	visit = func(s *Signal) bool {
		switch state[s] {
		case visited:
			return false
		case visiting:
			i := len(stack) - 1
			for stack[i] != s {
				i--
			}
			paths := make([]string, 0, len(stack)-i+1)
			for _, p := range stack[i:] {
				paths = append(paths, p.Path())
			}
			v.fail(&CombinationalCycleError{Paths: append(paths, s.Path())})
			return true
		}
		state[s] = visiting
		stack = append(stack, s)
		for _, d := range deps[s] {
			if visit(d) {
				return true
			}
		}
		stack = stack[:len(stack)-1]
		state[s] = visited
		return false
	}
	for _, s := range order {
		if visit(s) {
			return
		}
	}
}
