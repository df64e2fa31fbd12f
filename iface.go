// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

import "strconv"

// An Interface is a named group of signals forming a contract between two
// blocks, like a bus. Member signals are owned by the block that declared the
// interface and are named "iface$member" in that block.
//
type Interface struct {
	name    string
	owner   *Block
	members []*Signal
	short   []string
}

// Interface declares a new interface on b.
//
func (b *Block) Interface(name string) *Interface {
	b.mutable()
	if !isIdent(name) {
		b.fail(&LinkError{Path: b.Path() + "." + name, Msg: "invalid interface name"})
	}
	b.declare(name)
	i := &Interface{name: name, owner: b}
	b.ifaces = append(b.ifaces, i)
	return i
}

// Name returns the interface name.
//
func (i *Interface) Name() string { return i.name }

// Owner returns the block that owns the interface.
//
func (i *Interface) Owner() *Block { return i.owner }

// Path returns the hierarchical name of the interface.
//
func (i *Interface) Path() string { return i.owner.Path() + "." + i.name }

// Members returns the member signals in declaration order.
//
func (i *Interface) Members() []*Signal { return i.members }

// Member returns the member with the given short name, or nil.
//
func (i *Interface) Member(name string) *Signal {
	for k, n := range i.short {
		if n == name {
			return i.members[k]
		}
	}
	return nil
}

func (i *Interface) add(name string, dir Direction, width int) *Signal {
	if !isIdent(name) {
		i.owner.fail(&LinkError{Path: i.Path() + "." + name, Msg: "invalid member name"})
	}
	s := i.owner.newSignal(i.name+"$"+name, dir, width, false)
	s.iface = i
	i.members = append(i.members, s)
	i.short = append(i.short, name)
	return s
}

// In adds a member flowing into the owner of the interface.
//
func (i *Interface) In(name string, width int) *Signal { return i.add(name, In, width) }

// Out adds a member driven by the owner of the interface.
//
func (i *Interface) Out(name string, width int) *Signal { return i.add(name, Out, width) }

// InOut adds a bidirectional member.
//
func (i *Interface) InOut(name string, width int) *Signal { return i.add(name, InOut, width) }

// matchMembers calls fn for each pair of members with the same short name.
// It records an error on b if the member sets or widths differ.
//
func (b *Block) matchMembers(x, y *Interface, fn func(xs, ys *Signal) bool) {
	if len(x.members) != len(y.members) {
		b.fail(&LinkError{Path: x.Path(), Msg: "member count differs from " + y.Path() + ": " +
			strconv.Itoa(len(x.members)) + " != " + strconv.Itoa(len(y.members))})
		return
	}
	for k, n := range x.short {
		ys := y.Member(n)
		xs := x.members[k]
		if ys == nil {
			b.fail(&LinkError{Path: xs.Path(), Msg: "no matching member in " + y.Path()})
			return
		}
		if xs.width != ys.width {
			b.fail(&WidthError{Path: xs.Path(), Msg: "width differs from " + ys.Path() + ": " +
				strconv.Itoa(xs.width) + " != " + strconv.Itoa(ys.width)})
			return
		}
		if !fn(xs, ys) {
			return
		}
	}
}

// Link forwards the interface inner of a child block to the interface outer
// of b. Members must have the same names, widths and directions. Values pass
// through unchanged: inputs flow from outer to inner, outputs from inner to
// outer.
//
func (b *Block) Link(outer, inner *Interface) {
	b.mutable()
	switch {
	case outer.owner != b:
		b.fail(&LinkError{Path: outer.Path(), Msg: "link: outer interface is not owned by " + b.Path()})
		return
	case inner.owner.parent != b:
		b.fail(&LinkError{Path: inner.Path(), Msg: "link: inner interface is not owned by a child of " + b.Path()})
		return
	}
	b.matchMembers(outer, inner, func(o, i *Signal) bool {
		if o.dir != i.dir {
			b.fail(&LinkError{Path: o.Path(), Msg: "link: direction " + o.dir.String() +
				" differs from " + i.Path() + " (" + i.dir.String() + ")"})
			return false
		}
		if o.dir == Out {
			b.edges = append(b.edges, Edge{Dst: o, Src: i})
		} else {
			b.edges = append(b.edges, Edge{Dst: i, Src: o})
		}
		return true
	})
}

// Join connects the interfaces of two children of b. Each member must be an
// output on one side and an input on the other; the output side drives the
// input side.
//
func (b *Block) Join(x, y *Interface) {
	b.mutable()
	switch {
	case x == y:
		b.fail(&LinkError{Path: x.Path(), Msg: "join: interface joined with itself"})
		return
	case x.owner.parent != b:
		b.fail(&LinkError{Path: x.Path(), Msg: "join: interface is not owned by a child of " + b.Path()})
		return
	case y.owner.parent != b:
		b.fail(&LinkError{Path: y.Path(), Msg: "join: interface is not owned by a child of " + b.Path()})
		return
	}
	b.matchMembers(x, y, func(xs, ys *Signal) bool {
		switch {
		case xs.dir == Out && ys.dir == In:
			b.edges = append(b.edges, Edge{Dst: ys, Src: xs, Join: true})
		case xs.dir == In && ys.dir == Out:
			b.edges = append(b.edges, Edge{Dst: xs, Src: ys, Join: true})
		default:
			b.fail(&LinkError{Path: xs.Path(), Msg: "join: no single producer between " +
				xs.dir.String() + " and " + ys.Path() + " (" + ys.dir.String() + ")"})
			return false
		}
		return true
	})
}
