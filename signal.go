// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

import "strconv"

// MaxWidth is the widest bit vector a Signal can hold.
//
const MaxWidth = 64

// Direction is the direction of a signal, as seen from the block that owns it.
//
type Direction int

// Signal directions.
//
const (
	Local Direction = iota // internal to the owning block
	In                     // driven by the parent (or the environment for a root block)
	Out                    // driven by the owning block
	InOut                  // driven by the parent, readable and forwardable by the owner
)

var dirNames = [...]string{"local", "in", "out", "inout"}

func (d Direction) String() string {
	if d < 0 || int(d) >= len(dirNames) {
		return "Direction(" + strconv.Itoa(int(d)) + ")"
	}
	return dirNames[d]
}

// A Signal is a fixed width bit vector owned by a Block.
//
// A Signal only carries structural information: its value lives in the arena
// of each Circuit elaborated from the block tree. Use Circuit.Get to read it.
//
type Signal struct {
	name  string
	dir   Direction
	width int
	clock bool
	owner *Block
	iface *Interface
	id    int // arena slot, assigned once by Elaborate
}

// Name returns the signal name within its owner.
//
func (s *Signal) Name() string { return s.name }

// Dir returns the signal direction.
//
func (s *Signal) Dir() Direction { return s.dir }

// Width returns the signal width in bits.
//
func (s *Signal) Width() int { return s.width }

// IsClock returns true if the signal was declared as a clock input.
//
func (s *Signal) IsClock() bool { return s.clock }

// Owner returns the block that owns s.
//
func (s *Signal) Owner() *Block { return s.owner }

// Interface returns the interface s is a member of, if any.
//
func (s *Signal) Interface() *Interface { return s.iface }

// Path returns the hierarchical name of s, like "top.counter.q".
//
func (s *Signal) Path() string {
	if s.owner == nil {
		return s.name
	}
	return s.owner.Path() + "." + s.name
}

func (s *Signal) String() string { return s.Path() }

// Mask returns a mask covering the low width bits.
//
func Mask(width int) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return 1<<uint(width) - 1
}
