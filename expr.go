// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

import (
	"strconv"
	"strings"
)

// An Expr is a combinational expression over signals and constants.
//
// The set of expression types is closed: *SignalExpr, ConstExpr, *UnaryExpr,
// *BinaryExpr, *ShiftExpr, *MuxExpr, *SliceExpr and *ConcatExpr. Both the
// simulator and the Verilog emitter handle every one of them.
//
// Operands of binary operators must have the same width; results wrap to that
// width. Comparisons are unsigned and yield a 1 bit value. Width violations
// are reported as a *WidthError when the expression is used by a block.
//
type Expr interface {
	// Width returns the width in bits of the expression value.
	Width() int
	// String returns a compact textual form, used in error messages.
	String() string

	eval(c *Circuit) uint64
	check() error
	walk(fn func(*Signal))
}

// SignalExpr reads the current value of a signal.
//
type SignalExpr struct {
	Signal *Signal
}

// Sig returns an expression reading s.
//
func Sig(s *Signal) *SignalExpr { return &SignalExpr{s} }

// Width implements Expr.
func (e *SignalExpr) Width() int { return e.Signal.width }

func (e *SignalExpr) String() string { return e.Signal.name }

func (e *SignalExpr) eval(c *Circuit) uint64 { return c.cur[e.Signal.id] }
func (e *SignalExpr) check() error           { return nil }
func (e *SignalExpr) walk(fn func(*Signal))  { fn(e.Signal) }

// ConstExpr is a constant of a given width.
//
type ConstExpr struct {
	W     int
	Value uint64
}

// Const returns a constant expression.
//
func Const(width int, v uint64) ConstExpr { return ConstExpr{width, v} }

// Bool returns a 1 bit constant.
//
func Bool(b bool) ConstExpr {
	if b {
		return ConstExpr{1, 1}
	}
	return ConstExpr{1, 0}
}

// Width implements Expr.
func (e ConstExpr) Width() int { return e.W }

func (e ConstExpr) String() string {
	return strconv.Itoa(e.W) + "'h" + strconv.FormatUint(e.Value, 16)
}

func (e ConstExpr) eval(*Circuit) uint64 { return e.Value }
func (e ConstExpr) walk(func(*Signal))   {}

func (e ConstExpr) check() error {
	if err := checkWidth(e.W, e.String()); err != nil {
		return err
	}
	if e.Value&^Mask(e.W) != 0 {
		return &WidthError{Msg: "constant " + strconv.FormatUint(e.Value, 10) + " does not fit in " + strconv.Itoa(e.W) + " bits"}
	}
	return nil
}

// UnaryOp is a unary operator.
//
type UnaryOp int

// Unary operators.
//
const (
	OpNot UnaryOp = iota // bitwise not
	OpNeg                // two's complement negation
)

// UnaryExpr applies a unary operator.
//
type UnaryExpr struct {
	Op UnaryOp
	X  Expr
}

// Not returns the bitwise complement of x.
//
func Not(x Expr) *UnaryExpr { return &UnaryExpr{OpNot, x} }

// Neg returns the two's complement negation of x.
//
func Neg(x Expr) *UnaryExpr { return &UnaryExpr{OpNeg, x} }

// Width implements Expr.
func (e *UnaryExpr) Width() int { return e.X.Width() }

func (e *UnaryExpr) String() string {
	if e.Op == OpNeg {
		return "-" + e.X.String()
	}
	return "~" + e.X.String()
}

func (e *UnaryExpr) eval(c *Circuit) uint64 {
	x := e.X.eval(c)
	if e.Op == OpNeg {
		return -x & Mask(e.X.Width())
	}
	return ^x & Mask(e.X.Width())
}

func (e *UnaryExpr) check() error          { return e.X.check() }
func (e *UnaryExpr) walk(fn func(*Signal)) { e.X.walk(fn) }

// BinaryOp is a binary operator.
//
type BinaryOp int

// Binary operators.
//
const (
	OpAnd BinaryOp = iota
	OpOr
	OpXor
	OpAdd
	OpSub
	OpEq
	OpNe
	OpLt
	OpLe
)

var binOps = [...]string{"&", "|", "^", "+", "-", "==", "!=", "<", "<="}

func (op BinaryOp) String() string { return binOps[op] }

// IsCompare returns true for comparison operators, which yield a 1 bit result.
//
func (op BinaryOp) IsCompare() bool { return op >= OpEq }

// BinaryExpr applies a binary operator to two operands of the same width.
//
type BinaryExpr struct {
	Op   BinaryOp
	X, Y Expr
}

// And returns x & y.
func And(x, y Expr) *BinaryExpr { return &BinaryExpr{OpAnd, x, y} }

// Or returns x | y.
func Or(x, y Expr) *BinaryExpr { return &BinaryExpr{OpOr, x, y} }

// Xor returns x ^ y.
func Xor(x, y Expr) *BinaryExpr { return &BinaryExpr{OpXor, x, y} }

// Add returns x + y, wrapping.
func Add(x, y Expr) *BinaryExpr { return &BinaryExpr{OpAdd, x, y} }

// Sub returns x - y, wrapping.
func Sub(x, y Expr) *BinaryExpr { return &BinaryExpr{OpSub, x, y} }

// Eq returns x == y.
func Eq(x, y Expr) *BinaryExpr { return &BinaryExpr{OpEq, x, y} }

// Ne returns x != y.
func Ne(x, y Expr) *BinaryExpr { return &BinaryExpr{OpNe, x, y} }

// Lt returns x < y.
func Lt(x, y Expr) *BinaryExpr { return &BinaryExpr{OpLt, x, y} }

// Le returns x <= y.
func Le(x, y Expr) *BinaryExpr { return &BinaryExpr{OpLe, x, y} }

// Width implements Expr.
func (e *BinaryExpr) Width() int {
	if e.Op.IsCompare() {
		return 1
	}
	return e.X.Width()
}

func (e *BinaryExpr) String() string {
	return "(" + e.X.String() + " " + e.Op.String() + " " + e.Y.String() + ")"
}

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func (e *BinaryExpr) eval(c *Circuit) uint64 {
	x, y := e.X.eval(c), e.Y.eval(c)
	switch e.Op {
	case OpAnd:
		return x & y
	case OpOr:
		return x | y
	case OpXor:
		return x ^ y
	case OpAdd:
		return (x + y) & Mask(e.X.Width())
	case OpSub:
		return (x - y) & Mask(e.X.Width())
	case OpEq:
		return b2u(x == y)
	case OpNe:
		return b2u(x != y)
	case OpLt:
		return b2u(x < y)
	case OpLe:
		return b2u(x <= y)
	}
	panic("invalid binary operator " + strconv.Itoa(int(e.Op)))
}

func (e *BinaryExpr) check() error {
	if err := e.X.check(); err != nil {
		return err
	}
	if err := e.Y.check(); err != nil {
		return err
	}
	if e.X.Width() != e.Y.Width() {
		return &WidthError{Msg: "operand widths differ in " + e.String() + ": " +
			strconv.Itoa(e.X.Width()) + " != " + strconv.Itoa(e.Y.Width())}
	}
	return nil
}

func (e *BinaryExpr) walk(fn func(*Signal)) {
	e.X.walk(fn)
	e.Y.walk(fn)
}

// ShiftExpr shifts its operand by a constant amount, keeping its width.
//
type ShiftExpr struct {
	Left bool
	X    Expr
	N    int
}

// Shl returns x << n.
func Shl(x Expr, n int) *ShiftExpr { return &ShiftExpr{true, x, n} }

// Shr returns x >> n (logical).
func Shr(x Expr, n int) *ShiftExpr { return &ShiftExpr{false, x, n} }

// Width implements Expr.
func (e *ShiftExpr) Width() int { return e.X.Width() }

func (e *ShiftExpr) String() string {
	op := " >> "
	if e.Left {
		op = " << "
	}
	return "(" + e.X.String() + op + strconv.Itoa(e.N) + ")"
}

func (e *ShiftExpr) eval(c *Circuit) uint64 {
	if e.N >= 64 {
		return 0
	}
	if e.Left {
		return e.X.eval(c) << uint(e.N) & Mask(e.X.Width())
	}
	return e.X.eval(c) >> uint(e.N)
}

func (e *ShiftExpr) check() error {
	if e.N < 0 {
		return &WidthError{Msg: "negative shift amount in " + e.String()}
	}
	return e.X.check()
}

func (e *ShiftExpr) walk(fn func(*Signal)) { e.X.walk(fn) }

// MuxExpr selects A when Sel is 0, B otherwise.
//
type MuxExpr struct {
	Sel, A, B Expr
}

// Mux returns an expression selecting a when sel is 0 and b when sel is 1.
//
func Mux(sel, a, b Expr) *MuxExpr { return &MuxExpr{sel, a, b} }

// Width implements Expr.
func (e *MuxExpr) Width() int { return e.A.Width() }

func (e *MuxExpr) String() string {
	return "(" + e.Sel.String() + " ? " + e.B.String() + " : " + e.A.String() + ")"
}

func (e *MuxExpr) eval(c *Circuit) uint64 {
	if e.Sel.eval(c) != 0 {
		return e.B.eval(c)
	}
	return e.A.eval(c)
}

func (e *MuxExpr) check() error {
	for _, x := range []Expr{e.Sel, e.A, e.B} {
		if err := x.check(); err != nil {
			return err
		}
	}
	if e.Sel.Width() != 1 {
		return &WidthError{Msg: "mux selector " + e.Sel.String() + " is " + strconv.Itoa(e.Sel.Width()) + " bits wide"}
	}
	if e.A.Width() != e.B.Width() {
		return &WidthError{Msg: "mux arm widths differ in " + e.String() + ": " +
			strconv.Itoa(e.A.Width()) + " != " + strconv.Itoa(e.B.Width())}
	}
	return nil
}

func (e *MuxExpr) walk(fn func(*Signal)) {
	e.Sel.walk(fn)
	e.A.walk(fn)
	e.B.walk(fn)
}

// SliceExpr extracts bits Hi down to Lo (inclusive) of X.
//
type SliceExpr struct {
	X      Expr
	Hi, Lo int
}

// Slice returns bits hi..lo of x.
//
func Slice(x Expr, hi, lo int) *SliceExpr { return &SliceExpr{x, hi, lo} }

// Bit returns bit n of x.
//
func Bit(x Expr, n int) *SliceExpr { return &SliceExpr{x, n, n} }

// Width implements Expr.
func (e *SliceExpr) Width() int { return e.Hi - e.Lo + 1 }

func (e *SliceExpr) String() string {
	if e.Hi == e.Lo {
		return e.X.String() + "[" + strconv.Itoa(e.Hi) + "]"
	}
	return e.X.String() + "[" + strconv.Itoa(e.Hi) + ":" + strconv.Itoa(e.Lo) + "]"
}

func (e *SliceExpr) eval(c *Circuit) uint64 {
	return e.X.eval(c) >> uint(e.Lo) & Mask(e.Width())
}

func (e *SliceExpr) check() error {
	if err := e.X.check(); err != nil {
		return err
	}
	if e.Lo < 0 || e.Hi < e.Lo || e.Hi >= e.X.Width() {
		return &WidthError{Msg: "slice " + e.String() + " out of range for " + strconv.Itoa(e.X.Width()) + " bits"}
	}
	return nil
}

func (e *SliceExpr) walk(fn func(*Signal)) { e.X.walk(fn) }

// ConcatExpr concatenates its parts, most significant first.
//
type ConcatExpr struct {
	Parts []Expr
}

// Concat returns the concatenation of parts, most significant first.
//
func Concat(parts ...Expr) *ConcatExpr { return &ConcatExpr{parts} }

// Width implements Expr.
func (e *ConcatExpr) Width() int {
	w := 0
	for _, p := range e.Parts {
		w += p.Width()
	}
	return w
}

func (e *ConcatExpr) String() string {
	s := make([]string, len(e.Parts))
	for i, p := range e.Parts {
		s[i] = p.String()
	}
	return "{" + strings.Join(s, ", ") + "}"
}

func (e *ConcatExpr) eval(c *Circuit) uint64 {
	var v uint64
	for _, p := range e.Parts {
		v = v<<uint(p.Width()) | p.eval(c)
	}
	return v
}

func (e *ConcatExpr) check() error {
	if len(e.Parts) == 0 {
		return &WidthError{Msg: "empty concatenation"}
	}
	for _, p := range e.Parts {
		if err := p.check(); err != nil {
			return err
		}
	}
	return checkWidth(e.Width(), e.String())
}

func (e *ConcatExpr) walk(fn func(*Signal)) {
	for _, p := range e.Parts {
		p.walk(fn)
	}
}

func checkWidth(w int, what string) error {
	if w < 1 || w > MaxWidth {
		return &WidthError{Msg: "invalid width " + strconv.Itoa(w) + " for " + what}
	}
	return nil
}
