// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

import (
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

var signalType = reflect.TypeOf((*Signal)(nil))

// Ports declares the signals of b from the *Signal fields of the struct
// pointed to by v, and stores them in those fields.
//
// The field tag identifies the direction and width of the signal:
//
//	`hdl:"in"`          1 bit input
//	`hdl:"out,8"`       8 bits output
//	`hdl:"inout,w"`     input-output of width w
//	`hdl:"local,4,tmp"` 4 bits local signal named tmp
//	`hdl:"clock"`       clock input
//
// By default, the signal name is the field name in snake case. Fields without
// a tag are ignored.
//
func Ports(b *Block, v interface{}, w int) {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Ptr || val.Elem().Kind() != reflect.Struct {
		panic(errors.Errorf("unsupported type %s for ports of %s", val.Type(), b.Path()))
	}
	e := val.Elem()
	typ := e.Type()
	n := typ.NumField()
	for i := 0; i < n; i++ {
		f := typ.Field(i)
		tag, ok := f.Tag.Lookup("hdl")
		if !ok {
			continue
		}
		if f.Type != signalType {
			panic(errors.Errorf("unsupported type %s for field %q in %q", f.Type, f.Name, typ.Name()))
		}
		tv := strings.Split(tag, ",")
		name := snake(f.Name)
		width := 1
		switch len(tv) {
		case 3:
			if tv[2] != "" {
				name = tv[2]
			}
			fallthrough
		case 2:
			switch tv[1] {
			case "", "1":
			case "w":
				width = w
			default:
				n, err := strconv.Atoi(tv[1])
				if err != nil {
					panic(errors.Wrapf(err, "invalid width in tag %q for field %q in %q", tag, f.Name, typ.Name()))
				}
				width = n
			}
		case 1:
		default:
			panic(errors.Errorf("unsupported tag %q for field %q in %q", tag, f.Name, typ.Name()))
		}

		var s *Signal
		switch tv[0] {
		case "in":
			s = b.In(name, width)
		case "out":
			s = b.Out(name, width)
		case "inout":
			s = b.InOut(name, width)
		case "local":
			s = b.Local(name, width)
		case "clock":
			s = b.ClockIn(name)
		default:
			panic(errors.Errorf("unsupported tag %q for field %q in %q", tag, f.Name, typ.Name()))
		}
		e.Field(i).Set(reflect.ValueOf(s))
	}
}

// snake converts a Go identifier to snake case: "WriteEnable" becomes
// "write_enable", "ReadAddr" becomes "read_addr".
//
func snake(s string) string {
	var sb strings.Builder
	rs := []rune(s)
	for i, r := range rs {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(rs[i-1]) || i+1 < len(rs) && unicode.IsLower(rs[i+1])) {
				sb.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
