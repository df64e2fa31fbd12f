// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package vlog

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// Type is a token type.
//
type Type int

// Tokens
const (
	EOF Type = iota
	Ident
	Number
	Punct // operators and punctuation
)

// Token is a lexical token.
//
type Token struct {
	Type  Type
	Val   string
	Num   uint64
	Width int // 0 for unsized numbers
	Line  int
}

func (t Token) String() string {
	if t.Type == EOF {
		return "end of input"
	}
	return strconv.Quote(t.Val)
}

// stateFn is a lexer state. It returns the next state, or nil to go back to
// the initial state.
//
type stateFn func(l *lexer) stateFn

type lexer struct {
	src   string
	start int
	pos   int
	line  int
	toks  []Token
	err   error
}

// Lex splits src into tokens.
//
func Lex(src string) ([]Token, error) {
	l := &lexer{src: src, line: 1}
	for state := lexInit; state != nil; {
		state = state(l)
		if state == nil && l.err == nil && l.pos < len(l.src) {
			state = lexInit
		}
	}
	if l.err != nil {
		return nil, l.err
	}
	l.toks = append(l.toks, Token{Type: EOF, Line: l.line})
	return l.toks, nil
}

const eof = -1

func (l *lexer) next() rune {
	if l.pos >= len(l.src) {
		l.pos++
		return eof
	}
	r := rune(l.src[l.pos])
	l.pos++
	if r == '\n' {
		l.line++
	}
	return r
}

func (l *lexer) backup() {
	l.pos--
	if l.pos < len(l.src) && l.src[l.pos] == '\n' {
		l.line--
	}
}

func (l *lexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

func (l *lexer) emit(t Token) {
	t.Line = l.line
	t.Val = l.src[l.start:l.pos]
	l.toks = append(l.toks, t)
	l.start = l.pos
}

func (l *lexer) ignore() { l.start = l.pos }

func (l *lexer) errorf(format string, args ...interface{}) stateFn {
	l.err = errors.Errorf("line %d: "+format, append([]interface{}{l.line}, args...)...)
	return nil
}

func isIdentRune(r rune) bool {
	return r == '_' || r == '$' || r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

func lexInit(l *lexer) stateFn {
	r := l.next()
	switch {
	case r == eof:
		l.backup()
		return nil
	case unicode.IsSpace(r):
		for unicode.IsSpace(l.peek()) {
			l.next()
		}
		l.ignore()
	case r == '_' || unicode.IsLetter(r):
		return lexIdent
	case '0' <= r && r <= '9':
		return lexNumber
	case r == '/':
		switch l.peek() {
		case '/':
			for r := l.next(); r != '\n' && r != eof; r = l.next() {
			}
			l.ignore()
		case '*':
			l.next()
			if !strings.Contains(l.src[l.pos:], "*/") {
				return l.errorf("unterminated comment")
			}
			i := strings.Index(l.src[l.pos:], "*/")
			l.line += strings.Count(l.src[l.pos:l.pos+i], "\n")
			l.pos += i + 2
			l.ignore()
		default:
			return l.errorf("unexpected character %q", r)
		}
	default:
		return lexPunct
	}
	return nil
}

var puncts = []string{"<=", "==", "!=", "<<", ">>", "(", ")", "[", "]", "{", "}", ";", ",", ".", ":", "?", "@", "=", "<", ">", "~", "-", "+", "&", "|", "^", "#"}

func lexPunct(l *lexer) stateFn {
	l.backup()
	for _, p := range puncts {
		if strings.HasPrefix(l.src[l.pos:], p) {
			l.pos += len(p)
			l.emit(Token{Type: Punct})
			return nil
		}
	}
	return l.errorf("unexpected character %q", l.src[l.pos])
}

func lexIdent(l *lexer) stateFn {
	for isIdentRune(l.peek()) {
		l.next()
	}
	l.emit(Token{Type: Ident})
	return nil
}

// lexNumber lexes decimal numbers and sized numbers like 8'h45 or 1'b0.
//
func lexNumber(l *lexer) stateFn {
	for r := l.peek(); '0' <= r && r <= '9'; r = l.peek() {
		l.next()
	}
	dec := l.src[l.start:l.pos]
	if l.peek() != '\'' {
		n, err := strconv.ParseUint(dec, 10, 64)
		if err != nil {
			return l.errorf("invalid number %s", dec)
		}
		l.emit(Token{Type: Number, Num: n})
		return nil
	}
	l.next()
	w, err := strconv.Atoi(dec)
	if err != nil || w < 1 || w > 64 {
		return l.errorf("invalid number width %s", dec)
	}
	base := 0
	switch l.next() {
	case 'h', 'H':
		base = 16
	case 'd', 'D':
		base = 10
	case 'b', 'B':
		base = 2
	case 'o', 'O':
		base = 8
	default:
		return l.errorf("invalid number base in %s", l.src[l.start:l.pos])
	}
	ds := l.pos
	for r := l.peek(); r == '_' || isIdentRune(r); r = l.peek() {
		l.next()
	}
	digits := strings.ReplaceAll(l.src[ds:l.pos], "_", "")
	if strings.ContainsAny(digits, "xXzZ") {
		// unknown values start at 0 in two-state simulation
		digits = "0"
	}
	n, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return l.errorf("invalid number %s", l.src[l.start:l.pos])
	}
	l.emit(Token{Type: Number, Num: n, Width: w})
	return nil
}
