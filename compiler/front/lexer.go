package front

import (
	"context"

	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/kociap/tildac/compiler/ast"
)

type (
	// Lexer is a backtrackable cursor over a single source buffer.
	// Matching methods skip whitespace and comments, then either consume
	// the requested construct or leave the cursor where it was.
	Lexer struct {
		name string
		b    []byte

		pos  int
		line int
		col  int

		// badComment is set when a block comment runs to the end of
		// the input. MatchEOF then keeps reporting more input so the
		// parser fails on its next match and reports the position.
		badComment bool
	}

	// State is a savepoint. Restore repositions the cursor exactly,
	// including line and column.
	State struct {
		Off  int
		Line int
		Col  int
	}
)

// reserved words never matched as identifiers.
// Builtin type names are not here: grammatically they are
// ordinary identifiers consumed by the type productions.
var reserved = map[string]struct{}{
	"fn": {}, "if": {}, "else": {}, "switch": {}, "case": {},
	"for": {}, "while": {}, "do": {}, "return": {}, "break": {},
	"continue": {}, "mut": {}, "var": {}, "true": {}, "false": {},
}

func NewLexer(name string, text []byte) *Lexer {
	return &Lexer{
		name: name,
		b:    text,
	}
}

// State skips whitespace and comments and captures the cursor.
func (l *Lexer) State() State {
	l.skipSpacesAndComments()

	return State{Off: l.pos, Line: l.line, Col: l.col}
}

func (l *Lexer) Restore(s State) {
	l.pos = s.Off
	l.line = s.Line
	l.col = s.Col
}

// Info converts a savepoint into a source position.
func (l *Lexer) Info(s State) ast.Info {
	return ast.Info{File: l.name, Off: s.Off, Line: s.Line, Col: s.Col}
}

// Match consumes lit if it is next in the stream.
func (l *Lexer) Match(ctx context.Context, lit string) (ok bool) {
	if tr := tlog.SpanFromContext(ctx); tr.If("match") {
		defer func() {
			tr.Printw("match", "lit", lit, "ok", ok, "off", l.pos, "from", loc.Callers(1, 3))
		}()
	}

	l.skipSpacesAndComments()

	backup := l.state()

	for i := 0; i < len(lit); i++ {
		if c, valid := l.next(); !valid || c != lit[i] {
			l.Restore(backup)
			return false
		}
	}

	return true
}

// MatchWord is Match for keywords: the lexeme must not be
// followed by an identifier character.
func (l *Lexer) MatchWord(ctx context.Context, lit string) bool {
	l.skipSpacesAndComments()

	backup := l.state()

	if !l.Match(ctx, lit) {
		return false
	}

	if c, valid := l.peek(); valid && isIdentChar(c) {
		l.Restore(backup)
		return false
	}

	return true
}

// MatchIdentifier consumes the next identifier and returns its spelling.
// Reserved words are not identifiers.
func (l *Lexer) MatchIdentifier(ctx context.Context) (string, bool) {
	l.skipSpacesAndComments()

	backup := l.state()

	c, valid := l.peek()
	if !valid || !isIdentFirstChar(c) {
		return "", false
	}

	st := l.pos

	for {
		c, valid = l.peek()
		if !valid || !isIdentChar(c) {
			break
		}

		l.next()
	}

	id := string(l.b[st:l.pos])

	if _, res := reserved[id]; res {
		l.Restore(backup)
		return "", false
	}

	return id, true
}

// MatchNumber consumes a numeric literal: an optional sign and decimal
// digits, promoted to float by a single dot. A second dot fails the match.
func (l *Lexer) MatchNumber(ctx context.Context) (text string, float, ok bool) {
	l.skipSpacesAndComments()

	backup := l.state()
	st := l.pos

	if c, valid := l.peek(); valid && (c == '+' || c == '-') {
		l.next()
	}

	digits := 0

	for {
		c, valid := l.peek()

		switch {
		case valid && isDigit(c):
			digits++
		case valid && c == '.' && !float:
			float = true
		case valid && c == '.':
			// second dot in the same literal
			l.Restore(backup)
			return "", false, false
		default:
			if digits == 0 {
				l.Restore(backup)
				return "", false, false
			}

			return string(l.b[st:l.pos]), float, true
		}

		l.next()
	}
}

// MatchEOF reports whether only whitespace and comments remain.
// An unterminated block comment is not a clean end of input: it keeps
// MatchEOF false and every match fails at the end position.
func (l *Lexer) MatchEOF() bool {
	l.skipSpacesAndComments()

	return l.pos == len(l.b) && !l.badComment
}

func (l *Lexer) skipSpacesAndComments() {
	for l.pos < len(l.b) {
		c := l.b[l.pos]

		if c <= 32 || c == 127 {
			l.next()
			continue
		}

		if c != '/' || l.pos+1 == len(l.b) {
			return
		}

		switch l.b[l.pos+1] {
		case '/':
			for {
				c, valid := l.next()
				if !valid || c == '\n' {
					break
				}
			}
		case '*':
			l.next()
			l.next()

			closed := false

			// not nesting: the first */ terminates
			for l.pos < len(l.b) {
				c, _ := l.next()
				if c == '*' {
					if c, valid := l.peek(); valid && c == '/' {
						l.next()
						closed = true
						break
					}
				}
			}

			if !closed {
				l.badComment = true
			}
		default:
			return
		}
	}
}

// state is State without the whitespace skip.
func (l *Lexer) state() State {
	return State{Off: l.pos, Line: l.line, Col: l.col}
}

func (l *Lexer) peek() (byte, bool) {
	if l.pos == len(l.b) {
		return 0, false
	}

	return l.b[l.pos], true
}

func (l *Lexer) next() (byte, bool) {
	if l.pos == len(l.b) {
		return 0, false
	}

	c := l.b[l.pos]
	l.pos++

	if c == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}

	return c, true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentFirstChar(c byte) bool {
	return c == '_' || isAlpha(c)
}

func isIdentChar(c byte) bool {
	return c == '_' || isAlpha(c) || isDigit(c)
}
