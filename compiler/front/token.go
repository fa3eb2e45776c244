package front

import (
	"context"

	"tlog.app/go/errors"

	"github.com/kociap/tildac/compiler/ast"
)

type (
	TokenKind int

	// Token is a classified lexeme with the position lexing started at.
	Token struct {
		Kind TokenKind
		Text string
		Info ast.Info
	}
)

const (
	TokenKeyword TokenKind = iota
	TokenSeparator
	TokenOperator
	TokenIdentifier
	TokenBoolLiteral
	TokenIntegerLiteral
	TokenFloatLiteral
	TokenStringLiteral
	TokenEOF
)

var keywords = map[string]struct{}{
	"fn": {}, "if": {}, "else": {}, "switch": {}, "case": {},
	"for": {}, "while": {}, "do": {}, "return": {}, "break": {},
	"continue": {}, "mut": {}, "var": {},

	"void": {}, "bool": {},
	"c8": {}, "c16": {}, "c32": {},
	"i8": {}, "u8": {}, "i16": {}, "u16": {},
	"i32": {}, "u32": {}, "i64": {}, "u64": {},
	"f32": {}, "f64": {},
}

// operators, longest first within a shared prefix.
var operators = []string{
	"<<=", ">>=",
	"::", "&&", "||", "<<", ">>", "==", "!=", "<=", ">=", "->",
	"++", "--", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=",
	"+", "-", "*", "/", "%", "<", ">", "=", "|", "&", "^", "!", "~", "@", "?",
}

const separators = "(){}[];,:."

// ReadToken classifies the next lexeme. It is not used by the parser,
// which drives the matching methods directly; it feeds the token dump.
func (l *Lexer) ReadToken(ctx context.Context) (Token, error) {
	st := l.State()
	info := l.Info(st)

	if l.MatchEOF() {
		return Token{Kind: TokenEOF, Info: info}, nil
	}

	if l.pos == len(l.b) {
		return Token{}, errors.New("unterminated block comment")
	}

	if text, float, ok := l.MatchNumber(ctx); ok {
		kind := TokenIntegerLiteral
		if float {
			kind = TokenFloatLiteral
		}

		return Token{Kind: kind, Text: text, Info: info}, nil
	}

	if c, _ := l.peek(); isIdentFirstChar(c) {
		text := l.word()

		kind := TokenIdentifier
		if _, ok := keywords[text]; ok {
			kind = TokenKeyword
		}
		if text == "true" || text == "false" {
			kind = TokenBoolLiteral
		}

		return Token{Kind: kind, Text: text, Info: info}, nil
	}

	for _, op := range operators {
		if l.Match(ctx, op) {
			return Token{Kind: TokenOperator, Text: op, Info: info}, nil
		}
	}

	c, _ := l.peek()

	for i := 0; i < len(separators); i++ {
		if c == separators[i] {
			l.next()

			return Token{Kind: TokenSeparator, Text: string(c), Info: info}, nil
		}
	}

	return Token{}, errors.New("invalid character %q at %d:%d", c, info.Line, info.Col)
}

// Tokenize reads the whole stream. The EOF token is not included.
func Tokenize(ctx context.Context, name string, text []byte) ([]Token, error) {
	l := NewLexer(name, text)

	var tokens []Token

	for {
		tk, err := l.ReadToken(ctx)
		if err != nil {
			return tokens, err
		}

		if tk.Kind == TokenEOF {
			return tokens, nil
		}

		tokens = append(tokens, tk)
	}
}

// word consumes identifier characters without the reserved-word check.
func (l *Lexer) word() string {
	st := l.pos

	for {
		c, valid := l.peek()
		if !valid || !isIdentChar(c) {
			break
		}

		l.next()
	}

	return string(l.b[st:l.pos])
}

func (k TokenKind) String() string {
	switch k {
	case TokenKeyword:
		return "keyword"
	case TokenSeparator:
		return "separator"
	case TokenOperator:
		return "operator"
	case TokenIdentifier:
		return "identifier"
	case TokenBoolLiteral:
		return "bool_literal"
	case TokenIntegerLiteral:
		return "integer_literal"
	case TokenFloatLiteral:
		return "float_literal"
	case TokenStringLiteral:
		return "string_literal"
	case TokenEOF:
		return "eof"
	default:
		return "<bad token kind>"
	}
}
