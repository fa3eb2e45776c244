package front

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexerMatch(t *testing.T) {
	ctx := context.Background()

	l := NewLexer("t.tdc", []byte("fn main ( )"))

	assert.True(t, l.MatchWord(ctx, "fn"))
	assert.True(t, l.MatchWord(ctx, "main"))
	assert.True(t, l.Match(ctx, "("))
	assert.False(t, l.Match(ctx, "{"))
	assert.True(t, l.Match(ctx, ")"))
	assert.True(t, l.MatchEOF())
}

func TestLexerMatchWordBoundary(t *testing.T) {
	ctx := context.Background()

	l := NewLexer("t.tdc", []byte("iffy"))

	assert.False(t, l.MatchWord(ctx, "if"))

	id, ok := l.MatchIdentifier(ctx)
	require.True(t, ok)
	assert.Equal(t, "iffy", id)
}

func TestLexerIdentifier(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		text string
		id   string
		ok   bool
	}{
		{"abc", "abc", true},
		{"_x9 rest", "_x9", true},
		{"x", "x", true},
		{"9x", "", false},
		{"", "", false},
		{"var", "", false},    // reserved
		{"return", "", false}, // reserved
		{"true", "", false},   // bool literal, not identifier
		{"i32", "i32", true},  // builtin type names are plain identifiers
	} {
		l := NewLexer("t.tdc", []byte(tc.text))

		id, ok := l.MatchIdentifier(ctx)
		assert.Equal(t, tc.ok, ok, "text %q", tc.text)
		assert.Equal(t, tc.id, id, "text %q", tc.text)
	}
}

func TestLexerNumber(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		text  string
		num   string
		float bool
		ok    bool
	}{
		{"0", "0", false, true},
		{"", "", false, false},
		{"42;", "42", false, true},
		{"-7", "-7", false, true},
		{"+7", "+7", false, true},
		{"-", "", false, false},
		{"1.5", "1.5", true, true},
		{"1.2.3", "", false, false}, // second dot
		{"x", "", false, false},
	} {
		l := NewLexer("t.tdc", []byte(tc.text))

		num, float, ok := l.MatchNumber(ctx)
		assert.Equal(t, tc.ok, ok, "text %q", tc.text)
		assert.Equal(t, tc.float, float, "text %q", tc.text)
		assert.Equal(t, tc.num, num, "text %q", tc.text)
	}
}

func TestLexerComments(t *testing.T) {
	ctx := context.Background()

	l := NewLexer("t.tdc", []byte("// comment\nfn /* block */ main"))

	assert.True(t, l.MatchWord(ctx, "fn"))
	assert.True(t, l.MatchWord(ctx, "main"))
	assert.True(t, l.MatchEOF())
}

func TestLexerBlockCommentNotNesting(t *testing.T) {
	ctx := context.Background()

	// the first */ terminates, the tail is ordinary input
	l := NewLexer("t.tdc", []byte("/* /* */ fn"))

	assert.True(t, l.MatchWord(ctx, "fn"))
	assert.True(t, l.MatchEOF())
}

func TestLexerUnterminatedBlockComment(t *testing.T) {
	ctx := context.Background()

	l := NewLexer("t.tdc", []byte("/* unterminated"))

	assert.False(t, l.MatchWord(ctx, "fn"))
	assert.False(t, l.MatchEOF())

	_, err := Tokenize(ctx, "t.tdc", []byte("/* unterminated"))
	require.Error(t, err)
}

func TestLexerLineColumn(t *testing.T) {
	ctx := context.Background()

	l := NewLexer("t.tdc", []byte("fn\n  main"))

	require.True(t, l.MatchWord(ctx, "fn"))

	st := l.State()
	assert.Equal(t, 1, st.Line)
	assert.Equal(t, 2, st.Col)

	require.True(t, l.MatchWord(ctx, "main"))

	st = l.State()
	assert.Equal(t, 1, st.Line)
	assert.Equal(t, 6, st.Col)
}

func TestLexerSavepointDeterminism(t *testing.T) {
	ctx := context.Background()

	l := NewLexer("t.tdc", []byte("fn add(a: i32, b: i32) -> i32 { return a + b; }"))

	run := func() (spellings []string, final State) {
		require.True(t, l.MatchWord(ctx, "fn"))

		id, ok := l.MatchIdentifier(ctx)
		require.True(t, ok)
		spellings = append(spellings, id)

		require.True(t, l.Match(ctx, "("))

		id, ok = l.MatchIdentifier(ctx)
		require.True(t, ok)
		spellings = append(spellings, id)

		require.True(t, l.Match(ctx, ":"))

		id, ok = l.MatchIdentifier(ctx)
		require.True(t, ok)
		spellings = append(spellings, id)

		return spellings, l.State()
	}

	sp := l.State()

	spellings1, final1 := run()

	l.Restore(sp)

	spellings2, final2 := run()

	assert.Equal(t, spellings1, spellings2)
	assert.Equal(t, final1, final2)
}

func TestLexerRestoreAcrossNewlines(t *testing.T) {
	ctx := context.Background()

	l := NewLexer("t.tdc", []byte("a\nb\nc"))

	sp := l.State()

	_, ok := l.MatchIdentifier(ctx)
	require.True(t, ok)
	_, ok = l.MatchIdentifier(ctx)
	require.True(t, ok)
	_, ok = l.MatchIdentifier(ctx)
	require.True(t, ok)

	l.Restore(sp)

	st := l.State()
	assert.Equal(t, sp, st)

	id, ok := l.MatchIdentifier(ctx)
	require.True(t, ok)
	assert.Equal(t, "a", id)
}

func TestTokenize(t *testing.T) {
	ctx := context.Background()

	tokens, err := Tokenize(ctx, "t.tdc", []byte("fn main() -> i32 { return true && 0; }"))
	require.NoError(t, err)

	kinds := make([]TokenKind, len(tokens))
	texts := make([]string, len(tokens))

	for i, tk := range tokens {
		kinds[i] = tk.Kind
		texts[i] = tk.Text
	}

	assert.Equal(t, []TokenKind{
		TokenKeyword, TokenIdentifier, TokenSeparator, TokenSeparator,
		TokenOperator, TokenKeyword, TokenSeparator,
		TokenKeyword, TokenBoolLiteral, TokenOperator, TokenIntegerLiteral,
		TokenSeparator, TokenSeparator,
	}, kinds)

	assert.Equal(t, []string{
		"fn", "main", "(", ")", "->", "i32", "{",
		"return", "true", "&&", "0", ";", "}",
	}, texts)
}

func TestTokenizeInvalidByte(t *testing.T) {
	ctx := context.Background()

	_, err := Tokenize(ctx, "t.tdc", []byte("fn \xc3\xa9"))
	require.Error(t, err)
}
