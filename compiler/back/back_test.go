package back

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kociap/tildac/compiler/front"
)

func lowerIR(t *testing.T, src string) string {
	t.Helper()

	ctx := context.Background()

	decls, err := front.Parse(ctx, "t.tdc", []byte(src))
	require.NoError(t, err)

	ir, err := Compile(ctx, decls, Options{EmitIR: true})
	require.NoError(t, err)

	t.Logf("module:\n%s", ir)

	return string(ir)
}

func TestCompileMinimalFunction(t *testing.T) {
	ir := lowerIR(t, "fn main() -> i32 { return 0; }")

	assert.Contains(t, ir, "define i32 @main()")
	assert.Contains(t, ir, "ret i32 0")
}

func TestCompileParamsAndCall(t *testing.T) {
	ir := lowerIR(t, `
fn add(a: i32, b: i32) -> i32 { return a + b; }
fn main() -> i32 { return add(1, 2); }
`)

	assert.Contains(t, ir, "define i32 @add(i32 %a, i32 %b)")

	// prologue: a slot per parameter, argument stored into it
	assert.Contains(t, ir, "alloca i32")
	assert.Contains(t, ir, "store i32 %a")
	assert.Contains(t, ir, "store i32 %b")

	assert.Contains(t, ir, "add i32")
	assert.Contains(t, ir, "call i32 @add(i32 1, i32 2)")
}

func TestCompileOperators(t *testing.T) {
	ir := lowerIR(t, `
fn f(a: i32, b: i32) -> i32 { return a * b / a - b; }
fn g(a: i32, b: i32) -> bool { return a == b; }
fn h(a: bool, b: bool) -> bool { return a && b || a; }
`)

	assert.Contains(t, ir, "mul i32")
	assert.Contains(t, ir, "sdiv i32")
	assert.Contains(t, ir, "sub i32")
	assert.Contains(t, ir, "icmp eq i32")
	assert.Contains(t, ir, "and i1")
	assert.Contains(t, ir, "or i1")
}

func TestCompileVariables(t *testing.T) {
	ir := lowerIR(t, `
fn f() -> i64 {
	var x: i64;
	var y: bool = true;
	return x;
}
`)

	assert.Contains(t, ir, "alloca i64")
	assert.Contains(t, ir, "alloca i1")
	assert.Contains(t, ir, "store i1 true")
	assert.Contains(t, ir, "load i64")
}

func TestCompileControlFlow(t *testing.T) {
	ir := lowerIR(t, `
fn f(a: bool, b: bool) -> i32 {
	if a { return 1; } else if b { return 2; } else { return 3; }
	while a { noop(); }
	do { noop(); } while b;
	for ; a; noop() { noop(); }
	return 0;
}
fn noop() -> void {}
`)

	assert.Contains(t, ir, "br i1")
	assert.Contains(t, ir, "br label")

	assertBlocksTerminated(t, ir)
}

func TestCompileVoidFallThrough(t *testing.T) {
	ir := lowerIR(t, "fn f() -> void {}")

	assert.Contains(t, ir, "ret void")
}

func TestCompileShadowing(t *testing.T) {
	ir := lowerIR(t, `
fn f() -> i32 {
	var x: i32 = 1;
	{
		var x: i64 = 2;
	}
	return x;
}
`)

	assert.Contains(t, ir, "alloca i32")
	assert.Contains(t, ir, "alloca i64")

	// the load after the block sees the outer slot again
	assert.Contains(t, ir, "load i32")
}

func TestCompileUndefinedCallee(t *testing.T) {
	ctx := context.Background()

	decls, err := front.Parse(ctx, "t.tdc", []byte("fn f() -> void { missing(); }"))
	require.NoError(t, err)

	_, err = Compile(ctx, decls, Options{EmitIR: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined function")
}

func TestCompileUnknownType(t *testing.T) {
	ctx := context.Background()

	decls, err := front.Parse(ctx, "t.tdc", []byte("fn f() -> q32 {}"))
	require.NoError(t, err)

	_, err = Compile(ctx, decls, Options{EmitIR: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown type name")
}

func TestCompileUnknownSymbol(t *testing.T) {
	ctx := context.Background()

	decls, err := front.Parse(ctx, "t.tdc", []byte("fn f() -> i32 { return x; }"))
	require.NoError(t, err)

	_, err = Compile(ctx, decls, Options{EmitIR: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown symbol")
}

func TestCompileTemplateTypeRejected(t *testing.T) {
	ctx := context.Background()

	decls, err := front.Parse(ctx, "t.tdc", []byte("fn f(x: Array<i32>) -> void {}"))
	require.NoError(t, err)

	_, err = Compile(ctx, decls, Options{EmitIR: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template")
}

func TestCompileObject(t *testing.T) {
	ctx := context.Background()

	decls, err := front.Parse(ctx, "t.tdc", []byte("fn main() -> i32 { return 0; }"))
	require.NoError(t, err)

	obj, err := Compile(ctx, decls, Options{})
	require.NoError(t, err)
	assert.NotEmpty(t, obj)
}

func TestCompileOptimized(t *testing.T) {
	ctx := context.Background()

	decls, err := front.Parse(ctx, "t.tdc", []byte(`
fn f(a: i32) -> i32 { return a + 0; }
fn main() -> i32 { return f(3); }
`))
	require.NoError(t, err)

	ir, err := Compile(ctx, decls, Options{Optimize: true, EmitIR: true})
	require.NoError(t, err)
	assert.Contains(t, string(ir), "define i32 @main()")
}

// assertBlocksTerminated checks the printed module: within every
// function body, each label section ends with a terminator instruction.
func assertBlocksTerminated(t *testing.T, ir string) {
	t.Helper()

	inFunc := false
	lastInst := ""

	checkLast := func() {
		if lastInst == "" {
			return
		}

		terminator := strings.HasPrefix(lastInst, "ret ") ||
			lastInst == "ret void" ||
			strings.HasPrefix(lastInst, "br ") ||
			strings.HasPrefix(lastInst, "unreachable")

		assert.True(t, terminator, "block ends with %q", lastInst)
	}

	for _, line := range strings.Split(ir, "\n") {
		trimmed := strings.TrimSpace(line)

		// label lines start at column zero, possibly with
		// a "; preds" comment after the colon
		label := line != "" && line[0] != ' ' && line[0] != '}' && strings.Contains(line, ":")

		switch {
		case strings.HasPrefix(line, "define "):
			inFunc = true
		case line == "}":
			checkLast()

			inFunc = false
			lastInst = ""
		case inFunc && label:
			checkLast()

			lastInst = ""
		case inFunc && trimmed != "":
			lastInst = trimmed
		}
	}
}
