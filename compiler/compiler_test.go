package compiler

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/errors"

	"github.com/kociap/tildac/compiler/front"
)

func TestParseFile(t *testing.T) {
	ctx := context.Background()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "main.tdc", []byte("fn main() -> i32 { return 0; }"), 0o644))

	decls, err := ParseFile(ctx, fs, "main.tdc")
	require.NoError(t, err)
	assert.Len(t, decls.Decls, 1)
}

func TestParseFileMissing(t *testing.T) {
	ctx := context.Background()

	_, err := ParseFile(ctx, afero.NewMemMapFs(), "missing.tdc")
	require.Error(t, err)
}

func TestCompileFile(t *testing.T) {
	ctx := context.Background()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "main.tdc", []byte("fn main() -> i32 { return 0; }"), 0o644))

	obj, err := CompileFile(ctx, fs, "main.tdc", Options{EmitIR: true})
	require.NoError(t, err)
	assert.Contains(t, string(obj), "define i32 @main()")
}

func TestCompileParseErrorSurfaces(t *testing.T) {
	ctx := context.Background()

	_, err := Compile(ctx, "broken.tdc", []byte("fn main() -> i32 { return }"), Options{EmitIR: true})
	require.Error(t, err)

	var perr front.Error
	require.True(t, errors.As(err, &perr))

	assert.Equal(t, 0, perr.Line)
	assert.Equal(t, 26, perr.Col)
}
