package compiler

import (
	"context"

	"github.com/spf13/afero"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/kociap/tildac/compiler/ast"
	"github.com/kociap/tildac/compiler/back"
	"github.com/kociap/tildac/compiler/front"
)

// Options control the pipeline after parsing.
type Options = back.Options

// ParseFile reads a source file from fs and parses it.
func ParseFile(ctx context.Context, fs afero.Fs, name string) (*ast.DeclSeq, error) {
	text, err := afero.ReadFile(fs, name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return front.Parse(ctx, name, text)
}

// CompileFile compiles a single source file into a relocatable object.
func CompileFile(ctx context.Context, fs afero.Fs, name string, opts Options) (obj []byte, err error) {
	text, err := afero.ReadFile(fs, name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Compile(ctx, name, text, opts)
}

// Compile runs the pipeline over an in-memory source buffer.
func Compile(ctx context.Context, name string, text []byte, opts Options) (obj []byte, err error) {
	decls, err := front.Parse(ctx, name, text)
	if err != nil {
		return nil, err
	}

	obj, err = back.Compile(ctx, decls, opts)
	if err != nil {
		return nil, errors.Wrap(err, "codegen")
	}

	return obj, nil
}
