package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/afero"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/kociap/tildac/compiler"
	"github.com/kociap/tildac/compiler/ast"
	"github.com/kociap/tildac/compiler/front"
)

func main() {
	lexCmd := &cli.Command{
		Name:        "lex",
		Description: "dump the token stream",
		Action:      lexAct,
		Args:        cli.Args{},
	}

	parseCmd := &cli.Command{
		Name:        "parse",
		Description: "print the syntax tree",
		Action:      parseAct,
		Args:        cli.Args{},
	}

	compileCmd := &cli.Command{
		Name:        "compile",
		Description: "compile sources into a relocatable object",
		Action:      compileAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("out,o", "output.o", "object file path"),
			cli.NewFlag("optimize,O", false, "run the optimization pipeline"),
			cli.NewFlag("emit-ir,S", false, "write textual IR instead of an object"),
		},
	}

	app := &cli.Command{
		Name:        "tildac",
		Description: "tildac is an ahead-of-time compiler for the tilde language",
		Commands: []*cli.Command{
			lexCmd,
			parseCmd,
			compileCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func lexAct(c *cli.Command) error {
	ctx := tlog.ContextWithSpan(context.Background(), tlog.Root())
	fs := afero.NewOsFs()

	for _, a := range c.Args {
		text, err := afero.ReadFile(fs, a)
		if err != nil {
			return errors.Wrap(err, "read %v", a)
		}

		tokens, err := front.Tokenize(ctx, a, text)
		if err != nil {
			return errors.Wrap(err, "lex %v", a)
		}

		for _, tk := range tokens {
			fmt.Printf("%d:%d\t%v\t%q\n", tk.Info.Line, tk.Info.Col, tk.Kind, tk.Text)
		}
	}

	return nil
}

func parseAct(c *cli.Command) error {
	ctx := tlog.ContextWithSpan(context.Background(), tlog.Root())
	fs := afero.NewOsFs()

	for _, a := range c.Args {
		x, err := compiler.ParseFile(ctx, fs, a)
		if err != nil {
			return diag(a, err)
		}

		fmt.Printf("%s", ast.Dump(nil, x, 0))
	}

	return nil
}

func compileAct(c *cli.Command) error {
	ctx := tlog.ContextWithSpan(context.Background(), tlog.Root())
	fs := afero.NewOsFs()

	opts := compiler.Options{
		Optimize: c.Bool("optimize"),
		EmitIR:   c.Bool("emit-ir"),
	}

	for _, a := range c.Args {
		obj, err := compiler.CompileFile(ctx, fs, a, opts)
		if err != nil {
			return diag(a, err)
		}

		err = afero.WriteFile(fs, c.String("out"), obj, 0o644)
		if err != nil {
			return errors.Wrap(err, "write object")
		}
	}

	return nil
}

// diag prints parse errors in the path:line:column form and passes
// everything else through.
func diag(name string, err error) error {
	var perr front.Error
	if errors.As(err, &perr) {
		fmt.Fprintf(os.Stderr, "%s:%v\n", name, perr)

		return errors.New("compile %v", name)
	}

	return errors.Wrap(err, "compile %v", name)
}
