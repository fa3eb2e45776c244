package back

import (
	"context"
	"strconv"

	llvm "tinygo.org/x/go-llvm"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/kociap/tildac/compiler/ast"
)

type (
	// Options select the work done after lowering.
	Options struct {
		// Optimize runs instcombine, reassociate, gvn and simplifycfg
		// over the module before emission.
		Optimize bool

		// EmitIR returns the textual IR instead of an object file.
		EmitIR bool
	}

	// gen owns the LLVM lowering state for one module.
	gen struct {
		lc llvm.Context
		b  llvm.Builder
		m  llvm.Module

		machine llvm.TargetMachine

		types map[string]llvm.Type

		// scopes is a stack: one scope per function, one per block.
		// Lookups walk from the innermost scope out.
		scopes []map[string]slot
	}

	// slot is a stack slot: the alloca and its allocated type.
	slot struct {
		ptr llvm.Value
		typ llvm.Type
	}
)

// Compile lowers a declaration sequence to a relocatable object file
// (or textual IR, per opts) for the host target.
func Compile(ctx context.Context, decls *ast.DeclSeq, opts Options) (obj []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "back: compile", "decls", len(decls.Decls))
	defer tr.Finish("err", &err)

	machine, err := hostMachine()
	if err != nil {
		return nil, errors.Wrap(err, "target machine")
	}

	g := newGen(machine)
	defer g.dispose()

	err = g.compileDecls(ctx, decls)
	if err != nil {
		return nil, err
	}

	if opts.Optimize {
		err = g.optimize(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "optimize")
		}
	}

	if tr.If("dump_module") {
		tr.Printw("module", "ir", g.m.String())
	}

	if opts.EmitIR {
		return []byte(g.m.String()), nil
	}

	return g.emitObject(ctx)
}

func newGen(machine llvm.TargetMachine) *gen {
	lc := llvm.NewContext()

	g := &gen{
		lc:      lc,
		b:       lc.NewBuilder(),
		m:       lc.NewModule(""),
		machine: machine,
		types:   builtinTypes(lc),
	}

	g.m.SetTarget(machine.Triple())

	td := machine.CreateTargetData()
	g.m.SetDataLayout(td.String())
	td.Dispose()

	return g
}

func (g *gen) dispose() {
	g.b.Dispose()
	g.m.Dispose()
	g.lc.Dispose()
}

func (g *gen) compileDecls(ctx context.Context, decls *ast.DeclSeq) error {
	// declare every signature first so calls resolve
	// independently of declaration order
	for _, d := range decls.Decls {
		switch d := d.(type) {
		case *ast.FuncDecl:
			err := g.declareFunc(ctx, d)
			if err != nil {
				return errors.Wrap(err, "func %v", d.Name.Name)
			}
		case *ast.VarDecl:
			// file-scope variables are accepted by the grammar
			// but have no storage here
			tlog.SpanFromContext(ctx).Printw("skipping file-scope variable", "name", d.Name.Name)
		default:
			return errors.New("unsupported declaration: %T", d)
		}
	}

	for _, d := range decls.Decls {
		f, ok := d.(*ast.FuncDecl)
		if !ok {
			continue
		}

		err := g.compileFunc(ctx, f)
		if err != nil {
			return errors.Wrap(err, "func %v", f.Name.Name)
		}
	}

	return nil
}

func (g *gen) declareFunc(ctx context.Context, f *ast.FuncDecl) (err error) {
	ret, err := g.lowerType(f.RetType)
	if err != nil {
		return errors.Wrap(err, "return type")
	}

	params := make([]llvm.Type, len(f.Params.Params))

	for i, p := range f.Params.Params {
		params[i], err = g.lowerType(p.Type)
		if err != nil {
			return errors.Wrap(err, "param %v", p.Name.Name)
		}
	}

	ft := llvm.FunctionType(ret, params, false)
	llvm.AddFunction(g.m, f.Name.Name, ft)

	return nil
}

func (g *gen) compileFunc(ctx context.Context, f *ast.FuncDecl) (err error) {
	tr := tlog.SpanFromContext(ctx)
	tr.V("func").Printw("compile func", "name", f.Name.Name, "params", len(f.Params.Params))

	fn := g.m.NamedFunction(f.Name.Name)

	ft := fn.GlobalValueType()
	ret := ft.ReturnType()
	params := ft.ParamTypes()

	entry := g.lc.AddBasicBlock(fn, "")
	g.b.SetInsertPointAtEnd(entry)

	g.pushScope()
	defer g.popScope()

	// prologue: a stack slot per parameter, argument stored into it
	for i, p := range f.Params.Params {
		arg := fn.Param(i)
		arg.SetName(p.Name.Name)

		ptr := g.b.CreateAlloca(params[i], p.Name.Name)
		g.b.CreateStore(arg, ptr)

		g.bind(p.Name.Name, slot{ptr: ptr, typ: params[i]})
	}

	if f.Body.Stmts != nil {
		err = g.compileStmtList(ctx, f.Body.Stmts)
		if err != nil {
			return err
		}
	}

	// a fall-through path still needs a terminator
	if !g.terminated() {
		if ret.TypeKind() == llvm.VoidTypeKind {
			g.b.CreateRetVoid()
		} else {
			g.b.CreateUnreachable()
		}
	}

	return nil
}

func (g *gen) compileStmtList(ctx context.Context, list *ast.StmtList) error {
	for _, s := range list.Stmts {
		// statements after a terminator go to a fresh block
		// with no predecessors, not to the terminated one
		if g.terminated() {
			fn := g.b.GetInsertBlock().Parent()
			g.b.SetInsertPointAtEnd(g.lc.AddBasicBlock(fn, ""))
		}

		err := g.compileStmt(ctx, s)
		if err != nil {
			return err
		}
	}

	return nil
}

func (g *gen) compileStmt(ctx context.Context, s ast.Stmt) error {
	switch s := s.(type) {
	case *ast.Block:
		g.pushScope()
		defer g.popScope()

		return g.compileStmtList(ctx, s.List)
	case *ast.If:
		return g.compileIf(ctx, s)
	case *ast.For:
		return g.compileFor(ctx, s)
	case *ast.While:
		return g.compileWhile(ctx, s)
	case *ast.DoWhile:
		return g.compileDoWhile(ctx, s)
	case *ast.Return:
		return g.compileReturn(ctx, s)
	case *ast.DeclStmt:
		return g.compileVarDecl(ctx, s.Decl)
	case *ast.ExprStmt:
		_, err := g.compileExpr(ctx, s.X)
		return err
	default:
		return errors.New("unsupported statement: %T", s)
	}
}

func (g *gen) compileIf(ctx context.Context, s *ast.If) error {
	cond, err := g.compileExpr(ctx, s.Cond)
	if err != nil {
		return errors.Wrap(err, "cond")
	}

	fn := g.b.GetInsertBlock().Parent()

	then := g.lc.AddBasicBlock(fn, "")
	merge := g.lc.AddBasicBlock(fn, "")

	alt := merge
	if s.Else != nil || s.ElseIf != nil {
		alt = g.lc.AddBasicBlock(fn, "")
	}

	g.b.CreateCondBr(cond, then, alt)

	g.b.SetInsertPointAtEnd(then)

	err = g.compileBlock(ctx, s.Then)
	if err != nil {
		return errors.Wrap(err, "then")
	}

	g.join(merge)

	switch {
	case s.Else != nil:
		g.b.SetInsertPointAtEnd(alt)

		err = g.compileBlock(ctx, s.Else)
		if err != nil {
			return errors.Wrap(err, "else")
		}

		g.join(merge)
	case s.ElseIf != nil:
		g.b.SetInsertPointAtEnd(alt)

		err = g.compileIf(ctx, s.ElseIf)
		if err != nil {
			return errors.Wrap(err, "else if")
		}

		g.join(merge)
	}

	g.b.SetInsertPointAtEnd(merge)

	return nil
}

func (g *gen) compileWhile(ctx context.Context, s *ast.While) error {
	fn := g.b.GetInsertBlock().Parent()

	head := g.lc.AddBasicBlock(fn, "")
	body := g.lc.AddBasicBlock(fn, "")
	after := g.lc.AddBasicBlock(fn, "")

	g.b.CreateBr(head)

	g.b.SetInsertPointAtEnd(head)

	cond, err := g.compileExpr(ctx, s.Cond)
	if err != nil {
		return errors.Wrap(err, "cond")
	}

	g.b.CreateCondBr(cond, body, after)

	g.b.SetInsertPointAtEnd(body)

	err = g.compileBlock(ctx, s.Body)
	if err != nil {
		return errors.Wrap(err, "body")
	}

	g.join(head)

	g.b.SetInsertPointAtEnd(after)

	return nil
}

func (g *gen) compileDoWhile(ctx context.Context, s *ast.DoWhile) error {
	fn := g.b.GetInsertBlock().Parent()

	body := g.lc.AddBasicBlock(fn, "")
	after := g.lc.AddBasicBlock(fn, "")

	g.b.CreateBr(body)

	g.b.SetInsertPointAtEnd(body)

	err := g.compileBlock(ctx, s.Body)
	if err != nil {
		return errors.Wrap(err, "body")
	}

	if !g.terminated() {
		cond, err := g.compileExpr(ctx, s.Cond)
		if err != nil {
			return errors.Wrap(err, "cond")
		}

		g.b.CreateCondBr(cond, body, after)
	}

	g.b.SetInsertPointAtEnd(after)

	return nil
}

func (g *gen) compileFor(ctx context.Context, s *ast.For) error {
	fn := g.b.GetInsertBlock().Parent()

	head := g.lc.AddBasicBlock(fn, "")
	body := g.lc.AddBasicBlock(fn, "")
	after := g.lc.AddBasicBlock(fn, "")

	g.b.CreateBr(head)

	g.b.SetInsertPointAtEnd(head)

	cond := llvm.ConstInt(g.lc.Int1Type(), 1, false)

	if s.Cond != nil {
		var err error

		cond, err = g.compileExpr(ctx, s.Cond)
		if err != nil {
			return errors.Wrap(err, "cond")
		}
	}

	g.b.CreateCondBr(cond, body, after)

	g.b.SetInsertPointAtEnd(body)

	g.pushScope()

	err := g.compileStmtList(ctx, s.Body)
	if err != nil {
		g.popScope()
		return errors.Wrap(err, "body")
	}

	g.popScope()

	if !g.terminated() {
		if s.Post != nil {
			_, err = g.compileExpr(ctx, s.Post)
			if err != nil {
				return errors.Wrap(err, "post")
			}
		}

		g.b.CreateBr(head)
	}

	g.b.SetInsertPointAtEnd(after)

	return nil
}

func (g *gen) compileReturn(ctx context.Context, s *ast.Return) error {
	if s.Value == nil {
		g.b.CreateRetVoid()
		return nil
	}

	v, err := g.compileExpr(ctx, s.Value)
	if err != nil {
		return errors.Wrap(err, "value")
	}

	g.b.CreateRet(v)

	return nil
}

func (g *gen) compileVarDecl(ctx context.Context, d *ast.VarDecl) error {
	t, err := g.lowerType(d.Type)
	if err != nil {
		return errors.Wrap(err, "var %v", d.Name.Name)
	}

	ptr := g.b.CreateAlloca(t, d.Name.Name)
	g.bind(d.Name.Name, slot{ptr: ptr, typ: t})

	if d.Init == nil {
		return nil
	}

	v, err := g.compileExpr(ctx, d.Init)
	if err != nil {
		return errors.Wrap(err, "initializer of %v", d.Name.Name)
	}

	g.b.CreateStore(v, ptr)

	return nil
}

// compileBlock lowers a block statement in a fresh scope.
func (g *gen) compileBlock(ctx context.Context, blk *ast.Block) error {
	g.pushScope()
	defer g.popScope()

	return g.compileStmtList(ctx, blk.List)
}

// compileExpr lowers operands strictly left before right.
func (g *gen) compileExpr(ctx context.Context, e ast.Expr) (llvm.Value, error) {
	switch e := e.(type) {
	case *ast.IntLit:
		v, err := strconv.ParseInt(e.Text, 10, 64)
		if err != nil {
			return llvm.Value{}, errors.Wrap(err, "integer literal %q", e.Text)
		}

		return llvm.ConstInt(g.lc.Int32Type(), uint64(v), true), nil
	case *ast.BoolLit:
		b := uint64(0)
		if e.Value {
			b = 1
		}

		return llvm.ConstInt(g.lc.Int1Type(), b, false), nil
	case *ast.IdentExpr:
		sl, ok := g.lookup(e.Ident.Name)
		if !ok {
			return llvm.Value{}, errors.New("unknown symbol: %v", e.Ident.Name)
		}

		return g.b.CreateLoad(sl.typ, sl.ptr, e.Ident.Name), nil
	case *ast.BinOp:
		return g.compileBinOp(ctx, e)
	case *ast.CallExpr:
		return g.compileCall(ctx, e)
	default:
		return llvm.Value{}, errors.New("unsupported expression: %T", e)
	}
}

func (g *gen) compileBinOp(ctx context.Context, e *ast.BinOp) (llvm.Value, error) {
	l, err := g.compileExpr(ctx, e.Left)
	if err != nil {
		return llvm.Value{}, errors.Wrap(err, "left")
	}

	r, err := g.compileExpr(ctx, e.Right)
	if err != nil {
		return llvm.Value{}, errors.Wrap(err, "right")
	}

	switch e.Op {
	case ast.OpAdd:
		return g.b.CreateAdd(l, r, ""), nil
	case ast.OpSub:
		return g.b.CreateSub(l, r, ""), nil
	case ast.OpMul:
		return g.b.CreateMul(l, r, ""), nil
	case ast.OpDiv:
		// division is signed no matter the operand type
		return g.b.CreateSDiv(l, r, ""), nil
	case ast.OpEq:
		return g.b.CreateICmp(llvm.IntEQ, l, r, ""), nil
	case ast.OpOr:
		return g.b.CreateOr(l, r, ""), nil
	case ast.OpAnd:
		return g.b.CreateAnd(l, r, ""), nil
	default:
		return llvm.Value{}, errors.New("unsupported operator: %v", e.Op)
	}
}

func (g *gen) compileCall(ctx context.Context, e *ast.CallExpr) (llvm.Value, error) {
	fn := g.m.NamedFunction(e.Callee.Name)
	if fn.IsNil() {
		return llvm.Value{}, errors.New("undefined function: %v", e.Callee.Name)
	}

	args := make([]llvm.Value, len(e.Args.Args))

	for i, a := range e.Args.Args {
		v, err := g.compileExpr(ctx, a)
		if err != nil {
			return llvm.Value{}, errors.Wrap(err, "arg %d", i)
		}

		args[i] = v
	}

	return g.b.CreateCall(fn.GlobalValueType(), fn, args, ""), nil
}

// terminated reports whether the current insertion block already
// ends with a terminator.
func (g *gen) terminated() bool {
	last := g.b.GetInsertBlock().LastInstruction()
	if last.IsNil() {
		return false
	}

	switch last.InstructionOpcode() {
	case llvm.Ret, llvm.Br, llvm.Switch, llvm.IndirectBr, llvm.Invoke, llvm.Unreachable:
		return true
	default:
		return false
	}
}

// join branches to the merge block unless the current block is
// already terminated.
func (g *gen) join(merge llvm.BasicBlock) {
	if !g.terminated() {
		g.b.CreateBr(merge)
	}
}

func (g *gen) pushScope() {
	g.scopes = append(g.scopes, map[string]slot{})
}

func (g *gen) popScope() {
	g.scopes = g.scopes[:len(g.scopes)-1]
}

func (g *gen) bind(name string, sl slot) {
	g.scopes[len(g.scopes)-1][name] = sl
}

func (g *gen) lookup(name string) (slot, bool) {
	for i := len(g.scopes) - 1; i >= 0; i-- {
		if sl, ok := g.scopes[i][name]; ok {
			return sl, true
		}
	}

	return slot{}, false
}
