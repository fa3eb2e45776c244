package front

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/kociap/tildac/compiler/ast"
)

// Parser builds a declaration sequence by recursive descent with full
// backtracking. Every production snapshots the lexer, attempts to match,
// and restores the snapshot on failure. The deepest failure position wins
// the error report.
type Parser struct {
	lex *Lexer
	err Error
}

func NewParser(name string, text []byte) *Parser {
	return &Parser{
		lex: NewLexer(name, text),
		err: Error{Off: -1},
	}
}

// Parse parses a whole source buffer.
func Parse(ctx context.Context, name string, text []byte) (*ast.DeclSeq, error) {
	p := NewParser(name, text)

	decls, err := p.Parse(ctx)
	if err != nil {
		return nil, err
	}

	tlog.SpanFromContext(ctx).Printw("parsed", "file", name, "decls", len(decls.Decls))

	return decls, nil
}

func (p *Parser) Parse(ctx context.Context) (*ast.DeclSeq, error) {
	decls := &ast.DeclSeq{}

	for !p.lex.MatchEOF() {
		d := p.tryDeclaration(ctx)
		if d == nil {
			return nil, p.err
		}

		decls.Decls = append(decls.Decls, d)
	}

	return decls, nil
}

// setError records msg at the current position if it is strictly deeper
// than the deepest error so far. Ties keep the first writer.
func (p *Parser) setError(msg string) {
	p.setErrorAt(msg, p.lex.State())
}

func (p *Parser) setErrorAt(msg string, st State) {
	if st.Off <= p.err.Off {
		return
	}

	p.err = Error{
		Message: msg,
		Line:    st.Line,
		Col:     st.Col,
		Off:     st.Off,
	}
}

func (p *Parser) tryDeclaration(ctx context.Context) ast.Decl {
	if d := p.tryVariableDeclaration(ctx); d != nil {
		return d
	}

	if d := p.tryFunctionDeclaration(ctx); d != nil {
		return d
	}

	return nil
}

func (p *Parser) tryVariableDeclaration(ctx context.Context) *ast.VarDecl {
	backup := p.lex.State()

	if !p.lex.MatchWord(ctx, "var") {
		p.setError("expected keyword `var`")
		p.lex.Restore(backup)
		return nil
	}

	name := p.tryIdentifier(ctx)
	if name == nil {
		p.setError("expected variable name")
		p.lex.Restore(backup)
		return nil
	}

	if !p.lex.Match(ctx, ":") {
		p.setError("expected `:` after variable name")
		p.lex.Restore(backup)
		return nil
	}

	typ := p.tryType(ctx)
	if typ == nil {
		p.setError("expected type")
		p.lex.Restore(backup)
		return nil
	}

	var init ast.Expr
	if p.lex.Match(ctx, "=") {
		init = p.tryExpression(ctx)
		if init == nil {
			p.lex.Restore(backup)
			return nil
		}
	}

	if !p.lex.Match(ctx, ";") {
		p.setError("expected `;` after variable declaration")
		p.lex.Restore(backup)
		return nil
	}

	return &ast.VarDecl{
		Info: p.lex.Info(backup),
		Type: typ,
		Name: name,
		Init: init,
	}
}

func (p *Parser) tryFunctionDeclaration(ctx context.Context) *ast.FuncDecl {
	backup := p.lex.State()

	if !p.lex.MatchWord(ctx, "fn") {
		p.setError("expected keyword `fn`")
		p.lex.Restore(backup)
		return nil
	}

	name := p.tryIdentifier(ctx)
	if name == nil {
		p.setError("expected function name")
		p.lex.Restore(backup)
		return nil
	}

	params := p.tryFunctionParameterList(ctx)
	if params == nil {
		p.lex.Restore(backup)
		return nil
	}

	if !p.lex.Match(ctx, "->") {
		p.setError("expected `->`")
		p.lex.Restore(backup)
		return nil
	}

	ret := p.tryType(ctx)
	if ret == nil {
		p.setError("expected return type")
		p.lex.Restore(backup)
		return nil
	}

	body := p.tryFunctionBody(ctx)
	if body == nil {
		p.lex.Restore(backup)
		return nil
	}

	return &ast.FuncDecl{
		Info:    p.lex.Info(backup),
		Name:    name,
		Params:  params,
		RetType: ret,
		Body:    body,
	}
}

func (p *Parser) tryFunctionParameter(ctx context.Context) *ast.Param {
	backup := p.lex.State()

	name := p.tryIdentifier(ctx)
	if name == nil {
		p.setError("expected parameter name")
		p.lex.Restore(backup)
		return nil
	}

	if !p.lex.Match(ctx, ":") {
		p.setError("expected `:`")
		p.lex.Restore(backup)
		return nil
	}

	typ := p.tryType(ctx)
	if typ == nil {
		p.setError("expected parameter type")
		p.lex.Restore(backup)
		return nil
	}

	return &ast.Param{
		Info: p.lex.Info(backup),
		Name: name,
		Type: typ,
	}
}

func (p *Parser) tryFunctionParameterList(ctx context.Context) *ast.ParamList {
	backup := p.lex.State()

	if !p.lex.Match(ctx, "(") {
		p.setError("expected `(`")
		p.lex.Restore(backup)
		return nil
	}

	list := &ast.ParamList{Info: p.lex.Info(backup)}

	if p.lex.Match(ctx, ")") {
		return list
	}

	for {
		param := p.tryFunctionParameter(ctx)
		if param == nil {
			p.lex.Restore(backup)
			return nil
		}

		list.Params = append(list.Params, param)

		if !p.lex.Match(ctx, ",") {
			break
		}
	}

	if !p.lex.Match(ctx, ")") {
		p.setError("expected `)` after function parameter list")
		p.lex.Restore(backup)
		return nil
	}

	return list
}

func (p *Parser) tryFunctionBody(ctx context.Context) *ast.FuncBody {
	backup := p.lex.State()

	if !p.lex.Match(ctx, "{") {
		p.setError("expected `{` at the beginning of function body")
		p.lex.Restore(backup)
		return nil
	}

	if p.lex.Match(ctx, "}") {
		return &ast.FuncBody{Info: p.lex.Info(backup)}
	}

	stmts := p.tryStatementList(ctx)
	if len(stmts.Stmts) == 0 {
		p.lex.Restore(backup)
		return nil
	}

	if !p.lex.Match(ctx, "}") {
		p.setError("expected `}` at the end of function body")
		p.lex.Restore(backup)
		return nil
	}

	return &ast.FuncBody{Info: p.lex.Info(backup), Stmts: stmts}
}

// tryStatementList does not fail: it collects statements while any
// statement production matches.
func (p *Parser) tryStatementList(ctx context.Context) *ast.StmtList {
	list := &ast.StmtList{}

	for {
		s := p.tryStatement(ctx)
		if s == nil {
			return list
		}

		list.Stmts = append(list.Stmts, s)
	}
}

func (p *Parser) tryStatement(ctx context.Context) ast.Stmt {
	if s := p.tryBlockStatement(ctx); s != nil {
		return s
	}

	if s := p.tryIfStatement(ctx); s != nil {
		return s
	}

	if s := p.tryForStatement(ctx); s != nil {
		return s
	}

	if s := p.tryWhileStatement(ctx); s != nil {
		return s
	}

	if s := p.tryDoWhileStatement(ctx); s != nil {
		return s
	}

	if d := p.tryVariableDeclaration(ctx); d != nil {
		return &ast.DeclStmt{Info: d.Info, Decl: d}
	}

	if s := p.tryReturnStatement(ctx); s != nil {
		return s
	}

	if s := p.tryExpressionStatement(ctx); s != nil {
		return s
	}

	return nil
}

func (p *Parser) tryBlockStatement(ctx context.Context) *ast.Block {
	backup := p.lex.State()

	if !p.lex.Match(ctx, "{") {
		p.setError("expected `{` at the start of block")
		p.lex.Restore(backup)
		return nil
	}

	if p.lex.Match(ctx, "}") {
		return &ast.Block{Info: p.lex.Info(backup), List: &ast.StmtList{}}
	}

	stmts := p.tryStatementList(ctx)
	if len(stmts.Stmts) == 0 {
		p.lex.Restore(backup)
		return nil
	}

	if !p.lex.Match(ctx, "}") {
		p.setError("expected `}` at the end of block")
		p.lex.Restore(backup)
		return nil
	}

	return &ast.Block{Info: p.lex.Info(backup), List: stmts}
}

func (p *Parser) tryIfStatement(ctx context.Context) *ast.If {
	backup := p.lex.State()

	if !p.lex.MatchWord(ctx, "if") {
		p.setError("expected `if`")
		p.lex.Restore(backup)
		return nil
	}

	cond := p.tryExpression(ctx)
	if cond == nil {
		p.lex.Restore(backup)
		return nil
	}

	then := p.tryBlockStatement(ctx)
	if then == nil {
		p.lex.Restore(backup)
		return nil
	}

	x := &ast.If{
		Info: p.lex.Info(backup),
		Cond: cond,
		Then: then,
	}

	if !p.lex.MatchWord(ctx, "else") {
		return x
	}

	if elseIf := p.tryIfStatement(ctx); elseIf != nil {
		x.ElseIf = elseIf
		return x
	}

	if elseBlock := p.tryBlockStatement(ctx); elseBlock != nil {
		x.Else = elseBlock
		return x
	}

	p.setError("expected `if` or `{` after `else`")
	p.lex.Restore(backup)

	return nil
}

func (p *Parser) tryForStatement(ctx context.Context) *ast.For {
	backup := p.lex.State()

	if !p.lex.MatchWord(ctx, "for") {
		p.setError("expected `for`")
		p.lex.Restore(backup)
		return nil
	}

	if !p.lex.Match(ctx, ";") {
		p.setError("expected `;`")
		p.lex.Restore(backup)
		return nil
	}

	cond := p.tryExpression(ctx)

	if !p.lex.Match(ctx, ";") {
		p.setError("expected `;`")
		p.lex.Restore(backup)
		return nil
	}

	post := p.tryExpression(ctx)

	if !p.lex.Match(ctx, "{") {
		p.setError("expected `{`")
		p.lex.Restore(backup)
		return nil
	}

	body := p.tryStatementList(ctx)

	if !p.lex.Match(ctx, "}") {
		p.setError("expected `}`")
		p.lex.Restore(backup)
		return nil
	}

	return &ast.For{
		Info: p.lex.Info(backup),
		Cond: cond,
		Post: post,
		Body: body,
	}
}

func (p *Parser) tryWhileStatement(ctx context.Context) *ast.While {
	backup := p.lex.State()

	if !p.lex.MatchWord(ctx, "while") {
		p.setError("expected `while`")
		p.lex.Restore(backup)
		return nil
	}

	cond := p.tryExpression(ctx)
	if cond == nil {
		p.lex.Restore(backup)
		return nil
	}

	body := p.tryBlockStatement(ctx)
	if body == nil {
		p.lex.Restore(backup)
		return nil
	}

	return &ast.While{
		Info: p.lex.Info(backup),
		Cond: cond,
		Body: body,
	}
}

func (p *Parser) tryDoWhileStatement(ctx context.Context) *ast.DoWhile {
	backup := p.lex.State()

	if !p.lex.MatchWord(ctx, "do") {
		p.setError("expected `do`")
		p.lex.Restore(backup)
		return nil
	}

	body := p.tryBlockStatement(ctx)
	if body == nil {
		p.lex.Restore(backup)
		return nil
	}

	if !p.lex.MatchWord(ctx, "while") {
		p.setError("expected `while`")
		p.lex.Restore(backup)
		return nil
	}

	cond := p.tryExpression(ctx)
	if cond == nil {
		p.lex.Restore(backup)
		return nil
	}

	if !p.lex.Match(ctx, ";") {
		p.setError("expected `;` after do-while statement")
		p.lex.Restore(backup)
		return nil
	}

	return &ast.DoWhile{
		Info: p.lex.Info(backup),
		Cond: cond,
		Body: body,
	}
}

func (p *Parser) tryReturnStatement(ctx context.Context) *ast.Return {
	backup := p.lex.State()

	if !p.lex.MatchWord(ctx, "return") {
		p.lex.Restore(backup)
		return nil
	}

	value := p.tryExpression(ctx)

	if !p.lex.Match(ctx, ";") {
		p.setError("expected `;` at the end of statement")
		p.lex.Restore(backup)
		return nil
	}

	return &ast.Return{
		Info:  p.lex.Info(backup),
		Value: value,
	}
}

func (p *Parser) tryExpressionStatement(ctx context.Context) *ast.ExprStmt {
	backup := p.lex.State()

	x := p.tryExpression(ctx)
	if x == nil {
		p.lex.Restore(backup)
		return nil
	}

	if !p.lex.Match(ctx, ";") {
		p.setError("expected `;` at the end of statement")
		p.lex.Restore(backup)
		return nil
	}

	return &ast.ExprStmt{Info: p.lex.Info(backup), X: x}
}

func (p *Parser) tryType(ctx context.Context) ast.Type {
	if t := p.tryTemplateID(ctx); t != nil {
		return t
	}

	if t := p.tryQualifiedType(ctx); t != nil {
		return t
	}

	return nil
}

// tryTemplateID requires at least one nested type: empty angle
// brackets fail the production.
func (p *Parser) tryTemplateID(ctx context.Context) *ast.TemplateID {
	backup := p.lex.State()

	head := p.tryQualifiedType(ctx)
	if head == nil {
		p.lex.Restore(backup)
		return nil
	}

	if !p.lex.Match(ctx, "<") {
		p.setError("expected `<`")
		p.lex.Restore(backup)
		return nil
	}

	x := &ast.TemplateID{Info: p.lex.Info(backup), Head: head}

	for {
		t := p.tryType(ctx)
		if t == nil {
			p.setError("expected type")
			p.lex.Restore(backup)
			return nil
		}

		x.Args = append(x.Args, t)

		if !p.lex.Match(ctx, ",") {
			break
		}
	}

	if !p.lex.Match(ctx, ">") {
		p.setError("expected `>`")
		p.lex.Restore(backup)
		return nil
	}

	return x
}

func (p *Parser) tryQualifiedType(ctx context.Context) *ast.QualifiedType {
	backup := p.lex.State()

	name, ok := p.lex.MatchIdentifier(ctx)
	if !ok {
		p.setError("expected identifier")
		return nil
	}

	return &ast.QualifiedType{Info: p.lex.Info(backup), Name: name}
}

func (p *Parser) tryExpression(ctx context.Context) ast.Expr {
	return p.tryOrExpression(ctx)
}

// The binary levels are right-associative: each level parses one operand
// of the next tighter level and then, after the operator, recurses into
// itself for the whole right-hand side.

func (p *Parser) tryOrExpression(ctx context.Context) ast.Expr {
	backup := p.lex.State()

	lhs := p.tryAndExpression(ctx)
	if lhs == nil {
		p.lex.Restore(backup)
		return nil
	}

	if !p.lex.Match(ctx, "||") {
		return lhs
	}

	rhs := p.tryOrExpression(ctx)
	if rhs == nil {
		p.lex.Restore(backup)
		return nil
	}

	return &ast.BinOp{Info: p.lex.Info(backup), Left: lhs, Op: ast.OpOr, Right: rhs}
}

func (p *Parser) tryAndExpression(ctx context.Context) ast.Expr {
	backup := p.lex.State()

	lhs := p.tryEqualityExpression(ctx)
	if lhs == nil {
		p.lex.Restore(backup)
		return nil
	}

	if !p.lex.Match(ctx, "&&") {
		return lhs
	}

	rhs := p.tryAndExpression(ctx)
	if rhs == nil {
		p.lex.Restore(backup)
		return nil
	}

	return &ast.BinOp{Info: p.lex.Info(backup), Left: lhs, Op: ast.OpAnd, Right: rhs}
}

func (p *Parser) tryEqualityExpression(ctx context.Context) ast.Expr {
	backup := p.lex.State()

	lhs := p.tryAddSubExpression(ctx)
	if lhs == nil {
		p.lex.Restore(backup)
		return nil
	}

	if !p.lex.Match(ctx, "==") {
		return lhs
	}

	rhs := p.tryEqualityExpression(ctx)
	if rhs == nil {
		p.lex.Restore(backup)
		return nil
	}

	return &ast.BinOp{Info: p.lex.Info(backup), Left: lhs, Op: ast.OpEq, Right: rhs}
}

func (p *Parser) tryAddSubExpression(ctx context.Context) ast.Expr {
	backup := p.lex.State()

	lhs := p.tryMulDivExpression(ctx)
	if lhs == nil {
		p.lex.Restore(backup)
		return nil
	}

	op := ast.OpAdd

	switch {
	case p.lex.Match(ctx, "+"):
	case p.lex.Match(ctx, "-"):
		op = ast.OpSub
	default:
		return lhs
	}

	rhs := p.tryAddSubExpression(ctx)
	if rhs == nil {
		p.lex.Restore(backup)
		return nil
	}

	return &ast.BinOp{Info: p.lex.Info(backup), Left: lhs, Op: op, Right: rhs}
}

func (p *Parser) tryMulDivExpression(ctx context.Context) ast.Expr {
	backup := p.lex.State()

	lhs := p.tryPrimaryExpression(ctx)
	if lhs == nil {
		p.lex.Restore(backup)
		return nil
	}

	op := ast.OpMul

	switch {
	case p.lex.Match(ctx, "*"):
	case p.lex.Match(ctx, "/"):
		op = ast.OpDiv
	default:
		return lhs
	}

	rhs := p.tryMulDivExpression(ctx)
	if rhs == nil {
		p.lex.Restore(backup)
		return nil
	}

	return &ast.BinOp{Info: p.lex.Info(backup), Left: lhs, Op: op, Right: rhs}
}

func (p *Parser) tryPrimaryExpression(ctx context.Context) ast.Expr {
	backup := p.lex.State()

	if p.lex.Match(ctx, "(") {
		x := p.tryExpression(ctx)
		if x == nil {
			p.lex.Restore(backup)
			return nil
		}

		if !p.lex.Match(ctx, ")") {
			p.setError("expected `)`")
			p.lex.Restore(backup)
			return nil
		}

		return x
	}

	if x := p.tryIntegerLiteral(ctx); x != nil {
		return x
	}

	if x := p.tryFunctionCallExpression(ctx); x != nil {
		return x
	}

	if x := p.tryBoolLiteral(ctx); x != nil {
		return x
	}

	if x := p.tryIdentifierExpression(ctx); x != nil {
		return x
	}

	return nil
}

func (p *Parser) tryFunctionCallExpression(ctx context.Context) *ast.CallExpr {
	backup := p.lex.State()

	callee := p.tryIdentifier(ctx)
	if callee == nil {
		p.setError("expected function name")
		p.lex.Restore(backup)
		return nil
	}

	if !p.lex.Match(ctx, "(") {
		p.setError("expected `(` after function name")
		p.lex.Restore(backup)
		return nil
	}

	x := &ast.CallExpr{
		Info:   p.lex.Info(backup),
		Callee: callee,
		Args:   &ast.ArgList{Info: p.lex.Info(backup)},
	}

	if p.lex.Match(ctx, ")") {
		return x
	}

	for {
		arg := p.tryExpression(ctx)
		if arg == nil {
			p.lex.Restore(backup)
			return nil
		}

		x.Args.Args = append(x.Args.Args, arg)

		if !p.lex.Match(ctx, ",") {
			break
		}
	}

	if !p.lex.Match(ctx, ")") {
		p.setError("expected `)`")
		p.lex.Restore(backup)
		return nil
	}

	return x
}

func (p *Parser) tryIntegerLiteral(ctx context.Context) *ast.IntLit {
	backup := p.lex.State()

	text, float, ok := p.lex.MatchNumber(ctx)
	if !ok {
		p.setError("expected integer literal")
		p.lex.Restore(backup)
		return nil
	}

	if float {
		p.setError("unexpected float literal")
		p.lex.Restore(backup)
		return nil
	}

	return &ast.IntLit{Info: p.lex.Info(backup), Text: text}
}

func (p *Parser) tryBoolLiteral(ctx context.Context) *ast.BoolLit {
	backup := p.lex.State()

	if p.lex.MatchWord(ctx, "true") {
		return &ast.BoolLit{Info: p.lex.Info(backup), Value: true}
	}

	if p.lex.MatchWord(ctx, "false") {
		return &ast.BoolLit{Info: p.lex.Info(backup), Value: false}
	}

	p.setError("expected bool literal")

	return nil
}

func (p *Parser) tryIdentifierExpression(ctx context.Context) *ast.IdentExpr {
	backup := p.lex.State()

	id := p.tryIdentifier(ctx)
	if id == nil {
		p.setError("expected an identifier")
		return nil
	}

	return &ast.IdentExpr{Info: p.lex.Info(backup), Ident: id}
}

func (p *Parser) tryIdentifier(ctx context.Context) *ast.Ident {
	backup := p.lex.State()

	name, ok := p.lex.MatchIdentifier(ctx)
	if !ok {
		return nil
	}

	return &ast.Ident{Info: p.lex.Info(backup), Name: name}
}
