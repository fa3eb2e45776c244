package ast

import (
	"fmt"

	"tlog.app/go/errors"
)

// Dump appends an indented tree description of x, one node per line.
func Dump(b []byte, x Node, d int) []byte {
	switch x := x.(type) {
	case *DeclSeq:
		for _, dc := range x.Decls {
			b = Dump(b, dc, d)
		}
	case *FuncDecl:
		b = app(b, d, "func %s\n", x.Name.Name)

		for _, p := range x.Params.Params {
			b = app(b, d+1, "param %s\n", p.Name.Name)
			b = Dump(b, p.Type, d+2)
		}

		b = app(b, d+1, "return type\n")
		b = Dump(b, x.RetType, d+2)

		b = app(b, d+1, "body\n")
		if x.Body.Stmts != nil {
			b = Dump(b, x.Body.Stmts, d+2)
		}
	case *VarDecl:
		b = app(b, d, "var %s\n", x.Name.Name)
		b = Dump(b, x.Type, d+1)

		if x.Init != nil {
			b = Dump(b, x.Init, d+1)
		}
	case *StmtList:
		for _, s := range x.Stmts {
			b = Dump(b, s, d)
		}
	case *Block:
		b = app(b, d, "block\n")
		if x.List != nil {
			b = Dump(b, x.List, d+1)
		}
	case *If:
		b = app(b, d, "if\n")
		b = Dump(b, x.Cond, d+1)
		b = Dump(b, x.Then, d+1)

		if x.Else != nil {
			b = app(b, d, "else\n")
			b = Dump(b, x.Else, d+1)
		}
		if x.ElseIf != nil {
			b = app(b, d, "else\n")
			b = Dump(b, x.ElseIf, d+1)
		}
	case *For:
		b = app(b, d, "for\n")
		if x.Cond != nil {
			b = Dump(b, x.Cond, d+1)
		}
		if x.Post != nil {
			b = Dump(b, x.Post, d+1)
		}
		b = Dump(b, x.Body, d+1)
	case *While:
		b = app(b, d, "while\n")
		b = Dump(b, x.Cond, d+1)
		b = Dump(b, x.Body, d+1)
	case *DoWhile:
		b = app(b, d, "do-while\n")
		b = Dump(b, x.Cond, d+1)
		b = Dump(b, x.Body, d+1)
	case *Return:
		b = app(b, d, "return\n")
		if x.Value != nil {
			b = Dump(b, x.Value, d+1)
		}
	case *DeclStmt:
		b = app(b, d, "decl stmt\n")
		b = Dump(b, x.Decl, d+1)
	case *ExprStmt:
		b = app(b, d, "expr stmt\n")
		b = Dump(b, x.X, d+1)
	case *BinOp:
		b = app(b, d, "binop %v\n", x.Op)
		b = Dump(b, x.Left, d+1)
		b = Dump(b, x.Right, d+1)
	case *CallExpr:
		b = app(b, d, "call %s\n", x.Callee.Name)
		for _, a := range x.Args.Args {
			b = Dump(b, a, d+1)
		}
	case *IdentExpr:
		b = app(b, d, "ident %s\n", x.Ident.Name)
	case *IntLit:
		b = app(b, d, "int %s\n", x.Text)
	case *BoolLit:
		b = app(b, d, "bool %v\n", x.Value)
	case *QualifiedType:
		b = app(b, d, "type %s\n", x.Name)
	case *TemplateID:
		b = app(b, d, "template %s\n", x.Head.Name)
		for _, a := range x.Args {
			b = Dump(b, a, d+1)
		}
	default:
		b = app(b, d, "unknown node %T\n", x)
	}

	return b
}

// Render appends x in source form. The result parses back
// into the same tree shape.
func Render(b []byte, x Node, d int) (_ []byte, err error) {
	switch x := x.(type) {
	case *DeclSeq:
		for i, dc := range x.Decls {
			if i != 0 {
				b = append(b, '\n')
			}

			b, err = Render(b, dc, d)
			if err != nil {
				return nil, err
			}
		}
	case *FuncDecl:
		b = app(b, d, "fn %s(", x.Name.Name)

		for i, p := range x.Params.Params {
			if i != 0 {
				b = append(b, ", "...)
			}

			b = app(b, 0, "%s: ", p.Name.Name)

			b, err = Render(b, p.Type, 0)
			if err != nil {
				return nil, errors.Wrap(err, "param %v", p.Name.Name)
			}
		}

		b = append(b, ") -> "...)

		b, err = Render(b, x.RetType, 0)
		if err != nil {
			return nil, errors.Wrap(err, "return type")
		}

		b = append(b, " {\n"...)

		if x.Body.Stmts != nil {
			b, err = Render(b, x.Body.Stmts, d+1)
			if err != nil {
				return nil, errors.Wrap(err, "body")
			}
		}

		b = app(b, d, "}\n")
	case *VarDecl:
		b = app(b, d, "var %s: ", x.Name.Name)

		b, err = Render(b, x.Type, 0)
		if err != nil {
			return nil, errors.Wrap(err, "type")
		}

		if x.Init != nil {
			b = append(b, " = "...)

			b, err = Render(b, x.Init, 0)
			if err != nil {
				return nil, errors.Wrap(err, "initializer")
			}
		}

		b = append(b, ";\n"...)
	case *StmtList:
		for _, s := range x.Stmts {
			b, err = Render(b, s, d)
			if err != nil {
				return nil, err
			}
		}
	case *Block:
		b = app(b, d, "{\n")

		if x.List != nil {
			b, err = Render(b, x.List, d+1)
			if err != nil {
				return nil, err
			}
		}

		b = app(b, d, "}\n")
	case *If:
		b = app(b, d, "if ")

		b, err = renderIf(b, x, d)
		if err != nil {
			return nil, err
		}
	case *For:
		b = app(b, d, "for ;")

		if x.Cond != nil {
			b = append(b, ' ')

			b, err = Render(b, x.Cond, 0)
			if err != nil {
				return nil, errors.Wrap(err, "cond")
			}
		}

		b = append(b, ';')

		if x.Post != nil {
			b = append(b, ' ')

			b, err = Render(b, x.Post, 0)
			if err != nil {
				return nil, errors.Wrap(err, "post")
			}
		}

		b = append(b, " {\n"...)

		b, err = Render(b, x.Body, d+1)
		if err != nil {
			return nil, errors.Wrap(err, "body")
		}

		b = app(b, d, "}\n")
	case *While:
		b = app(b, d, "while ")

		b, err = Render(b, x.Cond, 0)
		if err != nil {
			return nil, errors.Wrap(err, "cond")
		}

		b = append(b, ' ')

		b, err = renderBlockTail(b, x.Body, d)
		if err != nil {
			return nil, err
		}

		b = append(b, '\n')
	case *DoWhile:
		b = app(b, d, "do ")

		b, err = renderBlockTail(b, x.Body, d)
		if err != nil {
			return nil, err
		}

		b = append(b, " while "...)

		b, err = Render(b, x.Cond, 0)
		if err != nil {
			return nil, errors.Wrap(err, "cond")
		}

		b = append(b, ";\n"...)
	case *Return:
		b = app(b, d, "return")

		if x.Value != nil {
			b = append(b, ' ')

			b, err = Render(b, x.Value, 0)
			if err != nil {
				return nil, errors.Wrap(err, "value")
			}
		}

		b = append(b, ";\n"...)
	case *DeclStmt:
		b, err = Render(b, x.Decl, d)
		if err != nil {
			return nil, err
		}
	case *ExprStmt:
		b = app(b, d, "")

		b, err = Render(b, x.X, 0)
		if err != nil {
			return nil, err
		}

		b = append(b, ";\n"...)
	case *BinOp:
		b = append(b, '(')

		b, err = Render(b, x.Left, 0)
		if err != nil {
			return nil, errors.Wrap(err, "left")
		}

		b = app(b, 0, " %v ", x.Op)

		b, err = Render(b, x.Right, 0)
		if err != nil {
			return nil, errors.Wrap(err, "right")
		}

		b = append(b, ')')
	case *CallExpr:
		b = app(b, 0, "%s(", x.Callee.Name)

		for i, a := range x.Args.Args {
			if i != 0 {
				b = append(b, ", "...)
			}

			b, err = Render(b, a, 0)
			if err != nil {
				return nil, errors.Wrap(err, "arg %d", i)
			}
		}

		b = append(b, ')')
	case *IdentExpr:
		b = append(b, x.Ident.Name...)
	case *IntLit:
		b = append(b, x.Text...)
	case *BoolLit:
		b = app(b, 0, "%v", x.Value)
	case *QualifiedType:
		b = append(b, x.Name...)
	case *TemplateID:
		b = app(b, 0, "%s<", x.Head.Name)

		for i, a := range x.Args {
			if i != 0 {
				b = append(b, ", "...)
			}

			b, err = Render(b, a, 0)
			if err != nil {
				return nil, errors.Wrap(err, "type arg %d", i)
			}
		}

		b = append(b, '>')
	default:
		return nil, errors.New("unsupported node: %T", x)
	}

	return b, nil
}

// renderIf renders the condition, then-block and else arms.
// The leading "if " is already in b so else-if chains share the code.
func renderIf(b []byte, x *If, d int) (_ []byte, err error) {
	b, err = Render(b, x.Cond, 0)
	if err != nil {
		return nil, errors.Wrap(err, "cond")
	}

	b = append(b, ' ')

	b, err = renderBlockTail(b, x.Then, d)
	if err != nil {
		return nil, errors.Wrap(err, "then")
	}

	switch {
	case x.ElseIf != nil:
		b = append(b, " else if "...)

		b, err = renderIf(b, x.ElseIf, d)
		if err != nil {
			return nil, errors.Wrap(err, "else if")
		}

		return b, nil
	case x.Else != nil:
		b = append(b, " else "...)

		b, err = renderBlockTail(b, x.Else, d)
		if err != nil {
			return nil, errors.Wrap(err, "else")
		}
	}

	b = append(b, '\n')

	return b, nil
}

// renderBlockTail renders a block without the trailing newline
// so the caller can continue the line with else or while.
func renderBlockTail(b []byte, x *Block, d int) (_ []byte, err error) {
	b = append(b, "{\n"...)

	if x.List != nil {
		b, err = Render(b, x.List, d+1)
		if err != nil {
			return nil, err
		}
	}

	b = app(b, d, "}")

	return b, nil
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"
	b = append(b, tabs[:d]...)
	b = fmt.Appendf(b, f, args...)

	return b
}
