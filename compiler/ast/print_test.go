package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *DeclSeq {
	return &DeclSeq{
		Decls: []Decl{
			&FuncDecl{
				Name: &Ident{Name: "main"},
				Params: &ParamList{
					Params: []*Param{
						{Name: &Ident{Name: "a"}, Type: &QualifiedType{Name: "i32"}},
					},
				},
				RetType: &QualifiedType{Name: "i32"},
				Body: &FuncBody{
					Stmts: &StmtList{
						Stmts: []Stmt{
							&Return{
								Value: &BinOp{
									Left:  &IdentExpr{Ident: &Ident{Name: "a"}},
									Op:    OpAdd,
									Right: &IntLit{Text: "1"},
								},
							},
						},
					},
				},
			},
		},
	}
}

func TestRender(t *testing.T) {
	b, err := Render(nil, sample(), 0)
	require.NoError(t, err)

	assert.Equal(t, "fn main(a: i32) -> i32 {\n\treturn (a + 1);\n}\n", string(b))
}

func TestRenderTemplateID(t *testing.T) {
	typ := &TemplateID{
		Head: &QualifiedType{Name: "Array"},
		Args: []Type{
			&QualifiedType{Name: "i32"},
			&QualifiedType{Name: "i64"},
		},
	}

	b, err := Render(nil, typ, 0)
	require.NoError(t, err)

	assert.Equal(t, "Array<i32, i64>", string(b))
}

func TestRenderUnsupportedNode(t *testing.T) {
	_, err := Render(nil, struct{}{}, 0)
	require.Error(t, err)
}

func TestDump(t *testing.T) {
	b := Dump(nil, sample(), 0)

	s := string(b)
	assert.Contains(t, s, "func main")
	assert.Contains(t, s, "param a")
	assert.Contains(t, s, "return")
	assert.Contains(t, s, "binop +")
	assert.Contains(t, s, "int 1")

	t.Logf("dump:\n%s", s)
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "||", OpOr.String())
	assert.Equal(t, "&&", OpAnd.String())
	assert.Equal(t, "==", OpEq.String())
	assert.Equal(t, "+", OpAdd.String())
	assert.Equal(t, "-", OpSub.String())
	assert.Equal(t, "*", OpMul.String())
	assert.Equal(t, "/", OpDiv.String())
}
