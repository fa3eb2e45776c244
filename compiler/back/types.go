package back

import (
	llvm "tinygo.org/x/go-llvm"

	"tlog.app/go/errors"

	"github.com/kociap/tildac/compiler/ast"
)

// builtinTypes is the fixed lowering table for builtin type names.
// Signedness is not part of the type: it is carried by the operator.
func builtinTypes(lc llvm.Context) map[string]llvm.Type {
	return map[string]llvm.Type{
		"void": lc.VoidType(),
		"bool": lc.Int1Type(),

		"i8": lc.Int8Type(), "u8": lc.Int8Type(), "c8": lc.Int8Type(),
		"i16": lc.Int16Type(), "u16": lc.Int16Type(), "c16": lc.Int16Type(),
		"i32": lc.Int32Type(), "u32": lc.Int32Type(), "c32": lc.Int32Type(),
		"i64": lc.Int64Type(), "u64": lc.Int64Type(),

		"f32": lc.FloatType(),
		"f64": lc.DoubleType(),
	}
}

func (g *gen) lowerType(t ast.Type) (llvm.Type, error) {
	switch t := t.(type) {
	case *ast.QualifiedType:
		lt, ok := g.types[t.Name]
		if !ok {
			return llvm.Type{}, errors.New("unknown type name: %v", t.Name)
		}

		return lt, nil
	case *ast.TemplateID:
		return llvm.Type{}, errors.New("template type %v cannot be lowered", t.Head.Name)
	default:
		return llvm.Type{}, errors.New("unsupported type node: %T", t)
	}
}
