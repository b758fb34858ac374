package query

import (
	"strings"
	"time"

	"github.com/rpggio/teamwork/internal/domain/shared"
	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// ParseExpression translates an AIP-160 filter expression into clauses.
// Only conjunctions of field-versus-constant comparisons are accepted.
func ParseExpression(raw string, schema Schema) ([]Clause, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	decls, err := declarations(schema)
	if err != nil {
		return nil, shared.Detail(ErrMalformedQuery, "declarations: %v", err)
	}

	filter, err := filtering.ParseFilterString(raw, decls)
	if err != nil {
		return nil, shared.Detail(ErrMalformedQuery, "parse filter: %v", err)
	}
	if filter.CheckedExpr == nil {
		return nil, nil
	}

	var clauses []Clause
	if err := collect(filter.CheckedExpr.GetExpr(), schema, &clauses); err != nil {
		return nil, err
	}
	return clauses, nil
}

func declarations(schema Schema) (*filtering.Declarations, error) {
	opts := []filtering.DeclarationOption{filtering.DeclareStandardFunctions()}
	for name, typ := range schema.Fields {
		opts = append(opts, filtering.DeclareIdent(name, aipType(typ)))
	}
	return filtering.NewDeclarations(opts...)
}

func aipType(typ Type) *expr.Type {
	switch typ {
	case Int:
		return filtering.TypeInt
	case Bool:
		return filtering.TypeBool
	case Time:
		return filtering.TypeTimestamp
	default:
		return filtering.TypeString
	}
}

var expressionOps = map[string]Op{
	"=": OpEq, "_==_": OpEq,
	"!=": OpNe, "_!=_": OpNe,
	"<": OpLt, "_<_": OpLt,
	"<=": OpLte, "_<=_": OpLte,
	">": OpGt, "_>_": OpGt,
	">=": OpGte, "_>=_": OpGte,
}

func collect(e *expr.Expr, schema Schema, out *[]Clause) error {
	call, ok := e.GetExprKind().(*expr.Expr_CallExpr)
	if !ok {
		return shared.Detail(ErrMalformedQuery, "unsupported expression %T", e.GetExprKind())
	}
	fn := call.CallExpr.GetFunction()
	args := call.CallExpr.GetArgs()

	if fn == "AND" || fn == "_&&_" {
		for _, arg := range args {
			if err := collect(arg, schema, out); err != nil {
				return err
			}
		}
		return nil
	}

	op, ok := expressionOps[fn]
	if !ok {
		return shared.Detail(ErrMalformedQuery, "unsupported function %q", fn)
	}
	if len(args) != 2 {
		return shared.Detail(ErrMalformedQuery, "%q needs two arguments", fn)
	}

	ident, ok := args[0].GetExprKind().(*expr.Expr_IdentExpr)
	if !ok {
		return shared.Detail(ErrMalformedQuery, "left side of %q must be a field", fn)
	}
	field := ident.IdentExpr.GetName()
	if !schema.Has(field) {
		return shared.Detail(ErrMalformedQuery, "unknown field %q", field)
	}

	value, err := constantValue(args[1])
	if err != nil {
		return err
	}
	*out = append(*out, Clause{Field: field, Op: op, Value: value})
	return nil
}

func constantValue(e *expr.Expr) (any, error) {
	switch kind := e.GetExprKind().(type) {
	case *expr.Expr_ConstExpr:
		switch c := kind.ConstExpr.GetConstantKind().(type) {
		case *expr.Constant_StringValue:
			return c.StringValue, nil
		case *expr.Constant_Int64Value:
			return c.Int64Value, nil
		case *expr.Constant_Uint64Value:
			return int64(c.Uint64Value), nil
		case *expr.Constant_DoubleValue:
			return c.DoubleValue, nil
		case *expr.Constant_BoolValue:
			return c.BoolValue, nil
		}
		return nil, shared.Detail(ErrMalformedQuery, "unsupported constant %T", kind.ConstExpr.GetConstantKind())
	case *expr.Expr_IdentExpr:
		// true and false reach the checker as identifiers.
		switch kind.IdentExpr.GetName() {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, shared.Detail(ErrMalformedQuery, "field %q cannot be a value", kind.IdentExpr.GetName())
	case *expr.Expr_CallExpr:
		if kind.CallExpr.GetFunction() == "timestamp" && len(kind.CallExpr.GetArgs()) == 1 {
			arg, ok := kind.CallExpr.GetArgs()[0].GetExprKind().(*expr.Expr_ConstExpr)
			if ok {
				if s, ok := arg.ConstExpr.GetConstantKind().(*expr.Constant_StringValue); ok {
					t, err := time.Parse(time.RFC3339Nano, s.StringValue)
					if err != nil {
						return nil, shared.Detail(ErrMalformedQuery, "invalid timestamp %q", s.StringValue)
					}
					return t.UTC(), nil
				}
			}
		}
		return nil, shared.Detail(ErrMalformedQuery, "unsupported value function %q", kind.CallExpr.GetFunction())
	default:
		return nil, shared.Detail(ErrMalformedQuery, "unsupported value %T", kind)
	}
}
