package query

import (
	"strings"
	"time"

	"genealogycore/pkg/domain"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
	"golang.org/x/text/cases"
)

// predicate reports whether a record passes a filter.
type predicate func(r record) bool

func matchAll(record) bool { return true }

func declarations(schema Schema) (*filtering.Declarations, error) {
	opts := []filtering.DeclarationOption{
		filtering.DeclareStandardFunctions(),
		// Implicit AND between terms ("a = 1 b = 2") parses as FUZZY.
		filtering.DeclareFunction(filtering.FunctionFuzzyAnd,
			filtering.NewFunctionOverload("FUZZY_bool", filtering.TypeBool, filtering.TypeBool, filtering.TypeBool)),
	}
	for _, name := range schema.FieldNames() {
		typ := filtering.TypeString
		switch schema.Fields[name].Type {
		case Number:
			typ = filtering.TypeInt
		case Timestamp:
			typ = filtering.TypeTimestamp
		}
		opts = append(opts, filtering.DeclareIdent(name, typ))
	}
	return filtering.NewDeclarations(opts...)
}

// compileFilter parses an AIP-160 filter into a predicate over schema fields.
func compileFilter(schema Schema, raw string, cmp comparer) (predicate, error) {
	if strings.TrimSpace(raw) == "" {
		return matchAll, nil
	}
	decls, err := declarations(schema)
	if err != nil {
		return nil, err
	}
	filter, err := filtering.ParseFilterString(raw, decls)
	if err != nil {
		return nil, domain.Invalid("filter", "%v", err)
	}
	c := compiler{schema: schema, cmp: cmp, fold: cases.Fold()}
	return c.compile(filter.CheckedExpr.GetExpr())
}

type compiler struct {
	schema Schema
	cmp    comparer
	fold   cases.Caser
}

func (c compiler) compile(e *expr.Expr) (predicate, error) {
	call, ok := e.GetExprKind().(*expr.Expr_CallExpr)
	if !ok {
		return nil, domain.Invalid("filter", "expected a condition, got %T", e.GetExprKind())
	}
	fn, args := call.CallExpr.GetFunction(), call.CallExpr.GetArgs()
	switch fn {
	case "AND", "_&&_", "FUZZY", "OR", "_||_":
		if len(args) != 2 {
			return nil, domain.Invalid("filter", "%s requires 2 arguments", fn)
		}
		left, err := c.compile(args[0])
		if err != nil {
			return nil, err
		}
		right, err := c.compile(args[1])
		if err != nil {
			return nil, err
		}
		if fn != "OR" && fn != "_||_" {
			return func(r record) bool { return left(r) && right(r) }, nil
		}
		return func(r record) bool { return left(r) || right(r) }, nil
	case "NOT", "-":
		if len(args) != 1 {
			return nil, domain.Invalid("filter", "NOT requires 1 argument")
		}
		inner, err := c.compile(args[0])
		if err != nil {
			return nil, err
		}
		return func(r record) bool { return !inner(r) }, nil
	case "=", "_==_", "!=", "_!=_", "<", "_<_", "<=", "_<=_", ">", "_>_", ">=", "_>=_", ":":
		return c.comparison(strings.Trim(fn, "_"), args)
	}
	return nil, domain.Invalid("filter", "unsupported function %q", fn)
}

func (c compiler) comparison(op string, args []*expr.Expr) (predicate, error) {
	if len(args) != 2 {
		return nil, domain.Invalid("filter", "%s requires 2 arguments", op)
	}
	ident, ok := args[0].GetExprKind().(*expr.Expr_IdentExpr)
	if !ok {
		return nil, domain.Invalid("filter", "left side of %s must be a field", op)
	}
	field, ok := c.schema.Fields[ident.IdentExpr.GetName()]
	if !ok {
		return nil, domain.Invalid("filter", "unknown field %q", ident.IdentExpr.GetName())
	}
	want, err := constant(field, args[1])
	if err != nil {
		return nil, err
	}
	if op == ":" {
		if field.Type != Text {
			return nil, domain.Invalid("filter", "%s only supports text fields", op)
		}
		needle := c.fold.String(want.text)
		return func(r record) bool {
			return strings.Contains(c.fold.String(r.value(field).text), needle)
		}, nil
	}
	return func(r record) bool {
		got := r.value(field)
		if !got.present || !want.present {
			// Absent values only take part in equality.
			switch op {
			case "=", "==":
				return got.present == want.present
			case "!=":
				return got.present != want.present
			}
			return false
		}
		n := c.cmp.compare(field, got, want)
		switch op {
		case "=", "==":
			return n == 0
		case "!=":
			return n != 0
		case "<":
			return n < 0
		case "<=":
			return n <= 0
		case ">":
			return n > 0
		}
		return n >= 0
	}, nil
}

func constant(field Field, e *expr.Expr) (value, error) {
	switch kind := e.GetExprKind().(type) {
	case *expr.Expr_ConstExpr:
		switch v := kind.ConstExpr.GetConstantKind().(type) {
		case *expr.Constant_StringValue:
			s := strings.TrimSpace(v.StringValue)
			if field.Type == Date {
				s = domain.NormalizeDate(s)
			}
			return value{text: s, present: s != ""}, nil
		case *expr.Constant_Int64Value:
			return value{number: v.Int64Value, present: true}, nil
		}
		return value{}, domain.Invalid("filter", "unsupported constant for %s", field.Name)
	case *expr.Expr_CallExpr:
		if kind.CallExpr.GetFunction() == "timestamp" && len(kind.CallExpr.GetArgs()) == 1 {
			lit, ok := kind.CallExpr.GetArgs()[0].GetExprKind().(*expr.Expr_ConstExpr)
			if ok {
				t, err := time.Parse(time.RFC3339, lit.ConstExpr.GetStringValue())
				if err != nil {
					return value{}, domain.Invalid("filter", "invalid timestamp: %v", err)
				}
				return value{time: t, present: true}, nil
			}
		}
	}
	return value{}, domain.Invalid("filter", "right side of a comparison on %s must be a constant", field.Name)
}
