package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/cae/internal/ir"
	"github.com/roach88/cae/internal/queryir"
)

// NodeColumns is the column list every compiled query selects, in the
// order store.scanNode expects.
const NodeColumns = "run_id, turn, idx, ord, parent, depth, kind, label, fields"

// SQLCompiler compiles label filters to parameterized SQLite queries over
// the archive's nodes table.
//
// CRITICAL: every query ends with ORDER BY turn, ord so results follow
// turn order and, within a turn, scan order.
// CRITICAL: values and JSON paths are always bound as parameters.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a Select to (sql, params).
func (c *SQLCompiler) Compile(q queryir.Select) (string, []any, error) {
	if q.Run == "" {
		return "", nil, fmt.Errorf("select requires a run id")
	}

	where := []string{"run_id = ?"}
	params := []any{q.Run}

	if len(q.Turns) > 0 {
		where = append(where, "turn IN ("+placeholders(len(q.Turns))+")")
		for _, t := range q.Turns {
			params = append(params, t)
		}
	}

	if q.Filter != nil {
		filterSQL, filterParams, err := c.CompileFilter(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		where = append(where, filterSQL)
		params = append(params, filterParams...)
	}

	sql := fmt.Sprintf("SELECT %s FROM nodes WHERE %s ORDER BY %s",
		NodeColumns,
		strings.Join(where, " AND "),
		stableOrderKey())
	return sql, params, nil
}

// stableOrderKey returns the mandatory ORDER BY clause.
func stableOrderKey() string {
	return "turn ASC, ord ASC"
}

// CompileFilter compiles a filter to a WHERE fragment.
func (c *SQLCompiler) CompileFilter(f queryir.Filter) (string, []any, error) {
	switch node := f.(type) {
	case nil:
		return "1 = 1", nil, nil
	case queryir.KindIs:
		return c.compileKinds(node)
	case *queryir.KindIs:
		return c.compileKinds(*node)
	case queryir.Equals:
		return c.compileEquals(node)
	case *queryir.Equals:
		return c.compileEquals(*node)
	case queryir.And:
		return c.compileJunction(node.Filters, " AND ", "1 = 1")
	case *queryir.And:
		return c.compileJunction(node.Filters, " AND ", "1 = 1")
	case queryir.Or:
		return c.compileJunction(node.Filters, " OR ", "1 = 0")
	case *queryir.Or:
		return c.compileJunction(node.Filters, " OR ", "1 = 0")
	default:
		return "", nil, fmt.Errorf("unsupported filter type: %T", f)
	}
}

func (c *SQLCompiler) compileKinds(k queryir.KindIs) (string, []any, error) {
	if len(k.Kinds) == 0 {
		return "1 = 0", nil, nil
	}
	params := make([]any, len(k.Kinds))
	for i, kind := range k.Kinds {
		params[i] = kind
	}
	return "kind IN (" + placeholders(len(k.Kinds)) + ")", params, nil
}

// compileEquals compiles to "json_extract(fields, ?) = ?". The JSON path
// is a parameter too; the field name is still validated so malformed
// names fail loudly instead of matching nothing.
func (c *SQLCompiler) compileEquals(eq queryir.Equals) (string, []any, error) {
	if !queryir.ValidField(eq.Field) {
		return "", nil, fmt.Errorf("invalid field name %q", eq.Field)
	}
	param, err := irValueToParam(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("field %q: %w", eq.Field, err)
	}
	if eq.Field == queryir.FieldKind {
		return "kind = ?", []any{param}, nil
	}
	return "json_extract(fields, ?) = ?", []any{"$." + eq.Field, param}, nil
}

func (c *SQLCompiler) compileJunction(fs []queryir.Filter, op, empty string) (string, []any, error) {
	if len(fs) == 0 {
		return empty, nil, nil
	}
	parts := make([]string, 0, len(fs))
	var params []any
	for _, f := range fs {
		sql, p, err := c.CompileFilter(f)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, p...)
	}
	return "(" + strings.Join(parts, op) + ")", params, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// irValueToParam converts an ir.IRValue to a SQL parameter. Arrays are
// bound as their minified JSON text, which is what json_extract returns
// for array fields.
func irValueToParam(v ir.IRValue) (any, error) {
	switch val := v.(type) {
	case ir.IRString:
		return string(val), nil
	case ir.IRInt:
		return int64(val), nil
	case ir.IRBool:
		return bool(val), nil
	case ir.IRArray:
		b, err := ir.MarshalIRValue(val)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	case ir.IRObject:
		return nil, fmt.Errorf("IRObject cannot be used as SQL parameter")
	case nil:
		return nil, fmt.Errorf("nil value")
	default:
		return nil, fmt.Errorf("unsupported IRValue type for SQL parameter: %T", v)
	}
}
