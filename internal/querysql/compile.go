package querysql

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/electrolyte/internal/queryir"
)

// SQLCompiler compiles a QueryIR plan to one parameterized SQL statement.
//
// Every node becomes a common table expression, named by its position in a
// depth-first walk. A Project root becomes the final SELECT; any other root
// is selected in full. All literal values are parameters, all identifiers
// are double-quoted, and the result is ordered by the key column.
type SQLCompiler struct {
	Dialect Dialect
}

// NewSQLCompiler creates a compiler for the given dialect.
func NewSQLCompiler(d Dialect) *SQLCompiler {
	return &SQLCompiler{Dialect: d}
}

// render accumulates parameters and CTE names for one Compile call.
type render struct {
	dialect Dialect
	params  []any
	names   map[queryir.Query]string
}

func (r *render) bind(v any) string {
	r.params = append(r.params, v)
	return r.dialect.Placeholder(len(r.params))
}

// bindFloat binds a range bound. Postgres needs the type spelled out so
// integer columns compare against fractional bounds.
func (r *render) bindFloat(f float64) string {
	ph := r.bind(f)
	if r.dialect == Postgres {
		return "CAST(" + ph + " AS " + r.dialect.FloatType() + ")"
	}
	return ph
}

// Compile converts a plan to (sql, params).
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}
	if err := queryir.Validate(q).Err(); err != nil {
		return "", nil, err
	}

	r := &render{dialect: c.Dialect, names: make(map[queryir.Query]string)}

	var ctes []string
	var walkErr error
	queryir.Walk(q, func(node queryir.Query) {
		if walkErr != nil {
			return
		}
		if _, ok := node.(*queryir.Project); ok {
			if node != q {
				walkErr = fmt.Errorf("project must be the root of a plan")
			}
			return
		}
		name := r.cteName(node, len(r.names)+1)
		body, err := r.compileNode(node)
		if err != nil {
			walkErr = err
			return
		}
		r.names[node] = name
		ctes = append(ctes, quote(name)+" AS ("+body+")")
	})
	if walkErr != nil {
		return "", nil, walkErr
	}

	var final string
	switch root := q.(type) {
	case *queryir.Project:
		final = r.compileProject(root)
	default:
		final = fmt.Sprintf("SELECT * FROM %s ORDER BY %s", quote(r.names[q]), quote(keyOf(q)))
	}

	sql := "WITH " + strings.Join(ctes, ",\n") + "\n" + final
	return sql, r.params, nil
}

var lower = cases.Lower(language.Und)

// cteName derives a readable, unique CTE name: s1_solvents, i3, u4.
func (r *render) cteName(q queryir.Query, n int) string {
	switch node := q.(type) {
	case *queryir.Select:
		return fmt.Sprintf("s%d_%s", n, slug(node.From))
	case *queryir.Intersect:
		return fmt.Sprintf("i%d", n)
	case *queryir.Union:
		return fmt.Sprintf("u%d", n)
	default:
		return fmt.Sprintf("q%d", n)
	}
}

func slug(s string) string {
	var b strings.Builder
	for _, r := range lower.String(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func (r *render) compileNode(q queryir.Query) (string, error) {
	switch node := q.(type) {
	case *queryir.Select:
		return r.compileSelect(node)
	case *queryir.Intersect:
		return r.compileIntersect(node), nil
	case *queryir.Union:
		return r.compileUnion(node), nil
	default:
		return "", fmt.Errorf("unsupported query type: %T", q)
	}
}

// compileSelect renders SELECT key, col AS alias ... FROM table WHERE ...
func (r *render) compileSelect(sel *queryir.Select) (string, error) {
	cols := []string{quote(sel.Key)}
	for _, b := range sel.Values {
		if b.Column == b.As {
			cols = append(cols, quote(b.Column))
		} else {
			cols = append(cols, quote(b.Column)+" AS "+quote(b.As))
		}
	}

	sql := "SELECT " + strings.Join(cols, ", ") + " FROM " + quote(sel.From)
	if sel.Filter != nil {
		where, err := r.compilePredicate(sel.Filter)
		if err != nil {
			return "", fmt.Errorf("compile filter: %w", err)
		}
		sql += " WHERE " + where
	}
	return sql, nil
}

// compileIntersect renders an inner join of every input on the key.
func (r *render) compileIntersect(in *queryir.Intersect) string {
	key := keyOf(in)
	first := quote(r.names[in.Inputs[0]])

	cols := []string{first + "." + quote(key)}
	for _, input := range in.Inputs {
		name := quote(r.names[input])
		for _, c := range queryir.ValueColumns(input) {
			cols = append(cols, name+"."+quote(c))
		}
	}

	var b strings.Builder
	b.WriteString("SELECT " + strings.Join(cols, ", ") + " FROM " + first)
	for _, input := range in.Inputs[1:] {
		name := quote(r.names[input])
		fmt.Fprintf(&b, " JOIN %s ON %s.%s = %s.%s", name, name, quote(key), first, quote(key))
	}
	return b.String()
}

// compileUnion renders a UNION ALL of the inputs, padded to a common column
// list with typed NULLs, grouped back to one row per key.
func (r *render) compileUnion(u *queryir.Union) string {
	key := keyOf(u)
	all := queryir.ValueColumns(u)
	null := "CAST(NULL AS " + r.dialect.FloatType() + ")"

	branches := make([]string, 0, len(u.Inputs))
	for i, input := range u.Inputs {
		has := make(map[string]bool)
		for _, c := range queryir.ValueColumns(input) {
			has[c] = true
		}
		cols := []string{quote(key)}
		for _, c := range all {
			switch {
			case has[c]:
				cols = append(cols, quote(c))
			case i == 0:
				cols = append(cols, null+" AS "+quote(c))
			default:
				cols = append(cols, null)
			}
		}
		branches = append(branches, "SELECT "+strings.Join(cols, ", ")+" FROM "+quote(r.names[input]))
	}

	cols := []string{quote(key)}
	for _, c := range all {
		cols = append(cols, "MAX(COALESCE("+quote(c)+", 0)) AS "+quote(c))
	}
	return "SELECT " + strings.Join(cols, ", ") +
		" FROM (" + strings.Join(branches, " UNION ALL ") + ") AS " + quote("branches") +
		" GROUP BY " + quote(key)
}

// compileProject renders the final display SELECT.
func (r *render) compileProject(p *queryir.Project) string {
	m := quote("m")
	h := quote("h")
	key := quote(p.Key)

	cols := []string{m + "." + key}
	for _, c := range p.Columns {
		cols = append(cols, h+"."+quote(c))
	}
	for _, c := range p.Values {
		cols = append(cols, "COALESCE("+m+"."+quote(c)+", 0) AS "+quote(c))
	}

	return fmt.Sprintf("SELECT %s FROM %s AS %s LEFT JOIN %s AS %s ON %s.%s = %s.%s ORDER BY %s.%s",
		strings.Join(cols, ", "),
		quote(r.names[p.Matched]), m,
		quote(p.Header), h,
		h, key, m, key,
		m, key)
}

// compilePredicate renders a WHERE fragment. Values are never interpolated.
func (r *render) compilePredicate(p queryir.Predicate) (string, error) {
	switch pred := p.(type) {
	case *queryir.Equals:
		return quote(pred.Field) + " = " + r.bind(pred.Value), nil
	case *queryir.Range:
		field := quote(pred.Field)
		switch {
		case pred.Min != nil && pred.Max != nil:
			lo := r.bindFloat(*pred.Min)
			hi := r.bindFloat(*pred.Max)
			return field + " BETWEEN " + lo + " AND " + hi, nil
		case pred.Min != nil:
			return field + " >= " + r.bindFloat(*pred.Min), nil
		case pred.Max != nil:
			return field + " <= " + r.bindFloat(*pred.Max), nil
		default:
			return "", fmt.Errorf("range on %q has no bounds", pred.Field)
		}
	case *queryir.And:
		return r.compileList(pred.Predicates, " AND ")
	case *queryir.Or:
		return r.compileList(pred.Predicates, " OR ")
	default:
		return "", fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (r *render) compileList(preds []queryir.Predicate, sep string) (string, error) {
	parts := make([]string, 0, len(preds))
	for _, p := range preds {
		sql, err := r.compilePredicate(p)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

// keyOf finds the key column of a validated plan.
func keyOf(q queryir.Query) string {
	switch n := q.(type) {
	case *queryir.Select:
		return n.Key
	case *queryir.Intersect:
		return keyOf(n.Inputs[0])
	case *queryir.Union:
		return keyOf(n.Inputs[0])
	case *queryir.Project:
		return n.Key
	default:
		return ""
	}
}

// quote double-quotes an identifier.
func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// QuoteIdent double-quotes an identifier for use in hand-written statements.
func QuoteIdent(ident string) string {
	return quote(ident)
}
