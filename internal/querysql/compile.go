package querysql

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/graphgate/internal/ir"
	"github.com/roach88/graphgate/internal/path"
	"github.com/roach88/graphgate/internal/queryir"
)

// SQLCompiler compiles query graphs to parameterized SQL for SQLite.
//
// CRITICAL: ALL queries include ORDER BY with the root id as final key for
// deterministic results.
// CRITICAL: All values are parameterized (never interpolated).
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a query graph to parameterized SQL.
// Returns (sql, params, error) tuple.
func (c *SQLCompiler) Compile(g *queryir.Graph) (string, []any, error) {
	if g == nil {
		return "", nil, fmt.Errorf("cannot compile nil graph")
	}
	if res := queryir.Validate(g); !res.IsPortable {
		return "", nil, ir.NewUnsupportedOperation(g.Root().Shape.Name(), "",
			"graph has no relational form: %s", strings.Join(res.Warnings, "; "))
	}

	q := &query{g: g, exprs: make(map[queryir.Var]string), owner: make(map[queryir.Var]int)}
	root := g.Root()
	table, err := TableName(root.Shape.TargetClass())
	if err != nil {
		return "", nil, err
	}
	q.from = fmt.Sprintf("%s AS %s", table, alias(root.ID))
	q.bind(root.Subject, alias(root.ID)+".id", fromTable, true)

	if err := q.vertex(root, fromTable, false); err != nil {
		return "", nil, err
	}
	if err := q.where(); err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(q.columns, ", "))
	b.WriteString(" FROM ")
	b.WriteString(q.from)
	params := slices.Clone(q.columnParams)
	for _, j := range q.joins {
		b.WriteString(" ")
		b.WriteString(j.text)
		params = append(params, j.params...)
	}
	if len(q.conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(q.conds, " AND "))
	}
	order, orderParams := c.stableOrderKey(q, root)
	b.WriteString(" ORDER BY ")
	b.WriteString(order)

	params = append(params, q.params...)
	return b.String(), append(params, orderParams...), nil
}

// stableOrderKey returns the ORDER BY clause: the requested sort keys, then
// the root id. COLLATE BINARY keeps text ordering deterministic across
// SQLite versions.
func (c *SQLCompiler) stableOrderKey(q *query, root queryir.Vertice) (string, []any) {
	keys := make([]string, 0, len(root.Orderings)+1)
	var params []any
	for _, o := range root.Orderings {
		dir := "ASC"
		if o.Descending {
			dir = "DESC"
		}
		keys = append(keys, q.exprs[o.Variable]+" "+dir)
		params = append(params, q.masks[o.Variable]...)
	}
	keys = append(keys, alias(root.ID)+".id COLLATE BINARY ASC")
	return strings.Join(keys, ", "), params
}

// fromTable is the owner of variables bound to the root table.
const fromTable = -1

// clause is one JOIN with the parameters of its ON condition.
type clause struct {
	text   string
	params []any
}

// query accumulates the clauses of one statement.
type query struct {
	g       *queryir.Graph
	from    string
	columns []string
	joins   []clause
	conds   []string
	params  []any

	// columnParams bind the placeholders of masked columns.
	columnParams []any

	// exprs maps every graph variable to the SQL expression holding it.
	exprs map[queryir.Var]string

	// owner maps every graph variable to the index of the join that
	// brings its table into scope, or fromTable.
	owner map[queryir.Var]int

	// optional records variables that may be NULL because of a LEFT JOIN
	// or an optional column.
	optional map[queryir.Var]bool

	// masks holds the parameters of variables whose expression was
	// replaced by a CASE over their hasValue list.
	masks map[queryir.Var][]any

	// column maps visible variables to their index in columns.
	column map[queryir.Var]int
}

func alias(id queryir.VertexID) string { return fmt.Sprintf("t%d", id) }

func (q *query) bind(v queryir.Var, expr string, owner int, visible bool) {
	q.exprs[v] = expr
	q.owner[v] = owner
	if visible {
		if q.column == nil {
			q.column = make(map[queryir.Var]int)
		}
		q.column[v] = len(q.columns)
		q.columns = append(q.columns, expr+" AS "+string(v))
	}
}

// mask replaces the expression of v by masked, whose placeholders bind
// params, wherever v is rendered.
func (q *query) mask(v queryir.Var, masked string, params []any) {
	if q.masks == nil {
		q.masks = make(map[queryir.Var][]any)
	}
	q.exprs[v] = masked
	q.masks[v] = params
	if i, ok := q.column[v]; ok {
		q.columns[i] = masked + " AS " + string(v)
		q.columnParams = append(q.columnParams, params...)
	}
}

func (q *query) markOptional(v queryir.Var) {
	if q.optional == nil {
		q.optional = make(map[queryir.Var]bool)
	}
	q.optional[v] = true
}

// vertex adds the columns and joins of v's edges, depth first. join is
// the index of the join that introduced v. Below a LEFT JOIN every
// variable may be NULL.
func (q *query) vertex(v queryir.Vertice, join int, nullable bool) error {
	parent := alias(v.ID)
	for _, e := range q.g.Edges(v.ID) {
		seg := path.Flatten(e.Path)[0]
		col, err := ColumnName(seg.IRI)
		if err != nil {
			return err
		}

		if e.Aggregate != nil {
			sub, err := countSubquery(e, seg, col, parent)
			if err != nil {
				return err
			}
			q.bind(e.Aggregate.Variable, sub, join, true)
			continue
		}

		if e.IsLeaf() && !seg.Inverse {
			q.bind(e.Variable, parent+"."+col, join, e.Visible)
			if e.Optional || nullable {
				q.markOptional(e.Variable)
			}
			continue
		}

		class := e.Property.Class()
		child := fmt.Sprintf("e%d", e.ID)
		if !e.IsLeaf() {
			obj := q.g.Vertex(e.Object)
			class = obj.Shape.TargetClass()
			child = alias(obj.ID)
		}
		table, err := TableName(class)
		if err != nil {
			return err
		}

		on := fmt.Sprintf("%s.id = %s.%s", child, parent, col)
		if seg.Inverse {
			on = fmt.Sprintf("%s.%s = %s.id", child, col, parent)
		}
		kind := "INNER JOIN"
		if e.Optional || nullable {
			kind = "LEFT JOIN"
			q.markOptional(e.Variable)
		}
		idx := len(q.joins)
		q.joins = append(q.joins, clause{text: fmt.Sprintf("%s %s AS %s ON %s", kind, table, child, on)})
		q.bind(e.Variable, child+".id", idx, e.Visible)

		if !e.IsLeaf() {
			if err := q.vertex(q.g.Vertex(e.Object), idx, nullable || e.Optional); err != nil {
				return err
			}
		}
	}
	return nil
}

func countSubquery(e queryir.Edge, seg path.Segment, col, parent string) (string, error) {
	table, err := TableName(e.Property.Class())
	if err != nil {
		return "", err
	}
	sub := fmt.Sprintf("a%d", e.ID)
	cond := fmt.Sprintf("%s.id = %s.%s", sub, parent, col)
	if seg.Inverse {
		cond = fmt.Sprintf("%s.%s = %s.id", sub, col, parent)
	}
	return fmt.Sprintf("(SELECT COUNT(*) FROM %s AS %s WHERE %s)", table, sub, cond), nil
}

// where renders the filters and hasValue constraints of every vertice.
// A constraint on a joined table narrows that join's ON condition and a
// constraint on an optional root column masks the column, so in both
// cases the parent row survives a mismatch.
func (q *query) where() error {
	var err error
	q.g.Walk(func(v queryir.Vertice, _ int) {
		if err != nil {
			return
		}
		for _, c := range v.Constraints {
			if c.Predicate != "" {
				continue // rdf:type is implied by the table
			}
			if err = q.membership(c); err != nil {
				return
			}
		}
		if len(v.Filters) == 0 {
			return
		}

		exprs := make([]queryir.Expression, len(v.Filters))
		for i, f := range v.Filters {
			exprs[i] = f.Expr
		}
		var joined queryir.Expression
		if joined, err = queryir.Join(v.Join, exprs); err != nil {
			return
		}
		var cond string
		if cond, err = q.expression(joined); err != nil {
			return
		}
		q.conds = append(q.conds, cond)
	})
	return err
}

func (q *query) membership(c queryir.Constraint) error {
	expr, ok := q.exprs[c.Variable]
	if !ok {
		return fmt.Errorf("constraint on unbound variable ?%s", c.Variable)
	}
	marks := make([]string, len(c.Values))
	params := make([]any, len(c.Values))
	for i, value := range c.Values {
		param, err := operandToParam(value)
		if err != nil {
			return err
		}
		marks[i] = "?"
		params[i] = param
	}
	cond := fmt.Sprintf("%s IN (%s)", expr, strings.Join(marks, ", "))

	if owner := q.owner[c.Variable]; owner != fromTable {
		j := &q.joins[owner]
		j.text += " AND " + cond
		j.params = append(j.params, params...)
		return nil
	}
	if q.optional[c.Variable] {
		q.mask(c.Variable, fmt.Sprintf("CASE WHEN %s THEN %s END", cond, expr), params)
		return nil
	}
	q.conds = append(q.conds, cond)
	q.params = append(q.params, params...)
	return nil
}

// expression renders a filter expression.
// CRITICAL: Values are NEVER interpolated - always use ? placeholders.
func (q *query) expression(e queryir.Expression) (string, error) {
	switch expr := e.(type) {
	case queryir.Comparison:
		return q.comparison(expr)
	case *queryir.Comparison:
		return q.comparison(*expr)
	case queryir.Junction:
		return q.junction(expr)
	case *queryir.Junction:
		return q.junction(*expr)
	default:
		return "", fmt.Errorf("unsupported expression type: %T", e)
	}
}

func (q *query) comparison(c queryir.Comparison) (string, error) {
	expr, ok := q.exprs[c.Variable]
	if !ok {
		return "", fmt.Errorf("filter on unbound variable ?%s", c.Variable)
	}
	param, err := operandToParam(c.Operand)
	if err != nil {
		return "", err
	}
	q.params = append(q.params, q.masks[c.Variable]...)
	q.params = append(q.params, param)
	return fmt.Sprintf("%s %s ?", expr, c.Operator.Symbol()), nil
}

func (q *query) junction(j queryir.Junction) (string, error) {
	left, err := q.expression(j.Left)
	if err != nil {
		return "", err
	}
	right, err := q.expression(j.Right)
	if err != nil {
		return "", err
	}
	op := "AND"
	if j.Type == queryir.JoinOr {
		op = "OR"
	}
	return fmt.Sprintf("(%s %s %s)", left, op, right), nil
}

// operandToParam converts an operand to a Go native type for SQL parameter.
// Numeric and boolean literals are converted by datatype; everything else
// binds its lexical form.
func operandToParam(o queryir.Operand) (any, error) {
	switch op := o.(type) {
	case queryir.Reference:
		return op.IRI, nil
	case queryir.Literal:
		return literalToParam(op)
	case *queryir.Reference:
		return op.IRI, nil
	case *queryir.Literal:
		return literalToParam(*op)
	default:
		return nil, fmt.Errorf("unsupported operand type: %T", o)
	}
}

func literalToParam(l queryir.Literal) (any, error) {
	switch ColumnType(l.Datatype) {
	case "INTEGER":
		if l.Datatype == queryir.XSD+"boolean" {
			return l.Lexical == "true", nil
		}
		n, err := strconv.ParseInt(l.Lexical, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("convert %q: %w", l.Lexical, err)
		}
		return n, nil
	case "REAL":
		f, err := strconv.ParseFloat(l.Lexical, 64)
		if err != nil {
			return nil, fmt.Errorf("convert %q: %w", l.Lexical, err)
		}
		return f, nil
	default:
		return l.Lexical, nil
	}
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// LocalName returns the part of an IRI after the last '#' or '/'.
func LocalName(iri string) string {
	if i := strings.LastIndexAny(iri, "#/:"); i >= 0 {
		return iri[i+1:]
	}
	return iri
}

func identifier(iri, what string) (string, error) {
	name := LocalName(iri)
	if !identifierPattern.MatchString(name) {
		return "", ir.NewUnsupportedOperation("", "", "cannot map %q to an SQL %s name", iri, what)
	}
	return `"` + name + `"`, nil
}

// TableName returns the quoted table name for a class IRI.
func TableName(class string) (string, error) {
	if class == "" {
		return "", ir.NewUnsupportedOperation("", "", "no class to select from")
	}
	return identifier(class, "table")
}

// ColumnName returns the quoted column name for a predicate IRI.
func ColumnName(predicate string) (string, error) {
	return identifier(predicate, "column")
}
