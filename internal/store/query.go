package store

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/franz/crate/internal/util"
)

// Connector joins the terms of a Where
type Connector string

const (
	And Connector = "AND"
	Or  Connector = "OR"
)

// Predicate compares one column against one or more candidate values
type Predicate struct {
	Column string
	Values []any
}

// Where is a flat predicate set. Every value of every predicate becomes one
// "col = ?" term (or "col != ?" when Equals is false), joined by Connector.
type Where struct {
	Predicates []Predicate
	Connector  Connector
	Equals     bool
}

// Eq builds an equality Where over a single predicate set
func Eq(connector Connector, predicates ...Predicate) *Where {
	return &Where{Predicates: predicates, Connector: connector, Equals: true}
}

// Ne builds an inequality Where over a single predicate set
func Ne(connector Connector, predicates ...Predicate) *Where {
	return &Where{Predicates: predicates, Connector: connector, Equals: false}
}

// On is one "left = right" join condition
type On struct {
	Left  string
	Right string
}

// Join is an inner join with ANDed conditions
type Join struct {
	Table string
	On    []On
}

// Query describes a deduplicating select over one table
type Query struct {
	Table              string
	Fields             []string
	Where              *Where
	Joins              []Join
	OrderBy            []string
	GroupBy            []string
	TypeColumn         string // rows of TypeImplicit are excluded when set
	LastModifiedColumn string // freshest row wins per group
	ExcludeLoved       bool   // also exclude TypeExplicit rows
}

var (
	identRe   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)
	fieldRe   = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)?)(?:\s+AS\s+([A-Za-z_][A-Za-z0-9_]*))?$`)
	orderByRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)?)(?:\s+(?i:(ASC|DESC)))?$`)
)

// Compile renders the query as SQL with positional arguments.
//
// The inner select applies joins and filters and ranks rows within each
// group by LastModifiedColumn DESC, then by the table's _id ASC. The outer
// select keeps rank 1 and applies OrderBy, whose entries must name output
// columns.
func (q *Query) Compile() (string, []any, error) {
	if !identRe.MatchString(q.Table) || strings.Contains(q.Table, ".") {
		return "", nil, fmt.Errorf("%w: bad table %q", util.ErrInvalidQuery, q.Table)
	}
	if len(q.Fields) == 0 {
		return "", nil, fmt.Errorf("%w: no fields", util.ErrInvalidQuery)
	}

	outputs := make([]string, 0, len(q.Fields))
	known := make(map[string]bool, len(q.Fields))
	for _, f := range q.Fields {
		m := fieldRe.FindStringSubmatch(strings.TrimSpace(f))
		if m == nil {
			return "", nil, fmt.Errorf("%w: bad field %q", util.ErrInvalidQuery, f)
		}
		name := outputName(m[1], m[2])
		outputs = append(outputs, name)
		known[name] = true
	}

	for _, col := range q.GroupBy {
		if !identRe.MatchString(col) {
			return "", nil, fmt.Errorf("%w: bad group-by column %q", util.ErrInvalidQuery, col)
		}
	}
	for _, col := range []string{q.TypeColumn, q.LastModifiedColumn} {
		if col != "" && !identRe.MatchString(col) {
			return "", nil, fmt.Errorf("%w: bad column %q", util.ErrInvalidQuery, col)
		}
	}

	orderBy := make([]string, 0, len(q.OrderBy))
	for _, o := range q.OrderBy {
		m := orderByRe.FindStringSubmatch(strings.TrimSpace(o))
		if m == nil {
			return "", nil, fmt.Errorf("%w: bad order-by %q", util.ErrInvalidQuery, o)
		}
		term := m[1]
		if !known[term] {
			return "", nil, fmt.Errorf("%w: unknown sort column %q", util.ErrInvalidQuery, term)
		}
		if m[2] != "" {
			term += " " + strings.ToUpper(m[2])
		}
		orderBy = append(orderBy, term)
	}

	var inner strings.Builder
	inner.WriteString("SELECT ")
	inner.WriteString(strings.Join(q.Fields, ", "))
	if len(q.GroupBy) > 0 {
		inner.WriteString(", ROW_NUMBER() OVER (PARTITION BY ")
		inner.WriteString(strings.Join(q.GroupBy, ", "))
		inner.WriteString(" ORDER BY ")
		if q.LastModifiedColumn != "" {
			inner.WriteString(q.LastModifiedColumn + " DESC, ")
		}
		inner.WriteString(q.Table + "._id ASC) AS dedupe_rank")
	}
	inner.WriteString(" FROM " + q.Table)

	for _, j := range q.Joins {
		if !identRe.MatchString(j.Table) || len(j.On) == 0 {
			return "", nil, fmt.Errorf("%w: bad join %q", util.ErrInvalidQuery, j.Table)
		}
		conds := make([]string, 0, len(j.On))
		for _, on := range j.On {
			if !identRe.MatchString(on.Left) || !identRe.MatchString(on.Right) {
				return "", nil, fmt.Errorf("%w: bad join condition %s = %s", util.ErrInvalidQuery, on.Left, on.Right)
			}
			conds = append(conds, on.Left+" = "+on.Right)
		}
		inner.WriteString(" INNER JOIN " + j.Table + " ON " + strings.Join(conds, " AND "))
	}

	where, args, err := q.compileWhere()
	if err != nil {
		return "", nil, err
	}
	if where != "" {
		inner.WriteString(" WHERE " + where)
	}

	var outer strings.Builder
	outer.WriteString("SELECT ")
	outer.WriteString(strings.Join(outputs, ", "))
	outer.WriteString(" FROM (" + inner.String() + ")")
	if len(q.GroupBy) > 0 {
		outer.WriteString(" WHERE dedupe_rank = 1")
	}
	if len(orderBy) > 0 {
		outer.WriteString(" ORDER BY " + strings.Join(orderBy, ", "))
	}

	return outer.String(), args, nil
}

// compileWhere renders user predicates in parentheses, then the type filters
func (q *Query) compileWhere() (string, []any, error) {
	var (
		clauses []string
		args    []any
	)

	if q.Where != nil && len(q.Where.Predicates) > 0 {
		connector := q.Where.Connector
		if connector == "" {
			connector = And
		}
		if connector != And && connector != Or {
			return "", nil, fmt.Errorf("%w: bad connector %q", util.ErrInvalidQuery, connector)
		}
		op := "="
		if !q.Where.Equals {
			op = "!="
		}

		var terms []string
		for _, p := range q.Where.Predicates {
			if !identRe.MatchString(p.Column) {
				return "", nil, fmt.Errorf("%w: bad column %q", util.ErrInvalidQuery, p.Column)
			}
			if len(p.Values) == 0 {
				return "", nil, fmt.Errorf("%w: no values for column %q", util.ErrInvalidQuery, p.Column)
			}
			col := p.Column
			if !strings.Contains(col, ".") {
				col = q.Table + "." + col
			}
			for _, v := range p.Values {
				terms = append(terms, col+" "+op+" ?")
				args = append(args, v)
			}
		}
		if len(terms) > 0 {
			clauses = append(clauses, "("+strings.Join(terms, " "+string(connector)+" ")+")")
		}
	}

	if q.TypeColumn != "" {
		clauses = append(clauses, fmt.Sprintf("%s != %d", q.TypeColumn, TypeImplicit))
		if q.ExcludeLoved {
			clauses = append(clauses, fmt.Sprintf("%s != %d", q.TypeColumn, TypeExplicit))
		}
	}

	return strings.Join(clauses, " AND "), args, nil
}

func outputName(expr, alias string) string {
	if alias != "" {
		return alias
	}
	if i := strings.LastIndex(expr, "."); i >= 0 {
		return expr[i+1:]
	}
	return expr
}

// selectQuery compiles q and scans every row into dest. Callers hold mu.
func (s *Store) selectQuery(dest any, q *Query) error {
	query, args, err := q.Compile()
	if err != nil {
		return err
	}
	if err := s.db.Select(dest, query, args...); err != nil {
		return fmt.Errorf("failed to query %s: %w", q.Table, err)
	}
	return nil
}
