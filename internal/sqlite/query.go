package sqlite

import (
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/teamwork/internal/domain/shared"
	"github.com/rpggio/teamwork/internal/query"
)

// columns maps a schema field to the SQL expression that stores it.
type columns map[string]string

var sqlOps = map[query.Op]string{
	query.OpEq:  "=",
	query.OpNe:  "<>",
	query.OpGt:  ">",
	query.OpGte: ">=",
	query.OpLt:  "<",
	query.OpLte: "<=",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// whereClause renders the descriptor's filter. The base conditions come first
// and are ANDed with every clause.
func whereClause(desc query.Descriptor, cols columns, base []string, args []any) (string, []any, error) {
	conds := append([]string(nil), base...)
	for _, c := range desc.Filter {
		col, ok := cols[c.Field]
		if !ok {
			return "", nil, shared.Detail(query.ErrMalformedQuery, "field %q cannot be filtered", c.Field)
		}
		if c.Op == query.OpContains {
			s, ok := c.Value.(string)
			if !ok {
				return "", nil, shared.Detail(query.ErrMalformedQuery, "contains needs text, got %T", c.Value)
			}
			conds = append(conds, fmt.Sprintf(`LOWER(%s) LIKE ? ESCAPE '\'`, col))
			args = append(args, "%"+likeEscaper.Replace(strings.ToLower(s))+"%")
			continue
		}
		op, ok := sqlOps[c.Op]
		if !ok {
			return "", nil, shared.Detail(query.ErrMalformedQuery, "unknown operator %q", c.Op)
		}
		conds = append(conds, fmt.Sprintf("%s %s ?", col, op))
		args = append(args, sqlValue(c.Value))
	}
	if len(conds) == 0 {
		return "", args, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// orderClause renders the sort keys, always ending on the insertion sequence
// so that pages are stable.
func orderClause(desc query.Descriptor, cols columns) (string, error) {
	seq := cols[query.Sequence]
	keys := make([]string, 0, len(desc.Sort)+1)
	sawSeq := false
	for _, k := range desc.Sort {
		col, ok := cols[k.Field]
		if !ok {
			return "", shared.Detail(query.ErrMalformedQuery, "field %q cannot be sorted", k.Field)
		}
		if k.Field == query.Sequence {
			sawSeq = true
		}
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		keys = append(keys, col+" "+dir)
	}
	if !sawSeq && seq != "" {
		keys = append(keys, seq+" DESC")
	}
	if len(keys) == 0 {
		return "", nil
	}
	return " ORDER BY " + strings.Join(keys, ", "), nil
}

// pageClause renders LIMIT/OFFSET. A non-positive limit means no limit.
func pageClause(desc query.Descriptor, args []any) (string, []any) {
	if desc.Limit <= 0 {
		if desc.Skip > 0 {
			return " LIMIT -1 OFFSET ?", append(args, desc.Skip)
		}
		return "", args
	}
	return " LIMIT ? OFFSET ?", append(args, desc.Limit, desc.Skip)
}

// listSQL assembles the filter, order and page clauses for a SELECT prefix.
func listSQL(prefix string, desc query.Descriptor, cols columns, base []string, args []any) (string, []any, error) {
	where, args, err := whereClause(desc, cols, base, args)
	if err != nil {
		return "", nil, err
	}
	order, err := orderClause(desc, cols)
	if err != nil {
		return "", nil, err
	}
	page, args := pageClause(desc, args)
	return prefix + where + order + page, args, nil
}

func sqlValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		return formatTime(x)
	case bool:
		return boolInt(x)
	default:
		return v
	}
}
