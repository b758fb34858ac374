package query

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rpggio/teamwork/internal/domain/shared"
)

var comparisonOps = map[string]Op{
	"gte": OpGte,
	"gt":  OpGt,
	"lte": OpLte,
	"lt":  OpLt,
	"ne":  OpNe,
}

// TranslateMap is Translate for single-valued parameters.
func TranslateMap(params map[string]string, schema Schema) (Descriptor, error) {
	multi := make(map[string][]string, len(params))
	for k, v := range params {
		multi[k] = []string{v}
	}
	return Translate(multi, schema)
}

// Translate builds a Descriptor from raw client parameters.
func Translate(params map[string][]string, schema Schema) (Descriptor, error) {
	desc := Default()

	// Deterministic clause order keeps descriptors comparable.
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		values := params[key]
		if len(values) == 0 {
			continue
		}
		switch key {
		case ParamSort:
			sortKeys, err := parseSort(values[0], schema)
			if err != nil {
				return Descriptor{}, err
			}
			if len(sortKeys) > 0 {
				desc.Sort = sortKeys
			}
			continue
		case ParamFields:
			fields, err := parseFields(values[0], schema)
			if err != nil {
				return Descriptor{}, err
			}
			desc.Projection = fields
			continue
		case ParamPage:
			desc.Page = positiveOr(values[0], DefaultPage)
			continue
		case ParamLimit:
			desc.Limit = positiveOr(values[0], DefaultLimit)
			continue
		case ParamFilter:
			for _, v := range values {
				clauses, err := ParseExpression(v, schema)
				if err != nil {
					return Descriptor{}, err
				}
				desc.Filter = append(desc.Filter, clauses...)
			}
			continue
		}
		if schema.ignores(key) {
			continue
		}

		field, op, literal, err := parseKey(key, schema)
		if err != nil {
			return Descriptor{}, err
		}
		for _, raw := range values {
			clause := Clause{Field: field, Op: op, Value: raw}
			if !literal {
				value, err := coerce(raw, schema.Fields[field])
				if err != nil {
					return Descriptor{}, shared.Detail(ErrMalformedQuery, "field %q: %v", field, err)
				}
				clause.Value = value
			}
			desc.Filter = append(desc.Filter, clause)
		}
	}

	if desc.Page-1 > math.MaxInt/desc.Limit {
		return Descriptor{}, shared.Detail(ErrMalformedQuery, "page %d is out of range for limit %d", desc.Page, desc.Limit)
	}
	desc.Skip = (desc.Page - 1) * desc.Limit
	return desc, nil
}

// parseKey splits a parameter key into field and operator. literal reports
// that the operator token was not recognized and the value must be compared
// as a plain string.
func parseKey(key string, schema Schema) (field string, op Op, literal bool, err error) {
	segments, err := splitKey(key)
	if err != nil {
		return "", "", false, err
	}
	if segments[0] == ParamFilter && len(segments) > 1 {
		segments = segments[1:]
	}

	field = segments[0]
	if !schema.Has(field) {
		return "", "", false, shared.Detail(ErrMalformedQuery, "unknown field %q", field)
	}

	switch len(segments) {
	case 1:
		return field, OpEq, false, nil
	case 2:
		if op, ok := comparisonOps[segments[1]]; ok {
			return field, op, false, nil
		}
		return field, OpEq, true, nil
	default:
		return "", "", false, shared.Detail(ErrMalformedQuery, "too many segments in %q", key)
	}
}

// splitKey understands both bracket (a[b][c]) and dotted (a.b.c) notation.
func splitKey(key string) ([]string, error) {
	var segments []string
	rest := key

	end := strings.IndexAny(rest, "[.")
	if end == -1 {
		end = len(rest)
	}
	if end == 0 {
		return nil, shared.Detail(ErrMalformedQuery, "empty field in %q", key)
	}
	segments = append(segments, rest[:end])
	rest = rest[end:]

	for rest != "" {
		switch rest[0] {
		case '[':
			closing := strings.IndexByte(rest, ']')
			if closing == -1 {
				return nil, shared.Detail(ErrMalformedQuery, "unbalanced bracket in %q", key)
			}
			seg := rest[1:closing]
			if seg == "" || strings.ContainsAny(seg, "[.") {
				return nil, shared.Detail(ErrMalformedQuery, "bad segment in %q", key)
			}
			segments = append(segments, seg)
			rest = rest[closing+1:]
		case '.':
			rest = rest[1:]
			next := strings.IndexAny(rest, "[.")
			if next == -1 {
				next = len(rest)
			}
			if next == 0 {
				return nil, shared.Detail(ErrMalformedQuery, "empty segment in %q", key)
			}
			segments = append(segments, rest[:next])
			rest = rest[next:]
		default:
			return nil, shared.Detail(ErrMalformedQuery, "unexpected %q in %q", rest[0], key)
		}
	}
	return segments, nil
}

func parseSort(raw string, schema Schema) ([]SortKey, error) {
	var keys []SortKey
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key := SortKey{Field: part}
		if strings.HasPrefix(part, "-") {
			key = SortKey{Field: part[1:], Desc: true}
		}
		if !schema.Has(key.Field) {
			return nil, shared.Detail(ErrMalformedQuery, "cannot sort by %q", key.Field)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func parseFields(raw string, schema Schema) ([]string, error) {
	var fields []string
	seen := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" || part == VersionField || seen[part] {
			continue
		}
		if !schema.CanSelect(part) {
			return nil, shared.Detail(ErrMalformedQuery, "cannot select %q", part)
		}
		seen[part] = true
		fields = append(fields, part)
	}
	return fields, nil
}

func positiveOr(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func coerce(raw string, typ Type) (any, error) {
	switch typ {
	case Int:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", raw)
		}
		return n, nil
	case Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("not a boolean: %q", raw)
		}
		return b, nil
	case Time:
		return ParseTime(raw)
	default:
		return raw, nil
	}
}

// ParseTime accepts RFC 3339 timestamps and plain dates.
func ParseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("not a date or timestamp: %q", raw)
}
