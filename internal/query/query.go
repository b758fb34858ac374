// Package query turns client listing parameters into a store-independent Descriptor.
//
// Field names never reach the store verbatim: every clause, sort key and
// projection entry is checked against the entity's Schema, and operators come
// from a fixed set.
package query

import (
	"slices"

	"github.com/rpggio/teamwork/internal/domain/shared"
)

// ErrMalformedQuery is returned for any parameter set that cannot be turned
// into a Descriptor.
var ErrMalformedQuery = shared.New("query", shared.ErrMalformedQuery, "malformed query")

// Type is the value type of a filterable field.
type Type int

const (
	String Type = iota
	Int
	Bool
	Time
)

// Op is a comparison operator.
type Op string

const (
	OpEq  Op = "eq"
	OpNe  Op = "ne"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
	// OpContains is a case-insensitive substring match. Only services build
	// it; client parameters never translate to it.
	OpContains Op = "contains"
)

// Sequence names the implicit insertion-order key used when no sort is given.
const Sequence = "_seq"

// VersionField is the internal concurrency field hidden from every projection.
const VersionField = "version"

// Reserved parameter keys that never become filter clauses.
const (
	ParamSort   = "sort"
	ParamLimit  = "limit"
	ParamFields = "fields"
	ParamPage   = "page"
	// ParamFilter carries an AIP-160 filter expression.
	ParamFilter = "filter"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Schema is the per-entity whitelist of filterable, sortable and selectable fields.
type Schema struct {
	Entity string
	Fields map[string]Type
	// Selectable lists extra fields that may appear in a projection but can't
	// be filtered or sorted on.
	Selectable []string
	// Ignore lists parameter keys consumed by the caller (scoping, search text).
	Ignore []string
}

// Has reports whether field is declared.
func (s Schema) Has(field string) bool {
	_, ok := s.Fields[field]
	return ok
}

// CanSelect reports whether field may appear in a projection.
func (s Schema) CanSelect(field string) bool {
	return s.Has(field) || slices.Contains(s.Selectable, field)
}

func (s Schema) ignores(key string) bool {
	return slices.Contains(s.Ignore, key)
}

// Clause is one comparison of a field against a value.
type Clause struct {
	Field string
	Op    Op
	Value any
}

// SortKey orders results by one field.
type SortKey struct {
	Field string
	Desc  bool
}

// Descriptor is the translated form of a listing request.
type Descriptor struct {
	Filter     []Clause
	Sort       []SortKey
	Projection []string
	Page       int
	Skip       int
	Limit      int
}

// Where returns a copy of d with extra clauses appended.
func (d Descriptor) Where(clauses ...Clause) Descriptor {
	out := d
	out.Filter = append(append([]Clause(nil), d.Filter...), clauses...)
	return out
}

// Default returns the descriptor used when no parameters are given.
func Default() Descriptor {
	return Descriptor{
		Sort:  []SortKey{{Field: Sequence, Desc: true}},
		Page:  DefaultPage,
		Skip:  0,
		Limit: DefaultLimit,
	}
}
