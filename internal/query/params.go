// Package query implements the shared list semantics of every collection
// endpoint: page/limit validation, allow-listed sorting, token search,
// offset or cursor pagination and field projection.
package query

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/saxenaaman628/election-observer/internal/apperr"
)

const MaxLimit = 1000

// NamePair marks the first/last name columns searched pairwise.
type NamePair struct {
	First string
	Last  string
}

// Spec describes how one entity can be listed.
type Spec struct {
	Table        string
	DefaultLimit int
	DefaultSort  string
	DefaultOrder string
	// Sortable maps the sortBy parameter to a column.
	Sortable     map[string]string
	SearchFields []string
	NamePair     *NamePair
	// Fields maps projectable JSON keys to columns.
	Fields map[string]string
	// AlwaysColumns and AlwaysKeys survive any projection.
	AlwaysColumns []string
	AlwaysKeys    []string
	// Counts are select expressions for child counts.
	Counts      []string
	AllowCursor bool
}

type Params struct {
	Page       int
	Limit      int
	SortBy     string
	SortColumn string
	SortOrder  string
	Search     string
	CursorMode bool
	Cursor     string
	Fields     []string

	spec *Spec
}

func (p Params) Spec() *Spec { return p.spec }

func (p Params) Offset() int { return (p.Page - 1) * p.Limit }

// Parse validates list parameters against spec.
func Parse(q url.Values, spec *Spec) (Params, error) {
	p := Params{
		Page:      1,
		Limit:     spec.DefaultLimit,
		SortBy:    spec.DefaultSort,
		SortOrder: spec.DefaultOrder,
		spec:      spec,
	}
	if p.Limit == 0 {
		p.Limit = 10
	}
	if p.SortOrder == "" {
		p.SortOrder = "desc"
	}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, apperr.BadRequest("Query validation error: \"page\" must be an integer greater than or equal to 1")
		}
		p.Page = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxLimit {
			return p, apperr.BadRequest("Query validation error: \"limit\" must be an integer between 1 and %d", MaxLimit)
		}
		p.Limit = n
	}
	if v := q.Get("sortBy"); v != "" {
		p.SortBy = v
	}
	col, ok := spec.Sortable[p.SortBy]
	if !ok {
		return p, apperr.BadRequest("Query validation error: \"sortBy\" must be one of [%s]", strings.Join(sortKeys(spec.Sortable), ", "))
	}
	p.SortColumn = col

	if v := q.Get("sortOrder"); v != "" {
		v = strings.ToLower(v)
		if v != "asc" && v != "desc" {
			return p, apperr.BadRequest("Query validation error: \"sortOrder\" must be one of [asc, desc]")
		}
		p.SortOrder = v
	}

	p.Search = strings.TrimSpace(q.Get("search"))

	if q.Has("cursor") {
		if !spec.AllowCursor {
			return p, apperr.BadRequest("Query validation error: cursor pagination is not supported here")
		}
		if q.Has("page") {
			return p, apperr.BadRequest("Query validation error: \"cursor\" and \"page\" cannot be combined")
		}
		p.CursorMode = true
		p.Cursor = strings.TrimSpace(q.Get("cursor"))
	}

	if raw := q.Get("fields"); raw != "" && len(spec.Fields) > 0 {
		seen := map[string]bool{}
		for _, f := range strings.Split(raw, ",") {
			f = strings.TrimSpace(f)
			if _, known := spec.Fields[f]; known && !seen[f] {
				seen[f] = true
				p.Fields = append(p.Fields, f)
			}
		}
	}
	return p, nil
}

func sortKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// OptionalBool reads "true"/"false"; anything else (including absence) is nil.
func OptionalBool(q url.Values, key string) *bool {
	switch strings.ToLower(q.Get(key)) {
	case "true":
		b := true
		return &b
	case "false":
		b := false
		return &b
	}
	return nil
}
