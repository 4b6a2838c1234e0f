package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type Entity interface {
	PrimaryID() string
}

// Scope narrows a query; nil scopes are skipped.
type Scope func(*gorm.DB) *gorm.DB

type Pagination struct {
	Total      *int64 `json:"total,omitempty"`
	Page       int    `json:"page,omitempty"`
	Limit      int    `json:"limit"`
	TotalPages *int   `json:"totalPages,omitempty"`
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    *bool  `json:"hasMore,omitempty"`
}

type Page[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

func TotalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

func (p Params) selectExpr() string {
	spec := p.spec
	var cols []string
	if len(p.Fields) == 0 {
		cols = append(cols, spec.Table+".*")
	} else {
		seen := map[string]bool{}
		for _, c := range spec.AlwaysColumns {
			if !seen[c] {
				seen[c] = true
				cols = append(cols, c)
			}
		}
		for _, f := range p.Fields {
			c := spec.Fields[f]
			if !seen[c] {
				seen[c] = true
				cols = append(cols, c)
			}
		}
	}
	cols = append(cols, spec.Counts...)
	return strings.Join(cols, ", ")
}

// Run lists T. In offset mode the page and the total count run in parallel;
// in cursor mode rows after the cursor id are returned in id order and no
// count is taken.
func Run[T Entity](ctx context.Context, db *gorm.DB, p Params, filter Scope, include Scope) (*Page[T], error) {
	spec := p.spec
	base := func(ctx context.Context) *gorm.DB {
		tx := db.WithContext(ctx).Model(new(T))
		if filter != nil {
			tx = filter(tx)
		}
		if clause, args := SearchClause(p.Search, spec.SearchFields, spec.NamePair); clause != "" {
			tx = tx.Where(clause, args...)
		}
		return tx
	}
	pageQuery := func(ctx context.Context) *gorm.DB {
		tx := base(ctx).Select(p.selectExpr())
		if include != nil {
			tx = include(tx)
		}
		return tx.Limit(p.Limit)
	}

	items := make([]T, 0, p.Limit)

	if p.CursorMode {
		tx := pageQuery(ctx).Order(spec.Table + ".id ASC")
		if p.Cursor != "" {
			tx = tx.Where(spec.Table+".id > ?", p.Cursor)
		}
		if err := tx.Find(&items).Error; err != nil {
			return nil, err
		}
		hasMore := len(items) == p.Limit
		page := &Page[T]{Items: items, Pagination: Pagination{Limit: p.Limit, HasMore: &hasMore}}
		if hasMore {
			page.Pagination.NextCursor = items[len(items)-1].PrimaryID()
		}
		return page, nil
	}

	var total int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return base(gctx).Count(&total).Error
	})
	g.Go(func() error {
		return pageQuery(gctx).
			Order(fmt.Sprintf("%s %s", p.SortColumn, strings.ToUpper(p.SortOrder))).
			Order(spec.Table + ".id ASC").
			Offset(p.Offset()).
			Find(&items).Error
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	totalPages := TotalPages(total, p.Limit)
	return &Page[T]{
		Items: items,
		Pagination: Pagination{
			Total:      &total,
			Page:       p.Page,
			Limit:      p.Limit,
			TotalPages: &totalPages,
		},
	}, nil
}

// Project trims each item to the requested fields plus the keys the spec
// always keeps. Without a field list the page is returned unchanged.
func Project[T any](page *Page[T], p Params) (any, error) {
	if len(p.Fields) == 0 {
		return page, nil
	}
	keep := map[string]bool{}
	for _, k := range p.spec.AlwaysKeys {
		keep[k] = true
	}
	for _, f := range p.Fields {
		keep[f] = true
	}

	out := Page[map[string]json.RawMessage]{
		Items:      make([]map[string]json.RawMessage, 0, len(page.Items)),
		Pagination: page.Pagination,
	}
	for _, item := range page.Items {
		raw, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		var all map[string]json.RawMessage
		if err := json.Unmarshal(raw, &all); err != nil {
			return nil, err
		}
		trimmed := make(map[string]json.RawMessage, len(keep))
		for k, v := range all {
			if keep[k] {
				trimmed[k] = v
			}
		}
		out.Items = append(out.Items, trimmed)
	}
	return &out, nil
}
