package domain

import (
	"fmt"
	"strings"
)

// SortField names a user attribute that pages can be ordered by.
type SortField string

const (
	SortByID        SortField = "id"
	SortByUsername  SortField = "username"
	SortByLastName  SortField = "lastName"
	SortByAge       SortField = "age"
	SortByCreatedAt SortField = "createdAt"
)

// Sort orders a page. The zero value sorts by id ascending.
type Sort struct {
	Field SortField
	Desc  bool
}

// PageRequest selects one page of users.
type PageRequest struct {
	Page int
	Size int
	Sort Sort
}

// Offset returns the number of records preceding the page.
func (r PageRequest) Offset() int {
	return r.Page * r.Size
}

// Page is one slice of an ordered collection plus the metadata needed to paginate it.
type Page[T any] struct {
	Items      []T
	Page       int
	Size       int
	TotalItems int64
	TotalPages int
}

// NewPage assembles a Page, computing the total page count.
func NewPage[T any](items []T, req PageRequest, total int64) Page[T] {
	pages := 0
	if req.Size > 0 {
		pages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:      items,
		Page:       req.Page,
		Size:       req.Size,
		TotalItems: total,
		TotalPages: pages,
	}
}

// MapPage projects every item of a page, keeping its metadata.
func MapPage[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, len(p.Items))
	for i := range p.Items {
		out[i] = fn(p.Items[i])
	}
	return Page[U]{
		Items:      out,
		Page:       p.Page,
		Size:       p.Size,
		TotalItems: p.TotalItems,
		TotalPages: p.TotalPages,
	}
}

// ParseSort parses "field" or "field,dir" where dir is asc or desc.
func ParseSort(raw string) (Sort, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Sort{Field: SortByID}, nil
	}

	field, dir, _ := strings.Cut(raw, ",")
	var sort Sort
	switch SortField(strings.TrimSpace(field)) {
	case SortByID, SortByUsername, SortByLastName, SortByAge, SortByCreatedAt:
		sort.Field = SortField(strings.TrimSpace(field))
	default:
		return Sort{}, fmt.Errorf("unsupported sort field %q", field)
	}

	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "", "asc":
	case "desc":
		sort.Desc = true
	default:
		return Sort{}, fmt.Errorf("unsupported sort direction %q", dir)
	}
	return sort, nil
}
