package repository

import (
	"fmt"

	"user-service/internal/domain"
)

var sortColumns = map[domain.SortField]string{
	"":                     "id",
	domain.SortByID:        "id",
	domain.SortByUsername:  "username",
	domain.SortByLastName:  "last_name",
	domain.SortByAge:       "age",
	domain.SortByCreatedAt: "created_at_ns",
}

// OrderClause renders the ORDER BY clause for a SQL page query. Ties break on id.
func OrderClause(sort domain.Sort) (string, error) {
	column, ok := sortColumns[sort.Field]
	if !ok {
		return "", fmt.Errorf("unsupported sort field %q", sort.Field)
	}
	dir := "ASC"
	if sort.Desc {
		dir = "DESC"
	}
	if column == "id" {
		return "ORDER BY id " + dir, nil
	}
	return fmt.Sprintf("ORDER BY %s %s, id ASC", column, dir), nil
}
