package sqlite

import (
	"fmt"
	"strings"

	"github.com/rpggio/pagesmith/internal/repository"
)

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isCheckViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "CHECK constraint failed")
}

// mapWriteError translates constraint failures into repository sentinels.
func mapWriteError(op string, err error) error {
	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, repository.ErrDuplicate)
	case isForeignKeyViolation(err):
		return fmt.Errorf("%s: %w", op, repository.ErrForeignKeyViolation)
	case isCheckViolation(err):
		return fmt.Errorf("%s: %w", op, repository.ErrInvalidInput)
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}

func orderClause(field repository.OrderField, desc bool, allowed ...repository.OrderField) string {
	col := string(repository.OrderCreatedAt)
	for _, f := range allowed {
		if f == field {
			col = string(field)
		}
	}
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id %s", col, dir, dir)
}
