package postgres

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/adeilh/rakh-todos/auth"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeInvalidTextRep      = "22P02"
)

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func persistenceError(err error) error {
	return fmt.Errorf("%w: %w", auth.ErrPersistence, err)
}
