package repository

import (
	"errors"

	repo "backoffice/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// unique_violation
const pgUniqueViolation = "23505"

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// gormのエラーをrepositoryのエラーに寄せる
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case isNotFound(err):
		return repo.ErrNotFound
	case isDuplicate(err):
		return repo.ErrDuplicate
	default:
		return err
	}
}

func pageOffset(page, limit, defLimit, maxLimit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > maxLimit {
		limit = defLimit
	}
	return limit, (page - 1) * limit
}
