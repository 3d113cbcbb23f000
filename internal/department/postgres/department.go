package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/frahmantamala/hrm-access/internal/core/common/sqlbuilder"
	"github.com/frahmantamala/hrm-access/internal/department"
	"github.com/jmoiron/sqlx"
)

type DepartmentRepository struct {
	db *sqlx.DB
}

func NewDepartmentRepository(db *sqlx.DB) department.RepositoryAPI {
	return &DepartmentRepository{db: db}
}

func (r *DepartmentRepository) List(ctx context.Context) ([]string, error) {
	query, args, err := sqlbuilder.For(r.db).
		Select("DISTINCT department").
		From("employees").
		Where(sq.NotEq{"department": nil}).
		Where(sq.NotEq{"department": ""}).
		OrderBy("department").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build department query: %w", err)
	}

	departments := []string{}
	if err := r.db.SelectContext(ctx, &departments, query, args...); err != nil {
		return nil, err
	}
	return departments, nil
}
