package repositories

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DepartmentDependentsCounter reports how many rows of an external table reference a department.
type DepartmentDependentsCounter interface {
	CountByDepartment(ctx context.Context, tx pgx.Tx, departmentID uint64) (int, error)
}

type departmentReferenceCounter struct {
	storage *pgxpool.Pool
	table   string
}

// NewEmployeeDirectory counts users attached to a department.
func NewEmployeeDirectory(storage *pgxpool.Pool) DepartmentDependentsCounter {
	return &departmentReferenceCounter{storage: storage, table: "users"}
}

// NewPositionDirectory counts positions attached to a department.
func NewPositionDirectory(storage *pgxpool.Pool) DepartmentDependentsCounter {
	return &departmentReferenceCounter{storage: storage, table: "positions"}
}

func (r *departmentReferenceCounter) getQuerier(tx pgx.Tx) Querier {
	if tx != nil {
		return tx
	}
	return r.storage
}

func (r *departmentReferenceCounter) CountByDepartment(ctx context.Context, tx pgx.Tx, departmentID uint64) (int, error) {
	query, args, err := psql().Select("COUNT(*)").From(r.table).Where(sq.Eq{"department_id": departmentID}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build %s count query: %w", r.table, err)
	}
	var count int
	if err := r.getQuerier(tx).QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s of department %d: %w", r.table, departmentID, err)
	}
	return count, nil
}
