package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"hr-backoffice/internal/entities"
	"hr-backoffice/pkg/deppath"
	apperrors "hr-backoffice/pkg/errors"
)

const (
	departmentTable  = "departments"
	departmentFields = "id, name, code, parent_id, dep_path, level, sort_order, enabled, manager_id, created_by, updated_by, created_at, updated_at"

	departmentNameConstraint   = "departments_name_key"
	departmentCodeConstraint   = "departments_code_key"
	departmentParentConstraint = "departments_parent_id_fkey"

	// pendingPath marks a row inserted by Create whose path is not assigned yet.
	pendingPath = ""
)

var siblingOrder = []string{"sort_order", "id"}

// PathUpdate is one row rewritten by a move or a rebuild.
type PathUpdate struct {
	ID      uint64
	DepPath string
	Level   int
}

type DepartmentRepositoryInterface interface {
	FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Department, error)
	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Department, error)
	FindByCode(ctx context.Context, tx pgx.Tx, code string) (*entities.Department, error)
	FindByIDs(ctx context.Context, tx pgx.Tx, ids []uint64) ([]*entities.Department, error)
	FindAll(ctx context.Context, tx pgx.Tx) ([]*entities.Department, error)
	FindSubtree(ctx context.Context, tx pgx.Tx, path string, forUpdate bool) ([]*entities.Department, error)
	FindChildren(ctx context.Context, tx pgx.Tx, parentID *uint64) ([]*entities.Department, error)
	FindByLevel(ctx context.Context, tx pgx.Tx, level int) ([]*entities.Department, error)
	SearchByName(ctx context.Context, tx pgx.Tx, term string) ([]*entities.Department, error)

	CountChildren(ctx context.Context, tx pgx.Tx, id uint64) (int, error)
	ExistsByName(ctx context.Context, tx pgx.Tx, name string, excludeID uint64) (bool, error)
	ExistsByCode(ctx context.Context, tx pgx.Tx, code string, excludeID uint64) (bool, error)

	Create(ctx context.Context, tx pgx.Tx, d entities.Department) (uint64, error)
	Update(ctx context.Context, tx pgx.Tx, d entities.Department) error
	UpdatePath(ctx context.Context, tx pgx.Tx, id uint64, path string, level int) error
	UpdateParent(ctx context.Context, tx pgx.Tx, id uint64, parentID *uint64, updatedBy *uint64) error
	UpdatePaths(ctx context.Context, tx pgx.Tx, updates []PathUpdate) error
	Delete(ctx context.Context, tx pgx.Tx, id uint64) error

	// LockHierarchy takes the transaction-scoped advisory lock guarding structural mutations.
	LockHierarchy(ctx context.Context, tx pgx.Tx, exclusive bool) error
}

type DepartmentRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
	lockKey int64
}

func NewDepartmentRepository(storage *pgxpool.Pool, logger *zap.Logger, lockKey int64) DepartmentRepositoryInterface {
	return &DepartmentRepository{storage: storage, logger: logger, lockKey: lockKey}
}

func (r *DepartmentRepository) getQuerier(tx pgx.Tx) Querier {
	if tx != nil {
		return tx
	}
	return r.storage
}

func psql() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

func scanDepartment(row pgx.Row) (*entities.Department, error) {
	var d entities.Department
	err := row.Scan(
		&d.ID, &d.Name, &d.Code, &d.ParentID, &d.DepPath, &d.Level, &d.SortOrder, &d.Enabled,
		&d.ManagerID, &d.CreatedBy, &d.UpdatedBy, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan department: %w", err)
	}
	return &d, nil
}

func (r *DepartmentRepository) findOne(ctx context.Context, q Querier, where sq.Sqlizer, forUpdate bool) (*entities.Department, error) {
	builder := psql().Select(departmentFields).From(departmentTable).Where(where)
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build department query: %w", err)
	}
	return scanDepartment(q.QueryRow(ctx, query, args...))
}

func (r *DepartmentRepository) findMany(ctx context.Context, q Querier, builder sq.SelectBuilder) ([]*entities.Department, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build department list query: %w", err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query departments: %w", err)
	}
	defer rows.Close()

	departments := make([]*entities.Department, 0)
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		departments = append(departments, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate departments: %w", err)
	}
	return departments, nil
}

func (r *DepartmentRepository) selectDepartments() sq.SelectBuilder {
	return psql().Select(departmentFields).From(departmentTable)
}

func (r *DepartmentRepository) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Department, error) {
	return r.findOne(ctx, r.getQuerier(tx), sq.Eq{"id": id}, false)
}

func (r *DepartmentRepository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Department, error) {
	return r.findOne(ctx, r.getQuerier(tx), sq.Eq{"id": id}, true)
}

func (r *DepartmentRepository) FindByCode(ctx context.Context, tx pgx.Tx, code string) (*entities.Department, error) {
	return r.findOne(ctx, r.getQuerier(tx), sq.Eq{"code": code}, false)
}

// FindByIDs returns the matching departments ordered from the shallowest level down.
func (r *DepartmentRepository) FindByIDs(ctx context.Context, tx pgx.Tx, ids []uint64) ([]*entities.Department, error) {
	if len(ids) == 0 {
		return []*entities.Department{}, nil
	}
	builder := r.selectDepartments().Where(sq.Eq{"id": ids}).OrderBy("level", "id")
	return r.findMany(ctx, r.getQuerier(tx), builder)
}

func (r *DepartmentRepository) FindAll(ctx context.Context, tx pgx.Tx) ([]*entities.Department, error) {
	return r.findMany(ctx, r.getQuerier(tx), r.selectDepartments().OrderBy(siblingOrder...))
}

// FindSubtree returns the department at path and every department beneath it,
// ordered by level then sibling order.
func (r *DepartmentRepository) FindSubtree(ctx context.Context, tx pgx.Tx, path string, forUpdate bool) ([]*entities.Department, error) {
	builder := r.selectDepartments().
		Where(sq.Or{
			sq.Eq{"dep_path": path},
			sq.Like{"dep_path": deppath.DescendantPattern(escapeLike(path))},
		}).
		OrderBy("level", "sort_order", "id")
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}
	return r.findMany(ctx, r.getQuerier(tx), builder)
}

// FindChildren returns the direct children of parentID, or the roots when parentID is nil.
func (r *DepartmentRepository) FindChildren(ctx context.Context, tx pgx.Tx, parentID *uint64) ([]*entities.Department, error) {
	var where sq.Sqlizer = sq.Eq{"parent_id": nil}
	if parentID != nil {
		where = sq.Eq{"parent_id": *parentID}
	}
	builder := r.selectDepartments().Where(where).OrderBy(siblingOrder...)
	return r.findMany(ctx, r.getQuerier(tx), builder)
}

func (r *DepartmentRepository) FindByLevel(ctx context.Context, tx pgx.Tx, level int) ([]*entities.Department, error) {
	builder := r.selectDepartments().Where(sq.Eq{"level": level}).OrderBy(siblingOrder...)
	return r.findMany(ctx, r.getQuerier(tx), builder)
}

func (r *DepartmentRepository) SearchByName(ctx context.Context, tx pgx.Tx, term string) ([]*entities.Department, error) {
	builder := r.selectDepartments().
		Where(sq.ILike{"name": "%" + escapeLike(term) + "%"}).
		OrderBy("level", "sort_order", "id")
	return r.findMany(ctx, r.getQuerier(tx), builder)
}

func (r *DepartmentRepository) CountChildren(ctx context.Context, tx pgx.Tx, id uint64) (int, error) {
	query, args, err := psql().Select("COUNT(*)").From(departmentTable).Where(sq.Eq{"parent_id": id}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count children query: %w", err)
	}
	var count int
	if err := r.getQuerier(tx).QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count children of department %d: %w", id, err)
	}
	return count, nil
}

func (r *DepartmentRepository) ExistsByName(ctx context.Context, tx pgx.Tx, name string, excludeID uint64) (bool, error) {
	return r.exists(ctx, r.getQuerier(tx), sq.Eq{"name": name}, excludeID)
}

func (r *DepartmentRepository) ExistsByCode(ctx context.Context, tx pgx.Tx, code string, excludeID uint64) (bool, error) {
	return r.exists(ctx, r.getQuerier(tx), sq.Eq{"code": code}, excludeID)
}

func (r *DepartmentRepository) exists(ctx context.Context, q Querier, where sq.Eq, excludeID uint64) (bool, error) {
	inner := psql().Select("1").From(departmentTable).Where(where)
	if excludeID != 0 {
		inner = inner.Where(sq.NotEq{"id": excludeID})
	}
	query, args, err := inner.Prefix("SELECT EXISTS (").Suffix(")").ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists query: %w", err)
	}
	var found bool
	if err := q.QueryRow(ctx, query, args...).Scan(&found); err != nil {
		return false, fmt.Errorf("check department uniqueness: %w", err)
	}
	return found, nil
}

// Create inserts the row with a pending path; the caller assigns the real path in the same transaction.
func (r *DepartmentRepository) Create(ctx context.Context, tx pgx.Tx, d entities.Department) (uint64, error) {
	query, args, err := psql().Insert(departmentTable).
		Columns("name", "code", "parent_id", "dep_path", "level", "sort_order", "enabled", "manager_id", "created_by", "updated_by").
		Values(d.Name, d.Code, d.ParentID, pendingPath, 0, d.SortOrder, d.Enabled, d.ManagerID, d.CreatedBy, d.UpdatedBy).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert department query: %w", err)
	}

	var id uint64
	if err := r.getQuerier(tx).QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, mapDatabaseError(err, &d)
	}
	return id, nil
}

// Update writes the non-structural attributes only.
func (r *DepartmentRepository) Update(ctx context.Context, tx pgx.Tx, d entities.Department) error {
	query, args, err := psql().Update(departmentTable).
		Set("name", d.Name).
		Set("code", d.Code).
		Set("sort_order", d.SortOrder).
		Set("enabled", d.Enabled).
		Set("manager_id", d.ManagerID).
		Set("updated_by", d.UpdatedBy).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": d.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update department query: %w", err)
	}
	return r.execOne(ctx, r.getQuerier(tx), d.ID, query, args, &d)
}

func (r *DepartmentRepository) UpdatePath(ctx context.Context, tx pgx.Tx, id uint64, path string, level int) error {
	query, args, err := psql().Update(departmentTable).
		Set("dep_path", path).
		Set("level", level).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update path query: %w", err)
	}
	return r.execOne(ctx, r.getQuerier(tx), id, query, args, nil)
}

func (r *DepartmentRepository) UpdateParent(ctx context.Context, tx pgx.Tx, id uint64, parentID *uint64, updatedBy *uint64) error {
	query, args, err := psql().Update(departmentTable).
		Set("parent_id", parentID).
		Set("updated_by", updatedBy).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update parent query: %w", err)
	}
	return r.execOne(ctx, r.getQuerier(tx), id, query, args, nil)
}

// UpdatePaths rewrites path and level for many rows in one round trip.
func (r *DepartmentRepository) UpdatePaths(ctx context.Context, tx pgx.Tx, updates []PathUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, u := range updates {
		query, args, err := psql().Update(departmentTable).
			Set("dep_path", u.DepPath).
			Set("level", u.Level).
			Where(sq.Eq{"id": u.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build batch path update: %w", err)
		}
		batch.Queue(query, args...)
	}

	results := r.getQuerier(tx).SendBatch(ctx, batch)
	for _, u := range updates {
		tag, err := results.Exec()
		if err != nil {
			_ = results.Close()
			return fmt.Errorf("update path of department %d: %w", u.ID, err)
		}
		if tag.RowsAffected() == 0 {
			_ = results.Close()
			return apperrors.NewNotFoundError("department", u.ID)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close path update batch: %w", err)
	}
	return nil
}

func (r *DepartmentRepository) Delete(ctx context.Context, tx pgx.Tx, id uint64) error {
	query, args, err := psql().Delete(departmentTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete department query: %w", err)
	}
	return r.execOne(ctx, r.getQuerier(tx), id, query, args, nil)
}

func (r *DepartmentRepository) LockHierarchy(ctx context.Context, tx pgx.Tx, exclusive bool) error {
	if tx == nil {
		return errors.New("hierarchy lock requires a transaction")
	}
	query := "SELECT pg_advisory_xact_lock_shared($1)"
	if exclusive {
		query = "SELECT pg_advisory_xact_lock($1)"
	}
	if _, err := tx.Exec(ctx, query, r.lockKey); err != nil {
		return fmt.Errorf("acquire hierarchy lock: %w", err)
	}
	return nil
}

func (r *DepartmentRepository) execOne(ctx context.Context, q Querier, id uint64, query string, args []interface{}, d *entities.Department) error {
	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return mapDatabaseError(err, d)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("department", id)
	}
	return nil
}

// mapDatabaseError turns constraint violations into domain errors; anything else passes through wrapped.
func mapDatabaseError(err error, d *entities.Department) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("department query: %w", err)
	}

	switch pgErr.Code {
	case "23505":
		switch pgErr.ConstraintName {
		case departmentNameConstraint:
			return apperrors.NewAlreadyExistsError("name", valueOf(d, func(d *entities.Department) string { return d.Name }))
		case departmentCodeConstraint:
			return apperrors.NewAlreadyExistsError("code", valueOf(d, func(d *entities.Department) string { return d.Code }))
		}
	case "23503":
		if pgErr.ConstraintName == departmentParentConstraint {
			if d == nil {
				return apperrors.NewHierarchyError(apperrors.ReasonHasChildren, "department still has child departments")
			}
			return apperrors.NewHierarchyError(apperrors.ReasonParentInvalid, "parent department does not exist")
		}
		return &apperrors.DomainError{
			Kind:    apperrors.ErrInUse,
			Message: "department is still referenced by " + strings.TrimSuffix(pgErr.ConstraintName, "_department_id_fkey"),
			Details: map[string]interface{}{"constraint": pgErr.ConstraintName},
		}
	}
	return fmt.Errorf("department query: %w", err)
}

func valueOf(d *entities.Department, field func(*entities.Department) string) string {
	if d == nil {
		return ""
	}
	return field(d)
}

// escapeLike escapes LIKE wildcards so the value matches literally.
func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}
