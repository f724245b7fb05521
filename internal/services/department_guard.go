package services

import (
	"context"

	"github.com/jackc/pgx/v5"

	"hr-backoffice/internal/entities"
	"hr-backoffice/internal/repositories"
	"hr-backoffice/pkg/deppath"
	apperrors "hr-backoffice/pkg/errors"
)

// DepartmentGuard holds the checks every mutation runs before it writes.
type DepartmentGuard struct {
	repo      repositories.DepartmentRepositoryInterface
	employees repositories.DepartmentDependentsCounter
	positions repositories.DepartmentDependentsCounter
}

func NewDepartmentGuard(
	repo repositories.DepartmentRepositoryInterface,
	employees repositories.DepartmentDependentsCounter,
	positions repositories.DepartmentDependentsCounter,
) *DepartmentGuard {
	return &DepartmentGuard{repo: repo, employees: employees, positions: positions}
}

func (g *DepartmentGuard) CheckUniqueName(ctx context.Context, tx pgx.Tx, name string, excludeID uint64) error {
	exists, err := g.repo.ExistsByName(ctx, tx, name, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return apperrors.NewAlreadyExistsError("name", name)
	}
	return nil
}

func (g *DepartmentGuard) CheckUniqueCode(ctx context.Context, tx pgx.Tx, code string, excludeID uint64) error {
	exists, err := g.repo.ExistsByCode(ctx, tx, code, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return apperrors.NewAlreadyExistsError("code", code)
	}
	return nil
}

// CheckNoCycle rejects placing nodeID under targetParent when nodeID is the target or one of its ancestors.
func (g *DepartmentGuard) CheckNoCycle(nodeID uint64, targetParent *entities.Department) error {
	if targetParent == nil {
		return nil
	}
	if targetParent.ID == nodeID {
		return apperrors.NewHierarchyError(apperrors.ReasonCircular,
			"department %d cannot be its own parent", nodeID)
	}

	chain, err := deppath.DecodeAncestorIDs(targetParent.DepPath, true)
	if err != nil {
		return apperrors.NewHierarchyError(apperrors.ReasonCorrupted,
			"department %d has malformed path %q", targetParent.ID, targetParent.DepPath)
	}
	for _, ancestorID := range chain {
		if ancestorID == nodeID {
			return apperrors.NewHierarchyError(apperrors.ReasonCircular,
				"department %d cannot be moved under its descendant %d", nodeID, targetParent.ID)
		}
	}
	return nil
}

// CheckCanDelete requires a leaf with no employees or positions attached.
func (g *DepartmentGuard) CheckCanDelete(ctx context.Context, tx pgx.Tx, nodeID uint64) error {
	children, err := g.repo.CountChildren(ctx, tx, nodeID)
	if err != nil {
		return err
	}
	if children > 0 {
		return apperrors.NewHierarchyError(apperrors.ReasonHasChildren,
			"department %d has %d child department(s)", nodeID, children)
	}

	employees, err := g.employees.CountByDepartment(ctx, tx, nodeID)
	if err != nil {
		return err
	}
	positions, err := g.positions.CountByDepartment(ctx, tx, nodeID)
	if err != nil {
		return err
	}
	if employees > 0 || positions > 0 {
		return apperrors.NewInUseError(employees, positions)
	}
	return nil
}
