package seeders

import (
	"context"
	"errors"
	"fmt"

	"github.com/aarondl/null/v8"
	"go.uber.org/zap"

	"hr-backoffice/internal/dto"
	"hr-backoffice/internal/services"
	apperrors "hr-backoffice/pkg/errors"
)

// SeedDepartment describes one node of the default structure.
type SeedDepartment struct {
	Name      string
	Code      string
	SortOrder int
	Children  []SeedDepartment
}

// DefaultStructure is the organisation created on an empty database.
var DefaultStructure = []SeedDepartment{
	{Name: "Engineering", Code: "ENG", SortOrder: 1, Children: []SeedDepartment{
		{Name: "Backend", Code: "ENG-BE", SortOrder: 1, Children: []SeedDepartment{
			{Name: "API Team", Code: "ENG-BE-API", SortOrder: 1},
		}},
		{Name: "Frontend", Code: "ENG-FE", SortOrder: 2},
		{Name: "Research and Development", Code: "ENG-RND", SortOrder: 3},
	}},
	{Name: "Human Resources", Code: "HR", SortOrder: 2},
	{Name: "Finance", Code: "FIN", SortOrder: 3, Children: []SeedDepartment{
		{Name: "Accounting", Code: "FIN-ACC", SortOrder: 1},
	}},
}

// SeedDepartments creates the structure through the service and skips codes that already exist.
// It returns how many departments were created.
func SeedDepartments(ctx context.Context, svc services.DepartmentServiceInterface, structure []SeedDepartment, logger *zap.Logger) (int, error) {
	logger.Info("seeding departments")
	created, err := seedLevel(ctx, svc, structure, nil, logger)
	if err != nil {
		return created, err
	}
	logger.Info("departments seeded", zap.Int("created", created))
	return created, nil
}

func seedLevel(ctx context.Context, svc services.DepartmentServiceInterface, nodes []SeedDepartment, parentID *uint64, logger *zap.Logger) (int, error) {
	created := 0
	for _, node := range nodes {
		department, err := svc.FindDepartmentByCode(ctx, node.Code)
		switch {
		case err == nil:
			logger.Debug("department exists, skipping", zap.String("code", node.Code))
		case errors.Is(err, apperrors.ErrNotFound):
			department, err = svc.CreateDepartment(ctx, dto.CreateDepartmentDTO{
				Name:      node.Name,
				Code:      node.Code,
				ParentID:  null.Uint64FromPtr(parentID),
				SortOrder: node.SortOrder,
			})
			if err != nil {
				return created, fmt.Errorf("create department %s: %w", node.Code, err)
			}
			created++
			logger.Info("  - department created", zap.String("code", node.Code), zap.String("dep_path", department.DepPath))
		default:
			return created, fmt.Errorf("lookup department %s: %w", node.Code, err)
		}

		id := department.ID
		n, err := seedLevel(ctx, svc, node.Children, &id, logger)
		created += n
		if err != nil {
			return created, err
		}
	}
	return created, nil
}
