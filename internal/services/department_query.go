package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"hr-backoffice/internal/dto"
	"hr-backoffice/internal/entities"
	"hr-backoffice/pkg/deppath"
	apperrors "hr-backoffice/pkg/errors"
)

func (s *DepartmentService) FindDepartment(ctx context.Context, id uint64) (*dto.DepartmentDTO, error) {
	department, err := s.findDepartment(ctx, nil, id, false)
	if err != nil {
		return nil, err
	}
	result := departmentEntityToDTO(department)
	return &result, nil
}

func (s *DepartmentService) FindDepartmentByCode(ctx context.Context, code string) (*dto.DepartmentDTO, error) {
	department, err := s.repo.FindByCode(ctx, nil, strings.TrimSpace(code))
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.NewNotFoundError("department", code)
	}
	if err != nil {
		s.logger.Error("find department by code failed", zap.String("code", code), zap.Error(err))
		return nil, err
	}
	result := departmentEntityToDTO(department)
	return &result, nil
}

func (s *DepartmentService) GetTree(ctx context.Context) ([]*dto.DepartmentTreeDTO, error) {
	if forest, ok := s.treeCache.Get(ctx); ok {
		return forest, nil
	}

	all, err := s.repo.FindAll(ctx, nil)
	if err != nil {
		s.logger.Error("load department tree failed", zap.Error(err))
		return nil, err
	}
	forest := assembleForest(all)
	s.treeCache.Set(ctx, forest)
	return forest, nil
}

func (s *DepartmentService) GetSubtree(ctx context.Context, id uint64) (*dto.DepartmentTreeDTO, error) {
	node, err := s.findDepartment(ctx, nil, id, false)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.FindSubtree(ctx, nil, node.DepPath, false)
	if err != nil {
		s.logger.Error("load department subtree failed", zap.Uint64("id", id), zap.Error(err))
		return nil, err
	}

	for _, root := range assembleForest(rows) {
		if root.ID == id {
			return root, nil
		}
	}
	// The node was deleted between the two reads.
	return nil, apperrors.NewNotFoundError("department", id)
}

// GetAncestors returns the chain from the root down to the direct parent.
func (s *DepartmentService) GetAncestors(ctx context.Context, id uint64) ([]dto.DepartmentDTO, error) {
	node, err := s.findDepartment(ctx, nil, id, false)
	if err != nil {
		return nil, err
	}
	ancestorIDs, err := deppath.DecodeAncestorIDs(node.DepPath, false)
	if err != nil {
		return nil, apperrors.NewHierarchyError(apperrors.ReasonCorrupted,
			"department %d has malformed path %q", id, node.DepPath)
	}

	ancestors, err := s.repo.FindByIDs(ctx, nil, ancestorIDs)
	if err != nil {
		s.logger.Error("load department ancestors failed", zap.Uint64("id", id), zap.Error(err))
		return nil, err
	}
	return departmentsToDTOs(ancestors), nil
}

func (s *DepartmentService) GetDescendants(ctx context.Context, id uint64) ([]dto.DepartmentDTO, error) {
	node, err := s.findDepartment(ctx, nil, id, false)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.FindSubtree(ctx, nil, node.DepPath, false)
	if err != nil {
		s.logger.Error("load department descendants failed", zap.Uint64("id", id), zap.Error(err))
		return nil, err
	}

	descendants := make([]*entities.Department, 0, len(rows))
	for _, d := range rows {
		if d.ID != id {
			descendants = append(descendants, d)
		}
	}
	return departmentsToDTOs(descendants), nil
}

func (s *DepartmentService) GetByLevel(ctx context.Context, level int) ([]dto.DepartmentDTO, error) {
	if level < 0 {
		return nil, apperrors.NewInvalidInputError("level must not be negative, got %d", level)
	}
	rows, err := s.repo.FindByLevel(ctx, nil, level)
	if err != nil {
		s.logger.Error("load departments by level failed", zap.Int("level", level), zap.Error(err))
		return nil, err
	}
	return departmentsToDTOs(rows), nil
}

// Search matches name case-insensitively as a substring. A blank term matches nothing.
func (s *DepartmentService) Search(ctx context.Context, term string) ([]dto.DepartmentDTO, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []dto.DepartmentDTO{}, nil
	}
	rows, err := s.repo.SearchByName(ctx, nil, term)
	if err != nil {
		s.logger.Error("search departments failed", zap.String("term", term), zap.Error(err))
		return nil, err
	}
	return departmentsToDTOs(rows), nil
}

// GetChildren lists direct children of parentID; nil lists the roots.
func (s *DepartmentService) GetChildren(ctx context.Context, parentID *uint64) ([]dto.DepartmentDTO, error) {
	rows, err := s.repo.FindChildren(ctx, nil, parentID)
	if err != nil {
		s.logger.Error("load department children failed", zap.Error(err))
		return nil, err
	}
	return departmentsToDTOs(rows), nil
}
