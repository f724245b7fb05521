package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"hr-backoffice/internal/dto"
	"hr-backoffice/internal/entities"
	"hr-backoffice/internal/events"
	"hr-backoffice/internal/repositories"
	"hr-backoffice/pkg/deppath"
	apperrors "hr-backoffice/pkg/errors"
	"hr-backoffice/pkg/eventbus"
	"hr-backoffice/pkg/metrics"
	"hr-backoffice/pkg/utils"
)

type DepartmentServiceInterface interface {
	CreateDepartment(ctx context.Context, payload dto.CreateDepartmentDTO) (*dto.DepartmentDTO, error)
	UpdateDepartment(ctx context.Context, id uint64, payload dto.UpdateDepartmentDTO) (*dto.DepartmentDTO, error)
	MoveDepartment(ctx context.Context, id uint64, newParentID *uint64) (*dto.DepartmentDTO, error)
	SetDepartmentEnabled(ctx context.Context, id uint64, enabled bool) (*dto.DepartmentDTO, error)
	UpdateSortOrder(ctx context.Context, id uint64, sortOrder int) (*dto.DepartmentDTO, error)
	DeleteDepartment(ctx context.Context, id uint64) error
	RebuildDepartmentPaths(ctx context.Context) (*dto.RebuildReportDTO, error)

	FindDepartment(ctx context.Context, id uint64) (*dto.DepartmentDTO, error)
	FindDepartmentByCode(ctx context.Context, code string) (*dto.DepartmentDTO, error)
	GetTree(ctx context.Context) ([]*dto.DepartmentTreeDTO, error)
	GetSubtree(ctx context.Context, id uint64) (*dto.DepartmentTreeDTO, error)
	GetAncestors(ctx context.Context, id uint64) ([]dto.DepartmentDTO, error)
	GetDescendants(ctx context.Context, id uint64) ([]dto.DepartmentDTO, error)
	GetByLevel(ctx context.Context, level int) ([]dto.DepartmentDTO, error)
	Search(ctx context.Context, term string) ([]dto.DepartmentDTO, error)
	GetChildren(ctx context.Context, parentID *uint64) ([]dto.DepartmentDTO, error)
}

// EventPublisher is satisfied by *eventbus.Bus.
type EventPublisher interface {
	Publish(ctx context.Context, event eventbus.Event)
}

type DepartmentService struct {
	txManager repositories.TxManagerInterface
	repo      repositories.DepartmentRepositoryInterface
	guard     *DepartmentGuard
	treeCache *TreeCache
	publisher EventPublisher
	logger    *zap.Logger
}

func NewDepartmentService(
	txManager repositories.TxManagerInterface,
	repo repositories.DepartmentRepositoryInterface,
	guard *DepartmentGuard,
	treeCache *TreeCache,
	publisher EventPublisher,
	logger *zap.Logger,
) DepartmentServiceInterface {
	return &DepartmentService{
		txManager: txManager,
		repo:      repo,
		guard:     guard,
		treeCache: treeCache,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *DepartmentService) CreateDepartment(ctx context.Context, payload dto.CreateDepartmentDTO) (_ *dto.DepartmentDTO, err error) {
	defer func(start time.Time) { metrics.ObserveMutation("create", start, err) }(time.Now())

	name, code, err := normalizeNameAndCode(payload.Name, payload.Code)
	if err != nil {
		return nil, err
	}
	actor := utils.GetUserIDFromCtx(ctx)

	var created *entities.Department
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		if err := s.repo.LockHierarchy(ctx, tx, false); err != nil {
			return err
		}
		if err := s.guard.CheckUniqueName(ctx, tx, name, 0); err != nil {
			return err
		}
		if err := s.guard.CheckUniqueCode(ctx, tx, code, 0); err != nil {
			return err
		}

		parentPath, level := "", 0
		var parentID *uint64
		if payload.ParentID.Valid {
			parent, err := s.findDepartment(ctx, tx, payload.ParentID.Uint64, false)
			if err != nil {
				return err
			}
			parentID = &parent.ID
			parentPath, level = parent.DepPath, parent.Level+1
		}

		enabled := true
		if payload.Enabled != nil {
			enabled = *payload.Enabled
		}
		department := entities.Department{
			Name:      name,
			Code:      code,
			ParentID:  parentID,
			SortOrder: payload.SortOrder,
			Enabled:   enabled,
			ManagerID: payload.ManagerID.Ptr(),
			CreatedBy: actor,
			UpdatedBy: actor,
		}

		id, err := s.repo.Create(ctx, tx, department)
		if err != nil {
			return err
		}
		if err := s.repo.UpdatePath(ctx, tx, id, deppath.Encode(parentPath, id), level); err != nil {
			return err
		}

		created, err = s.findDepartment(ctx, tx, id, false)
		return err
	})
	if err != nil {
		s.logFailure("create department failed", err, zap.String("code", code))
		return nil, err
	}

	result := departmentEntityToDTO(created)
	s.afterCommit(ctx, events.DepartmentCreatedEvent{Meta: events.NewMeta(actor), Department: result})
	s.logger.Info("department created",
		zap.Uint64("id", created.ID),
		zap.String("code", created.Code),
		zap.String("dep_path", created.DepPath),
	)
	return &result, nil
}

func (s *DepartmentService) UpdateDepartment(ctx context.Context, id uint64, payload dto.UpdateDepartmentDTO) (_ *dto.DepartmentDTO, err error) {
	defer func(start time.Time) { metrics.ObserveMutation("update", start, err) }(time.Now())

	actor := utils.GetUserIDFromCtx(ctx)
	var updated *entities.Department
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		current, err := s.findDepartment(ctx, tx, id, true)
		if err != nil {
			return err
		}

		if payload.Name != nil {
			name := strings.TrimSpace(*payload.Name)
			if name == "" {
				return apperrors.NewInvalidInputError("department name must not be blank")
			}
			if name != current.Name {
				if err := s.guard.CheckUniqueName(ctx, tx, name, id); err != nil {
					return err
				}
				current.Name = name
			}
		}
		if payload.Code != nil {
			code := strings.TrimSpace(*payload.Code)
			if code == "" {
				return apperrors.NewInvalidInputError("department code must not be blank")
			}
			if code != current.Code {
				if err := s.guard.CheckUniqueCode(ctx, tx, code, id); err != nil {
					return err
				}
				current.Code = code
			}
		}
		if payload.SortOrder != nil {
			current.SortOrder = *payload.SortOrder
		}
		if payload.Enabled != nil {
			current.Enabled = *payload.Enabled
		}
		if payload.ClearManager {
			current.ManagerID = nil
		} else if payload.ManagerID.Valid {
			current.ManagerID = payload.ManagerID.Ptr()
		}
		current.UpdatedBy = actor

		if err := s.repo.Update(ctx, tx, *current); err != nil {
			return err
		}
		updated, err = s.findDepartment(ctx, tx, id, false)
		return err
	})
	if err != nil {
		s.logFailure("update department failed", err, zap.Uint64("id", id))
		return nil, err
	}

	result := departmentEntityToDTO(updated)
	s.afterCommit(ctx, events.DepartmentUpdatedEvent{Meta: events.NewMeta(actor), Department: result})
	s.logger.Info("department updated", zap.Uint64("id", id))
	return &result, nil
}

// MoveDepartment re-parents id (nil means make it a root) and rewrites the path and level of
// the whole subtree in one transaction.
func (s *DepartmentService) MoveDepartment(ctx context.Context, id uint64, newParentID *uint64) (_ *dto.DepartmentDTO, err error) {
	defer func(start time.Time) { metrics.ObserveMutation("move", start, err) }(time.Now())

	actor := utils.GetUserIDFromCtx(ctx)
	var (
		moved     *entities.Department
		moveEvent *events.DepartmentMovedEvent
	)
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		if err := s.repo.LockHierarchy(ctx, tx, true); err != nil {
			return err
		}

		node, err := s.findDepartment(ctx, tx, id, true)
		if err != nil {
			return err
		}

		parentPath, newLevel := "", 0
		if newParentID != nil {
			if *newParentID == id {
				return apperrors.NewHierarchyError(apperrors.ReasonCircular,
					"department %d cannot be its own parent", id)
			}
			parent, err := s.findDepartment(ctx, tx, *newParentID, false)
			if err != nil {
				return err
			}
			if err := s.guard.CheckNoCycle(id, parent); err != nil {
				return err
			}
			parentPath, newLevel = parent.DepPath, parent.Level+1
		}

		if utils.EqualPtr(node.ParentID, newParentID) {
			moved = node
			return nil
		}

		oldPath := node.DepPath
		newPath := deppath.Encode(parentPath, id)
		levelDelta := newLevel - node.Level

		subtree, err := s.repo.FindSubtree(ctx, tx, oldPath, true)
		if err != nil {
			return err
		}
		updates := make([]repositories.PathUpdate, 0, len(subtree))
		for _, d := range subtree {
			rebased, ok := deppath.Rebase(d.DepPath, oldPath, newPath)
			if !ok || d.Level+levelDelta < 0 {
				return apperrors.NewHierarchyError(apperrors.ReasonCorrupted,
					"department %d has path %q outside of %q", d.ID, d.DepPath, oldPath)
			}
			updates = append(updates, repositories.PathUpdate{ID: d.ID, DepPath: rebased, Level: d.Level + levelDelta})
		}

		if err := s.repo.UpdateParent(ctx, tx, id, newParentID, actor); err != nil {
			return err
		}
		if err := s.repo.UpdatePaths(ctx, tx, updates); err != nil {
			return err
		}

		moved, err = s.findDepartment(ctx, tx, id, false)
		if err != nil {
			return err
		}
		moveEvent = &events.DepartmentMovedEvent{
			Meta:         events.NewMeta(actor),
			DepartmentID: id,
			OldParentID:  node.ParentID,
			NewParentID:  utils.CopyPtr(newParentID),
			OldPath:      oldPath,
			NewPath:      newPath,
			Affected:     len(updates),
		}
		return nil
	})
	if err != nil {
		s.logFailure("move department failed", err, zap.Uint64("id", id))
		return nil, err
	}

	result := departmentEntityToDTO(moved)
	if moveEvent == nil {
		return &result, nil
	}
	s.afterCommit(ctx, *moveEvent)
	s.logger.Info("department moved",
		zap.Uint64("id", id),
		zap.String("old_path", moveEvent.OldPath),
		zap.String("new_path", moveEvent.NewPath),
		zap.Int("affected", moveEvent.Affected),
	)
	return &result, nil
}

func (s *DepartmentService) SetDepartmentEnabled(ctx context.Context, id uint64, enabled bool) (*dto.DepartmentDTO, error) {
	return s.UpdateDepartment(ctx, id, dto.UpdateDepartmentDTO{Enabled: &enabled})
}

func (s *DepartmentService) UpdateSortOrder(ctx context.Context, id uint64, sortOrder int) (*dto.DepartmentDTO, error) {
	return s.UpdateDepartment(ctx, id, dto.UpdateDepartmentDTO{SortOrder: &sortOrder})
}

func (s *DepartmentService) DeleteDepartment(ctx context.Context, id uint64) (err error) {
	defer func(start time.Time) { metrics.ObserveMutation("delete", start, err) }(time.Now())

	var deleted *entities.Department
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		if err := s.repo.LockHierarchy(ctx, tx, false); err != nil {
			return err
		}
		node, err := s.findDepartment(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if err := s.guard.CheckCanDelete(ctx, tx, id); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, tx, id); err != nil {
			return err
		}
		deleted = node
		return nil
	})
	if err != nil {
		s.logFailure("delete department failed", err, zap.Uint64("id", id))
		return err
	}

	s.afterCommit(ctx, events.DepartmentDeletedEvent{
		Meta:         events.NewMeta(utils.GetUserIDFromCtx(ctx)),
		DepartmentID: id,
		Code:         deleted.Code,
		DepPath:      deleted.DepPath,
	})
	s.logger.Info("department deleted", zap.Uint64("id", id), zap.String("code", deleted.Code))
	return nil
}

// RebuildDepartmentPaths recomputes every path and level from parent links. Rows that are
// already correct are not written, so a second run reports no changes.
func (s *DepartmentService) RebuildDepartmentPaths(ctx context.Context) (_ *dto.RebuildReportDTO, err error) {
	defer func(start time.Time) { metrics.ObserveMutation("rebuild", start, err) }(time.Now())

	var report dto.RebuildReportDTO
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		if err := s.repo.LockHierarchy(ctx, tx, true); err != nil {
			return err
		}
		all, err := s.repo.FindAll(ctx, tx)
		if err != nil {
			return err
		}
		updates, planned, err := planRebuild(all)
		if err != nil {
			return err
		}
		if err := s.repo.UpdatePaths(ctx, tx, updates); err != nil {
			return err
		}
		report = planned
		return nil
	})
	if err != nil {
		s.logFailure("rebuild department paths failed", err)
		return nil, err
	}

	metrics.AddRebuildRows(report.Updated)
	if report.Updated > 0 {
		s.afterCommit(ctx, events.DepartmentPathsRebuiltEvent{Meta: events.NewMeta(utils.GetUserIDFromCtx(ctx)), Report: report})
	}
	s.logger.Info("department paths rebuilt",
		zap.Int("total", report.Total),
		zap.Int("updated", report.Updated),
		zap.Int("roots", report.Roots),
	)
	return &report, nil
}

// findDepartment turns a bare not-found from the store into a keyed NotFound error.
func (s *DepartmentService) findDepartment(ctx context.Context, tx pgx.Tx, id uint64, forUpdate bool) (*entities.Department, error) {
	var (
		department *entities.Department
		err        error
	)
	if forUpdate {
		department, err = s.repo.FindByIDForUpdate(ctx, tx, id)
	} else {
		department, err = s.repo.FindByID(ctx, tx, id)
	}
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.NewNotFoundError("department", id)
	}
	return department, err
}

func (s *DepartmentService) afterCommit(ctx context.Context, event eventbus.Event) {
	s.treeCache.Invalidate(ctx)
	if s.publisher != nil {
		s.publisher.Publish(ctx, event)
	}
}

// logFailure logs rejected requests at warn and store failures at error.
func (s *DepartmentService) logFailure(msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	var domainErr *apperrors.DomainError
	var inputErr *apperrors.InvalidInputError
	if errors.As(err, &domainErr) || errors.As(err, &inputErr) {
		s.logger.Warn(msg, fields...)
		return
	}
	s.logger.Error(msg, fields...)
}

func normalizeNameAndCode(name, code string) (string, string, error) {
	name, code = strings.TrimSpace(name), strings.TrimSpace(code)
	if name == "" {
		return "", "", apperrors.NewInvalidInputError("department name must not be blank")
	}
	if code == "" {
		return "", "", apperrors.NewInvalidInputError("department code must not be blank")
	}
	return name, code, nil
}
