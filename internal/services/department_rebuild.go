package services

import (
	"sort"

	"hr-backoffice/internal/dto"
	"hr-backoffice/internal/entities"
	"hr-backoffice/internal/repositories"
	"hr-backoffice/pkg/deppath"
	apperrors "hr-backoffice/pkg/errors"
)

// planRebuild recomputes path and level for the whole forest breadth-first from the roots
// and returns only the rows whose stored values differ.
func planRebuild(all []*entities.Department) ([]repositories.PathUpdate, dto.RebuildReportDTO, error) {
	report := dto.RebuildReportDTO{Total: len(all), Changed: []uint64{}}

	children := make(map[uint64][]*entities.Department, len(all))
	queue := make([]*entities.Department, 0, len(all))
	for _, d := range all {
		if d.ParentID == nil {
			queue = append(queue, d)
			continue
		}
		children[*d.ParentID] = append(children[*d.ParentID], d)
	}
	report.Roots = len(queue)

	type computed struct {
		path  string
		level int
	}
	assigned := make(map[uint64]computed, len(all))
	for _, root := range queue {
		assigned[root.ID] = computed{path: deppath.Root(root.ID), level: 0}
	}

	updates := make([]repositories.PathUpdate, 0)
	for len(queue) > 0 {
		d := queue[0]
		queue = queue[1:]

		c := assigned[d.ID]
		if d.DepPath != c.path || d.Level != c.level {
			updates = append(updates, repositories.PathUpdate{ID: d.ID, DepPath: c.path, Level: c.level})
			report.Changed = append(report.Changed, d.ID)
		}

		for _, child := range children[d.ID] {
			if _, seen := assigned[child.ID]; seen {
				continue
			}
			assigned[child.ID] = computed{path: deppath.Encode(c.path, child.ID), level: c.level + 1}
			queue = append(queue, child)
		}
	}

	if len(assigned) != len(all) {
		unreachable := make([]uint64, 0, len(all)-len(assigned))
		for _, d := range all {
			if _, ok := assigned[d.ID]; !ok {
				unreachable = append(unreachable, d.ID)
			}
		}
		sort.Slice(unreachable, func(i, j int) bool { return unreachable[i] < unreachable[j] })

		err := apperrors.NewHierarchyError(apperrors.ReasonCorrupted,
			"%d department(s) are not reachable from any root: %v", len(unreachable), unreachable)
		if domainErr, ok := err.(*apperrors.DomainError); ok {
			domainErr.Details["unreachable_ids"] = unreachable
		}
		return nil, report, err
	}

	report.Updated = len(updates)
	return updates, report, nil
}
