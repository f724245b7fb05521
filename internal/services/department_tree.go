package services

import (
	"sort"

	"hr-backoffice/internal/dto"
	"hr-backoffice/internal/entities"
	"hr-backoffice/pkg/utils"
)

func departmentEntityToDTO(d *entities.Department) dto.DepartmentDTO {
	return dto.DepartmentDTO{
		ID:        d.ID,
		Name:      d.Name,
		Code:      d.Code,
		ParentID:  utils.CopyPtr(d.ParentID),
		Level:     d.Level,
		DepPath:   d.DepPath,
		SortOrder: d.SortOrder,
		Enabled:   d.Enabled,
		ManagerID: utils.CopyPtr(d.ManagerID),
		CreatedBy: utils.CopyPtr(d.CreatedBy),
		UpdatedBy: utils.CopyPtr(d.UpdatedBy),
		CreatedAt: utils.CopyPtr(d.CreatedAt),
		UpdatedAt: utils.CopyPtr(d.UpdatedAt),
	}
}

func departmentsToDTOs(departments []*entities.Department) []dto.DepartmentDTO {
	result := make([]dto.DepartmentDTO, 0, len(departments))
	for _, d := range departments {
		result = append(result, departmentEntityToDTO(d))
	}
	return result
}

// assembleForest builds fresh tree nodes from flat rows. A row whose parent is not
// among the rows becomes a root, so a subtree scan yields a single tree.
func assembleForest(departments []*entities.Department) []*dto.DepartmentTreeDTO {
	nodes := make(map[uint64]*dto.DepartmentTreeDTO, len(departments))
	for _, d := range departments {
		nodes[d.ID] = &dto.DepartmentTreeDTO{
			DepartmentDTO: departmentEntityToDTO(d),
			Children:      []*dto.DepartmentTreeDTO{},
		}
	}

	roots := make([]*dto.DepartmentTreeDTO, 0)
	for _, d := range departments {
		node := nodes[d.ID]
		if d.ParentID != nil {
			if parent, ok := nodes[*d.ParentID]; ok && parent != node {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	sortSiblings(roots)
	return roots
}

func sortSiblings(nodes []*dto.DepartmentTreeDTO) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].SortOrder != nodes[j].SortOrder {
			return nodes[i].SortOrder < nodes[j].SortOrder
		}
		return nodes[i].ID < nodes[j].ID
	})
	for _, n := range nodes {
		sortSiblings(n.Children)
	}
}
