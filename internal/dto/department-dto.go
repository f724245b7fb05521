package dto

import (
	"time"

	"github.com/aarondl/null/v8"
)

type CreateDepartmentDTO struct {
	Name      string      `json:"name" validate:"required,not_blank,max=200"`
	Code      string      `json:"code" validate:"required,department_code"`
	ParentID  null.Uint64 `json:"parent_id" validate:"omitempty,gt=0"`
	SortOrder int         `json:"sort_order"`
	Enabled   *bool       `json:"enabled"`
	ManagerID null.Uint64 `json:"manager_id" validate:"omitempty,gt=0"`
}

// UpdateDepartmentDTO never carries structural fields; use MoveDepartmentDTO to re-parent.
type UpdateDepartmentDTO struct {
	Name         *string     `json:"name" validate:"omitempty,not_blank,max=200"`
	Code         *string     `json:"code" validate:"omitempty,department_code"`
	SortOrder    *int        `json:"sort_order"`
	Enabled      *bool       `json:"enabled"`
	ManagerID    null.Uint64 `json:"manager_id" validate:"omitempty,gt=0"`
	ClearManager bool        `json:"clear_manager"`
}

// MoveDepartmentDTO with an empty ParentID moves the department to the root.
type MoveDepartmentDTO struct {
	ParentID null.Uint64 `json:"parent_id" validate:"omitempty,gt=0"`
}

type SetDepartmentEnabledDTO struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type UpdateSortOrderDTO struct {
	SortOrder *int `json:"sort_order" validate:"required"`
}

type DepartmentDTO struct {
	ID        uint64     `json:"id"`
	Name      string     `json:"name"`
	Code      string     `json:"code"`
	ParentID  *uint64    `json:"parent_id"`
	Level     int        `json:"level"`
	DepPath   string     `json:"dep_path"`
	SortOrder int        `json:"sort_order"`
	Enabled   bool       `json:"enabled"`
	ManagerID *uint64    `json:"manager_id"`
	CreatedBy *uint64    `json:"created_by"`
	UpdatedBy *uint64    `json:"updated_by"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type DepartmentTreeDTO struct {
	DepartmentDTO
	Children []*DepartmentTreeDTO `json:"children"`
}

type RebuildReportDTO struct {
	Total   int      `json:"total"`
	Updated int      `json:"updated"`
	Roots   int      `json:"roots"`
	Changed []uint64 `json:"changed_ids"`
}
