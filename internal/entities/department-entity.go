package entities

import "hr-backoffice/pkg/types"

type Department struct {
	ID        uint64  `db:"id"`
	Name      string  `db:"name"`
	Code      string  `db:"code"`
	ParentID  *uint64 `db:"parent_id"`
	DepPath   string  `db:"dep_path"`
	Level     int     `db:"level"`
	SortOrder int     `db:"sort_order"`
	Enabled   bool    `db:"enabled"`
	ManagerID *uint64 `db:"manager_id"`
	CreatedBy *uint64 `db:"created_by"`
	UpdatedBy *uint64 `db:"updated_by"`

	types.BaseEntity
}

// IsRoot reports whether the department has no parent.
func (d *Department) IsRoot() bool {
	return d.ParentID == nil
}
