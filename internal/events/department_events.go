package events

import (
	"time"

	"github.com/google/uuid"

	"hr-backoffice/internal/dto"
)

const (
	DepartmentCreatedName      = "department.created"
	DepartmentUpdatedName      = "department.updated"
	DepartmentMovedName        = "department.moved"
	DepartmentDeletedName      = "department.deleted"
	DepartmentPathsRebuiltName = "department.paths_rebuilt"
)

// Meta is shared by every department event.
type Meta struct {
	EventID    uuid.UUID
	OccurredAt time.Time
	ActorID    *uint64
}

func NewMeta(actorID *uint64) Meta {
	return Meta{EventID: uuid.New(), OccurredAt: time.Now().UTC(), ActorID: actorID}
}

type DepartmentCreatedEvent struct {
	Meta
	Department dto.DepartmentDTO
}

func (e DepartmentCreatedEvent) Name() string { return DepartmentCreatedName }

type DepartmentUpdatedEvent struct {
	Meta
	Department dto.DepartmentDTO
}

func (e DepartmentUpdatedEvent) Name() string { return DepartmentUpdatedName }

// DepartmentMovedEvent is published once per move; Affected counts the node and its descendants.
type DepartmentMovedEvent struct {
	Meta
	DepartmentID uint64
	OldParentID  *uint64
	NewParentID  *uint64
	OldPath      string
	NewPath      string
	Affected     int
}

func (e DepartmentMovedEvent) Name() string { return DepartmentMovedName }

type DepartmentDeletedEvent struct {
	Meta
	DepartmentID uint64
	Code         string
	DepPath      string
}

func (e DepartmentDeletedEvent) Name() string { return DepartmentDeletedName }

type DepartmentPathsRebuiltEvent struct {
	Meta
	Report dto.RebuildReportDTO
}

func (e DepartmentPathsRebuiltEvent) Name() string { return DepartmentPathsRebuiltName }
