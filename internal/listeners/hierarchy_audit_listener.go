package listeners

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"hr-backoffice/internal/events"
	"hr-backoffice/pkg/eventbus"
	"hr-backoffice/pkg/utils"
)

// HierarchyAuditListener writes one structured audit line per department event.
type HierarchyAuditListener struct {
	logger *zap.Logger
}

func NewHierarchyAuditListener(logger *zap.Logger) *HierarchyAuditListener {
	return &HierarchyAuditListener{logger: logger.Named("hierarchy_audit")}
}

// Register subscribes the listener to every department event.
func (l *HierarchyAuditListener) Register(bus *eventbus.Bus) {
	for _, name := range []string{
		events.DepartmentCreatedName,
		events.DepartmentUpdatedName,
		events.DepartmentMovedName,
		events.DepartmentDeletedName,
		events.DepartmentPathsRebuiltName,
	} {
		bus.Subscribe(name, l.Handle)
	}
}

func (l *HierarchyAuditListener) Handle(ctx context.Context, event eventbus.Event) error {
	fields, err := auditFields(event)
	if err != nil {
		return err
	}
	l.logger.Info(event.Name(), fields...)
	return nil
}

func auditFields(event eventbus.Event) ([]zap.Field, error) {
	meta := func(m events.Meta) []zap.Field {
		return []zap.Field{
			zap.String("event_id", m.EventID.String()),
			zap.Time("occurred_at", m.OccurredAt),
			zap.Uint64("actor_id", utils.SafeDeref(m.ActorID)),
		}
	}

	switch e := event.(type) {
	case events.DepartmentCreatedEvent:
		return append(meta(e.Meta),
			zap.Uint64("department_id", e.Department.ID),
			zap.String("code", e.Department.Code),
			zap.String("dep_path", e.Department.DepPath),
		), nil
	case events.DepartmentUpdatedEvent:
		return append(meta(e.Meta),
			zap.Uint64("department_id", e.Department.ID),
			zap.String("code", e.Department.Code),
			zap.Bool("enabled", e.Department.Enabled),
		), nil
	case events.DepartmentMovedEvent:
		return append(meta(e.Meta),
			zap.Uint64("department_id", e.DepartmentID),
			zap.String("old_path", e.OldPath),
			zap.String("new_path", e.NewPath),
			zap.Int("affected", e.Affected),
		), nil
	case events.DepartmentDeletedEvent:
		return append(meta(e.Meta),
			zap.Uint64("department_id", e.DepartmentID),
			zap.String("code", e.Code),
			zap.String("dep_path", e.DepPath),
		), nil
	case events.DepartmentPathsRebuiltEvent:
		return append(meta(e.Meta),
			zap.Int("total", e.Report.Total),
			zap.Int("updated", e.Report.Updated),
			zap.Uint64s("changed_ids", e.Report.Changed),
		), nil
	default:
		return nil, fmt.Errorf("unexpected event type %T", event)
	}
}
