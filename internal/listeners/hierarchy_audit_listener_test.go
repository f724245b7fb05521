package listeners

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"hr-backoffice/internal/dto"
	"hr-backoffice/internal/events"
	"hr-backoffice/pkg/eventbus"
)

type unknownEvent struct{}

func (unknownEvent) Name() string { return events.DepartmentCreatedName }

func TestHierarchyAuditListener_LogsPublishedEvents(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	bus := eventbus.New(zap.NewNop())
	NewHierarchyAuditListener(zap.New(core)).Register(bus)

	actor := uint64(7)
	bus.Publish(context.Background(), events.DepartmentMovedEvent{
		Meta:         events.NewMeta(&actor),
		DepartmentID: 2,
		OldPath:      "/1/2",
		NewPath:      "/4/2",
		Affected:     2,
	})
	bus.Publish(context.Background(), events.DepartmentPathsRebuiltEvent{
		Meta:   events.NewMeta(nil),
		Report: dto.RebuildReportDTO{Total: 4, Updated: 1, Changed: []uint64{3}},
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Wait(ctx))

	moved := logs.FilterMessage(events.DepartmentMovedName).All()
	require.Len(t, moved, 1)
	fields := moved[0].ContextMap()
	assert.Equal(t, "/4/2", fields["new_path"])
	assert.Equal(t, uint64(7), fields["actor_id"])

	assert.Equal(t, 1, logs.FilterMessage(events.DepartmentPathsRebuiltName).Len())
}

func TestHierarchyAuditListener_RejectsUnknownEvent(t *testing.T) {
	listener := NewHierarchyAuditListener(zap.NewNop())
	assert.Error(t, listener.Handle(context.Background(), unknownEvent{}))
}
