package workflow_test

import (
	"context"
	"testing"
	"time"

	"bitbucket.org/andeandataworks/gestion_backend/config"
	"bitbucket.org/andeandataworks/gestion_backend/models"
	"bitbucket.org/andeandataworks/gestion_backend/workflow"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestDispatcherFlushesStagedRecord(t *testing.T) {
	db := setupDB(t)
	ctx := actorCtx(models.UserRoleAdmin)

	project := seedProject(t, db)
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return models.EnqueueSupplementaryAudit(tx, models.SupplementaryAuditPayload{
			Refs:        []models.EntityRef{models.NewEntityRef(models.KindProject, project.ID)},
			EventKind:   models.AuditEventKindDelete,
			Description: "deletion log for project 1",
			OccurredAt:  time.Now().UTC(),
		})
	})
	require.NoError(t, err)

	dispatcher := workflow.NewOutboxDispatcher(db, config.GetLogger())
	require.Equal(t, 1, dispatcher.DispatchOnce(context.Background()))
	// drained: nothing left to claim
	require.Equal(t, 0, dispatcher.DispatchOnce(context.Background()))

	var record models.AuditOutboxRecord
	require.NoError(t, db.Take(&record).Error)
	require.Equal(t, models.OutboxStatusSent, record.Status)
	require.Equal(t, 1, record.Attempts)
	require.NotNil(t, record.DispatchedAt)

	// the supplementary row made it into the trail with the staged actor
	timeline, err := models.GetTimeline(ctx, models.NewEntityRef(models.KindProject, project.ID))
	require.NoError(t, err)
	require.Len(t, timeline, 1)
	require.Equal(t, models.AuditEventKindDelete, timeline[0].EventKind)
	require.Equal(t, 7, timeline[0].ActorId)
	require.Equal(t, "Test Actor", timeline[0].ActorName)
}

func TestDispatcherPoisonRecordFailsThenDies(t *testing.T) {
	db := setupDB(t)

	record := models.AuditOutboxRecord{
		EventKind: models.AuditEventKindDelete,
		Payload:   "{not json",
		Status:    models.OutboxStatusPending,
	}
	require.NoError(t, db.Create(&record).Error)

	dispatcher := workflow.NewOutboxDispatcher(db, config.GetLogger())
	dispatcher.DispatchOnce(context.Background())

	// the malformed payload fails delivery and is parked for retry
	require.NoError(t, db.Take(&record, record.ID).Error)
	require.Equal(t, models.OutboxStatusFailed, record.Status)
	require.Equal(t, 1, record.Attempts)
	require.NotNil(t, record.LastError)
	require.NotNil(t, record.NextAttemptAt)

	// once the attempt budget is spent the record goes terminal
	require.NoError(t, db.Model(&models.AuditOutboxRecord{}).Where("id = ?", record.ID).
		Updates(map[string]interface{}{"attempts": dispatcher.MaxAttempts, "next_attempt_at": nil}).Error)
	dispatcher.DispatchOnce(context.Background())

	require.NoError(t, db.Take(&record, record.ID).Error)
	require.Equal(t, models.OutboxStatusDead, record.Status)

	var events int64
	require.NoError(t, db.Model(&models.AuditEvent{}).Count(&events).Error)
	require.Equal(t, int64(0), events)
}

func TestDispatcherRetriesAfterBackoff(t *testing.T) {
	db := setupDB(t)

	past := time.Now().UTC().Add(-time.Minute)
	failed := models.AuditOutboxRecord{
		EventKind:     models.AuditEventKindDelete,
		Payload:       `{"refs":[{"kind":"project","id":1}],"event_kind":"DELETE","description":"retry me","actor_id":7,"occurred_at":"2026-08-01T00:00:00Z"}`,
		Status:        models.OutboxStatusFailed,
		Attempts:      2,
		NextAttemptAt: &past,
	}
	require.NoError(t, db.Create(&failed).Error)

	// a FAILED record whose backoff has not elapsed is not claimed
	future := time.Now().UTC().Add(time.Hour)
	waiting := models.AuditOutboxRecord{
		EventKind:     models.AuditEventKindDelete,
		Payload:       `{"event_kind":"DELETE","description":"too early","actor_id":7,"occurred_at":"2026-08-01T00:00:00Z"}`,
		Status:        models.OutboxStatusFailed,
		Attempts:      1,
		NextAttemptAt: &future,
	}
	require.NoError(t, db.Create(&waiting).Error)

	dispatcher := workflow.NewOutboxDispatcher(db, config.GetLogger())
	dispatcher.DispatchOnce(context.Background())

	require.NoError(t, db.Take(&failed, failed.ID).Error)
	require.Equal(t, models.OutboxStatusSent, failed.Status)
	require.Equal(t, 3, failed.Attempts)

	require.NoError(t, db.Take(&waiting, waiting.ID).Error)
	require.Equal(t, models.OutboxStatusFailed, waiting.Status)
	require.Equal(t, 1, waiting.Attempts)
}
