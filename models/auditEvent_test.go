package models_test

import (
	"context"
	"fmt"
	"testing"

	"bitbucket.org/andeandataworks/gestion_backend/config"
	"bitbucket.org/andeandataworks/gestion_backend/models"
	"bitbucket.org/andeandataworks/gestion_backend/utils"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupAuditDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.MigrateAll(db))
	config.SetDB(db)
	t.Cleanup(func() { config.SetDB(nil) })
	return db
}

func auditCtx() context.Context {
	ctx := context.Background()
	ctx = utils.SetUserIdInContext(ctx, 3)
	ctx = utils.SetUserNameInContext(ctx, "Auditor")
	return ctx
}

func record(t *testing.T, db *gorm.DB, ctx context.Context, input models.NewAuditEvent) {
	t.Helper()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return models.RecordAuditEvent(tx, input)
	})
	require.NoError(t, err)
}

func TestTimelineIsChronological(t *testing.T) {
	db := setupAuditDB(t)
	ctx := auditCtx()

	ref := models.NewEntityRef(models.KindPurchaseOrder, 12)
	kinds := []string{
		models.AuditEventKindTransition,
		models.AuditEventKindRecalculation,
		models.AuditEventKindRollback,
	}
	for _, kind := range kinds {
		record(t, db, ctx, models.NewAuditEvent{
			Refs:        []models.EntityRef{ref},
			EventKind:   kind,
			Description: kind + " on order 12",
		})
	}
	// an event on a different order never leaks in
	record(t, db, ctx, models.NewAuditEvent{
		Refs:        []models.EntityRef{models.NewEntityRef(models.KindPurchaseOrder, 99)},
		EventKind:   models.AuditEventKindTransition,
		Description: "transition on order 99",
	})

	timeline, err := models.GetTimeline(ctx, ref)
	require.NoError(t, err)
	require.Len(t, timeline, 3)
	for i, kind := range kinds {
		require.Equal(t, kind, timeline[i].EventKind)
		require.Equal(t, 3, timeline[i].ActorId)
	}
	require.True(t, !timeline[1].OccurredAt.Before(timeline[0].OccurredAt))
}

func TestTimelineDisambiguatesAccountKinds(t *testing.T) {
	db := setupAuditDB(t)
	ctx := auditCtx()

	// payable 5 and receivable 5 share the account_id column
	record(t, db, ctx, models.NewAuditEvent{
		Refs:        []models.EntityRef{models.NewEntityRef(models.KindPayable, 5)},
		EventKind:   models.AuditEventKindPayment,
		Description: "payment on payable 5",
	})
	record(t, db, ctx, models.NewAuditEvent{
		Refs:        []models.EntityRef{models.NewEntityRef(models.KindReceivable, 5)},
		EventKind:   models.AuditEventKindPayment,
		Description: "collection on receivable 5",
	})

	payable, err := models.GetTimeline(ctx, models.NewEntityRef(models.KindPayable, 5))
	require.NoError(t, err)
	require.Len(t, payable, 1)
	require.Equal(t, "payment on payable 5", payable[0].Description)

	receivable, err := models.GetTimeline(ctx, models.NewEntityRef(models.KindReceivable, 5))
	require.NoError(t, err)
	require.Len(t, receivable, 1)
	require.Equal(t, "collection on receivable 5", receivable[0].Description)
}

func TestAuditEventRequiresActor(t *testing.T) {
	db := setupAuditDB(t)

	err := db.WithContext(context.Background()).Transaction(func(tx *gorm.DB) error {
		return models.RecordAuditEvent(tx, models.NewAuditEvent{
			Refs:        []models.EntityRef{models.NewEntityRef(models.KindProject, 1)},
			EventKind:   models.AuditEventKindTransition,
			Description: "anonymous",
		})
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.AuditEvent{}).Count(&count).Error)
	require.Equal(t, int64(0), count)
}

func TestTimelineRejectsUnknownKind(t *testing.T) {
	setupAuditDB(t)
	_, err := models.GetTimeline(auditCtx(), models.NewEntityRef(models.KindPayment, 1))
	require.Error(t, err)
}
