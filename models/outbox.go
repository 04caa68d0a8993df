package models

import (
	"encoding/json"
	"time"

	"bitbucket.org/andeandataworks/gestion_backend/utils"
	"gorm.io/gorm"
)

// Supplementary audit records (deletion logs, rollup snapshots) are staged in
// an outbox and flushed by a background dispatcher after the primary operation
// has committed. A dispatch failure is retried with backoff and can never roll
// back or fail the operation that enqueued it.

const (
	OutboxStatusPending    = "PENDING"
	OutboxStatusProcessing = "PROCESSING"
	OutboxStatusSent       = "SENT"
	OutboxStatusFailed     = "FAILED"
	OutboxStatusDead       = "DEAD"
)

type AuditOutboxRecord struct {
	ID            int        `gorm:"primary_key" json:"id"`
	EventKind     string     `gorm:"size:50;not null" json:"event_kind"`
	Payload       string     `gorm:"type:text;not null" json:"payload"`
	Status        string     `gorm:"size:20;index;not null;default:PENDING" json:"status"`
	Attempts      int        `gorm:"not null;default:0" json:"attempts"`
	NextAttemptAt *time.Time `gorm:"default:null" json:"next_attempt_at"`
	LockedAt      *time.Time `gorm:"default:null" json:"locked_at"`
	LockedBy      *string    `gorm:"size:100;default:null" json:"locked_by"`
	LastError     *string    `gorm:"size:500;default:null" json:"last_error"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	DispatchedAt  *time.Time `gorm:"default:null" json:"dispatched_at"`
}

// SupplementaryAuditPayload carries everything the dispatcher needs to write
// the audit row later, outside the request that produced it.
type SupplementaryAuditPayload struct {
	Refs        []EntityRef            `json:"refs"`
	EventKind   string                 `json:"event_kind"`
	Description string                 `json:"description"`
	ActorId     int                    `json:"actor_id"`
	ActorName   string                 `json:"actor_name"`
	Metadata    map[string]interface{} `json:"metadata"`
	OccurredAt  time.Time              `json:"occurred_at"`
}

// EnqueueSupplementaryAudit stages a best-effort audit record. Called inside
// the primary transaction so the intent commits atomically with the operation,
// while the actual audit write happens post-commit.
func EnqueueSupplementaryAudit(tx *gorm.DB, payload SupplementaryAuditPayload) error {
	ctx := tx.Statement.Context
	if payload.ActorId == 0 {
		if actorId, ok := utils.GetUserIdFromContext(ctx); ok {
			payload.ActorId = actorId
		}
	}
	if payload.ActorName == "" {
		payload.ActorName, _ = utils.GetUserNameFromContext(ctx)
	}
	if payload.OccurredAt.IsZero() {
		payload.OccurredAt = time.Now().UTC()
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	record := AuditOutboxRecord{
		EventKind: payload.EventKind,
		Payload:   string(b),
		Status:    OutboxStatusPending,
	}
	return tx.Create(&record).Error
}

// BuildAuditEventFromPayload converts a claimed outbox record back into the
// audit row it stands for.
func BuildAuditEventFromPayload(record AuditOutboxRecord) (*AuditEvent, error) {
	var payload SupplementaryAuditPayload
	if err := json.Unmarshal([]byte(record.Payload), &payload); err != nil {
		return nil, err
	}

	event := AuditEvent{
		EventKind:   payload.EventKind,
		Description: payload.Description,
		ActorId:     payload.ActorId,
		ActorName:   payload.ActorName,
		OccurredAt:  payload.OccurredAt,
	}
	if payload.Metadata != nil {
		b, err := json.Marshal(payload.Metadata)
		if err != nil {
			return nil, err
		}
		event.Metadata = string(b)
	}
	for _, ref := range payload.Refs {
		id := ref.ID
		switch ref.Kind {
		case KindProject:
			event.ProjectId = &id
		case KindEquipmentList:
			event.ListId = &id
		case KindPurchaseRequest:
			event.RequestId = &id
		case KindPurchaseOrder:
			event.OrderId = &id
		case KindPendingReceipt:
			event.ReceiptId = &id
		case KindPayable, KindReceivable:
			event.AccountId = &id
			event.AccountKind = ref.Kind
		}
	}
	return &event, nil
}
