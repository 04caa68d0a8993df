package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"bitbucket.org/andeandataworks/gestion_backend/config"
	"bitbucket.org/andeandataworks/gestion_backend/utils"
	"gorm.io/gorm"
)

// AuditEvent is the append-only traceability record. One wide table, sparse
// nullable foreign keys; only the columns relevant to the documented action
// are populated. Rows are never updated or deleted.
type AuditEvent struct {
	ID          int        `gorm:"primary_key" json:"id"`
	ProjectId   *int       `gorm:"index;default:null" json:"project_id"`
	ListId      *int       `gorm:"index;default:null" json:"list_id"`
	RequestId   *int       `gorm:"index;default:null" json:"request_id"`
	OrderId     *int       `gorm:"index;default:null" json:"order_id"`
	ReceiptId   *int       `gorm:"index;default:null" json:"receipt_id"`
	AccountId   *int       `gorm:"index;default:null" json:"account_id"`
	AccountKind EntityKind `gorm:"size:50;default:null" json:"account_kind"`
	EventKind   string     `gorm:"size:50;not null" json:"event_kind"`
	Description string     `gorm:"type:text;not null" json:"description"`
	ActorId     int        `gorm:"index;not null" json:"actor_id"`
	ActorName   string     `gorm:"size:100" json:"actor_name"`
	Metadata    string     `gorm:"type:text" json:"metadata"`
	OccurredAt  time.Time  `gorm:"index;not null" json:"occurred_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// NewAuditEvent is the write-path input. Refs lists every entity the event
// relates to; each one lands in its own sparse column.
type NewAuditEvent struct {
	Refs        []EntityRef
	EventKind   string
	Description string
	Metadata    map[string]interface{}
}

func (input NewAuditEvent) build(ctx context.Context) (*AuditEvent, error) {
	actorId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, errors.New("actor id is required")
	}
	actorName, _ := utils.GetUserNameFromContext(ctx)

	event := AuditEvent{
		EventKind:   input.EventKind,
		Description: input.Description,
		ActorId:     actorId,
		ActorName:   actorName,
		OccurredAt:  time.Now().UTC(),
	}
	if input.Metadata != nil {
		b, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, err
		}
		event.Metadata = string(b)
	}
	for _, ref := range input.Refs {
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
		default:
			return nil, errors.New("entity kind has no audit column: " + string(ref.Kind))
		}
	}
	return &event, nil
}

// RecordAuditEvent appends one event inside the caller's transaction. The
// business mutation and its audit record commit together or not at all.
func RecordAuditEvent(tx *gorm.DB, input NewAuditEvent) error {
	event, err := input.build(tx.Statement.Context)
	if err != nil {
		return err
	}
	return tx.Create(event).Error
}

// GetTimeline reconstructs the chronological history of one entity by
// following its sparse foreign key. Rows that also reference other entities
// are included; rows that reference none of interest are not.
func GetTimeline(ctx context.Context, ref EntityRef) ([]*AuditEvent, error) {
	column, ok := auditColumnForKind(ref.Kind)
	if !ok {
		return nil, errors.New("entity kind has no timeline: " + string(ref.Kind))
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where(column+" = ?", ref.ID)
	if column == "account_id" {
		dbCtx = dbCtx.Where("account_kind = ?", ref.Kind)
	}

	var results []*AuditEvent
	err := dbCtx.Order("occurred_at ASC, id ASC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
