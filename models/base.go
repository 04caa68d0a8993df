package models

import "fmt"

// EntityRef names one record by kind and id. It is how callers address
// rollback checks, recalculation, and audit timelines.
type EntityRef struct {
	Kind EntityKind `json:"kind"`
	ID   int        `json:"id"`
}

func (r EntityRef) String() string {
	return fmt.Sprintf("%s/%d", r.Kind, r.ID)
}

func NewEntityRef(kind EntityKind, id int) EntityRef {
	return EntityRef{Kind: kind, ID: id}
}

// auditColumnForKind maps an entity kind to the sparse audit FK column that
// carries its id. Accounts (payable/receivable) share the account_id column
// and are disambiguated by account_kind.
func auditColumnForKind(kind EntityKind) (string, bool) {
	switch kind {
	case KindProject:
		return "project_id", true
	case KindEquipmentList:
		return "list_id", true
	case KindPurchaseRequest:
		return "request_id", true
	case KindPurchaseOrder:
		return "order_id", true
	case KindPendingReceipt:
		return "receipt_id", true
	case KindPayable, KindReceivable:
		return "account_id", true
	}
	return "", false
}
