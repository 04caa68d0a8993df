package models

import "errors"

// EntityKind is the closed set of record kinds the lifecycle engine operates
// on. Registry lookups, dependency edges and parent-chain links are all keyed
// by kind, so adding one is a compile-visible extension of those tables.
type EntityKind string

const (
	KindProject         EntityKind = "project"
	KindEquipmentList   EntityKind = "equipment_list"
	KindPurchaseRequest EntityKind = "purchase_request"
	KindPurchaseOrder   EntityKind = "purchase_order"
	KindPendingReceipt  EntityKind = "pending_receipt"
	KindPayable         EntityKind = "payable"
	KindValuation       EntityKind = "valuation"
	KindReceivable      EntityKind = "receivable"

	// line-item kinds, used only by the recalculation parent chain
	KindEquipmentListItem   EntityKind = "equipment_list_item"
	KindPurchaseRequestItem EntityKind = "purchase_request_item"
	KindPurchaseOrderItem   EntityKind = "purchase_order_item"
	KindPayment             EntityKind = "payment"
)

var lifecycleKinds = map[EntityKind]bool{
	KindEquipmentList:   true,
	KindPurchaseRequest: true,
	KindPurchaseOrder:   true,
	KindPendingReceipt:  true,
	KindPayable:         true,
	KindReceivable:      true,
}

func (k EntityKind) IsLifecycleKind() bool {
	return lifecycleKinds[k]
}

func ParseEntityKind(s string) (EntityKind, error) {
	k := EntityKind(s)
	switch k {
	case KindProject, KindEquipmentList, KindPurchaseRequest, KindPurchaseOrder,
		KindPendingReceipt, KindPayable, KindValuation, KindReceivable,
		KindEquipmentListItem, KindPurchaseRequestItem, KindPurchaseOrderItem, KindPayment:
		return k, nil
	}
	return "", errors.New("invalid entity kind")
}

type EquipmentListStatus string

const (
	EquipmentListStatusDraft         EquipmentListStatus = "Draft"
	EquipmentListStatusReadyForQuote EquipmentListStatus = "ReadyForQuote"
	EquipmentListStatusValidated     EquipmentListStatus = "Validated"
	EquipmentListStatusApproved      EquipmentListStatus = "Approved"
	EquipmentListStatusCancelled     EquipmentListStatus = "Cancelled"
)

type PurchaseRequestStatus string

const (
	PurchaseRequestStatusDraft     PurchaseRequestStatus = "Draft"
	PurchaseRequestStatusSent      PurchaseRequestStatus = "Sent"
	PurchaseRequestStatusQuoted    PurchaseRequestStatus = "Quoted"
	PurchaseRequestStatusApproved  PurchaseRequestStatus = "Approved"
	PurchaseRequestStatusOrdered   PurchaseRequestStatus = "Ordered"
	PurchaseRequestStatusRejected  PurchaseRequestStatus = "Rejected"
	PurchaseRequestStatusCancelled PurchaseRequestStatus = "Cancelled"
)

type PurchaseOrderStatus string

const (
	PurchaseOrderStatusDraft             PurchaseOrderStatus = "Draft"
	PurchaseOrderStatusApproved          PurchaseOrderStatus = "Approved"
	PurchaseOrderStatusSent              PurchaseOrderStatus = "Sent"
	PurchaseOrderStatusConfirmed         PurchaseOrderStatus = "Confirmed"
	PurchaseOrderStatusPartiallyReceived PurchaseOrderStatus = "PartiallyReceived"
	PurchaseOrderStatusCompleted         PurchaseOrderStatus = "Completed"
	PurchaseOrderStatusCancelled         PurchaseOrderStatus = "Cancelled"
)

type PendingReceiptStatus string

const (
	PendingReceiptStatusPending  PendingReceiptStatus = "Pending"
	PendingReceiptStatusReceived PendingReceiptStatus = "Received"
	PendingReceiptStatusSettled  PendingReceiptStatus = "Settled"
	PendingReceiptStatusVoided   PendingReceiptStatus = "Voided"
)

// AccountStatus covers both payables and receivables; the two ladders are
// identical.
type AccountStatus string

const (
	AccountStatusPending AccountStatus = "Pending"
	AccountStatusPartial AccountStatus = "Partial"
	AccountStatusPaid    AccountStatus = "Paid"
	AccountStatusVoided  AccountStatus = "Voided"
)

type PaymentMethod string

const (
	PaymentMethodTransfer PaymentMethod = "Transfer"
	PaymentMethodCheck    PaymentMethod = "Check"
	PaymentMethodCash     PaymentMethod = "Cash"
	PaymentMethodCard     PaymentMethod = "Card"
)

type UserRole string

const (
	UserRoleAdmin     UserRole = "admin"
	UserRoleManager   UserRole = "manager"
	UserRoleLogistics UserRole = "logistics"
	UserRoleViewer    UserRole = "viewer"
)

/* audit event kinds (open tag set; these are the ones the engine itself emits) */

const (
	AuditEventKindTransition    = "TRANSITION"
	AuditEventKindRollback      = "ROLLBACK"
	AuditEventKindDelete        = "DELETE"
	AuditEventKindPayment       = "PAYMENT"
	AuditEventKindRecalculation = "RECALCULATION"
)
