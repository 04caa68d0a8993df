package models

import (
	"bitbucket.org/andeandataworks/gestion_backend/config"
	"gorm.io/gorm"
)

// AllModels lists every table the engine owns, in migration order.
// Used by gorm AutoMigrate from the server and from the test harness.
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Project{},
		&CurrencyExchange{},
		&EquipmentList{},
		&EquipmentListItem{},
		&PurchaseRequest{},
		&PurchaseRequestItem{},
		&PurchaseOrder{},
		&PurchaseOrderItem{},
		&PendingReceipt{},
		&Payable{},
		&Valuation{},
		&Receivable{},
		&Payment{},
		&AuditEvent{},
		&AuditOutboxRecord{},
	}
}

func MigrateTable() error {
	return MigrateAll(config.GetDB())
}

func MigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
