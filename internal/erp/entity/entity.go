package entity

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AutoMigrate 自动迁移所有ERP表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// master data
		&Supplier{},
		&Unit{},
		&MaterialGroup{},
		&Fabric{},
		&Trim{},
		&Customer{},

		// sales
		&SalesOrder{},
		&SalesOrderLine{},

		// BOM
		&BOMTemplate{},
		&BOMTemplateLine{},
		&OrderBOM{},
		&OrderBOMLine{},

		// purchasing
		&PurchaseOrder{},
		&PurchaseOrderLine{},

		// production
		&ProductionOutput{},
	)
}

// NewID returns a 32 character identifier.
func NewID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
