package entity

import (
	"time"

	"gorm.io/gorm"
)

// Department 生产工段
const (
	DeptCut  = "CUT"
	DeptSew  = "SEW"
	DeptWash = "WSH"
	DeptDip  = "DIP"
	DeptPack = "PCK"
)

// Departments lists every department in flow order.
var Departments = []string{DeptCut, DeptSew, DeptWash, DeptDip, DeptPack}

func IsDepartment(d string) bool {
	for _, v := range Departments {
		if v == d {
			return true
		}
	}
	return false
}

// ProductionOutput 生产产量记录，只增不改
type ProductionOutput struct {
	ID             string    `json:"id" gorm:"primaryKey;size:32"`
	SalesOrderID   string    `json:"sales_order_id" gorm:"size:32;not null;index"`
	Style          string    `json:"style" gorm:"size:64;not null"`
	Color          string    `json:"color" gorm:"size:64;not null"`
	Department     string    `json:"department" gorm:"size:10;not null;index"`
	ProductionLine string    `json:"production_line" gorm:"size:50"`
	OutputDate     time.Time `json:"output_date" gorm:"not null;index"`
	Quantity       float64   `json:"quantity" gorm:"type:decimal(12,2);not null"`
	CreatedBy      string    `json:"created_by" gorm:"size:64"`
	CreatedAt      time.Time `json:"created_at"`
}

func (ProductionOutput) TableName() string {
	return "erp_production_outputs"
}

func (o *ProductionOutput) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = NewID()
	}
	return nil
}
