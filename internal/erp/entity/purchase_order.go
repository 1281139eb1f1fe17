package entity

import (
	"time"

	"gorm.io/gorm"
)

// PurchaseOrderStatus 采购订单状态
const (
	POStatusNew       = "NEW"
	POStatusSubmitted = "SUBMITTED"
	POStatusApproved  = "APPROVED"
	POStatusRejected  = "REJECTED"
)

// poTransitions 允许的状态流转
var poTransitions = map[string][]string{
	POStatusNew:       {POStatusSubmitted},
	POStatusSubmitted: {POStatusApproved, POStatusRejected},
	POStatusRejected:  {POStatusSubmitted},
}

// POSourceStatuses returns the statuses a PO may leave to reach target.
func POSourceStatuses(target string) []string {
	var from []string
	for _, src := range []string{POStatusNew, POStatusSubmitted, POStatusApproved, POStatusRejected} {
		for _, to := range poTransitions[src] {
			if to == target {
				from = append(from, src)
			}
		}
	}
	return from
}

// PurchaseOrder 采购订单（按供应商+币种从订单BOM生成）
type PurchaseOrder struct {
	ID           string     `json:"id" gorm:"primaryKey;size:32"`
	PONumber     string     `json:"po_number" gorm:"size:32;not null;uniqueIndex"`
	SupplierID   string     `json:"supplier_id" gorm:"size:32;not null;index"`
	SalesOrderID string     `json:"sales_order_id" gorm:"size:32;index"`
	Currency     string     `json:"currency" gorm:"size:10;not null"`
	PODate       *time.Time `json:"po_date"`
	ArrivalDate  *time.Time `json:"arrival_date"`
	Status       string     `json:"status" gorm:"size:20;not null;default:NEW;index"`
	TotalAmount  float64    `json:"total_amount" gorm:"type:decimal(15,2);default:0"`
	Notes        string     `json:"notes" gorm:"type:text"`
	CreatedBy    string     `json:"created_by" gorm:"size:64"`
	SubmittedAt  *time.Time `json:"submitted_at"`
	ApprovedBy   *string    `json:"approved_by" gorm:"size:64"`
	ApprovedAt   *time.Time `json:"approved_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Supplier *Supplier           `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
	Lines    []PurchaseOrderLine `json:"lines,omitempty" gorm:"foreignKey:PurchaseOrderID"`
}

func (PurchaseOrder) TableName() string {
	return "erp_purchase_orders"
}

func (po *PurchaseOrder) BeforeCreate(tx *gorm.DB) error {
	if po.ID == "" {
		po.ID = NewID()
	}
	return nil
}

// CanTransition 是否允许流转到目标状态
func (po *PurchaseOrder) CanTransition(target string) bool {
	for _, to := range poTransitions[po.Status] {
		if to == target {
			return true
		}
	}
	return false
}

// IsEditable 仅NEW/REJECTED状态允许编辑和删除
func (po *PurchaseOrder) IsEditable() bool {
	return po.Status == POStatusNew || po.Status == POStatusRejected
}

// PurchaseOrderLine 采购订单行，永久关联来源订单BOM行
type PurchaseOrderLine struct {
	ID              string      `json:"id" gorm:"primaryKey;size:32"`
	PurchaseOrderID string      `json:"purchase_order_id" gorm:"size:32;not null;index"`
	OrderBOMLineID  string      `json:"order_bom_line_id" gorm:"size:32;not null;index"`
	Material        MaterialRef `json:"material" gorm:"embedded"`
	MaterialCode    string      `json:"material_code" gorm:"size:50"`
	MaterialName    string      `json:"material_name" gorm:"size:200"`
	Color           *string     `json:"color" gorm:"size:64"`
	Size            *string     `json:"size" gorm:"size:20"`
	UnitCode        string      `json:"unit_code" gorm:"size:20"`
	Quantity        float64     `json:"quantity" gorm:"type:decimal(14,2);not null"`
	UnitPrice       float64     `json:"unit_price" gorm:"type:decimal(12,4);not null"`
	TaxRate         float64     `json:"tax_rate" gorm:"type:decimal(6,2);default:0"`
	Amount          float64     `json:"amount" gorm:"type:decimal(15,2);default:0"`
	ReceivedQty     float64     `json:"received_qty" gorm:"type:decimal(14,2);default:0"`
	SortOrder       int         `json:"sort_order" gorm:"default:0"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`

	PurchaseOrder *PurchaseOrder `json:"purchase_order,omitempty" gorm:"foreignKey:PurchaseOrderID"`
}

func (PurchaseOrderLine) TableName() string {
	return "erp_purchase_order_lines"
}

func (l *PurchaseOrderLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = NewID()
	}
	return nil
}
