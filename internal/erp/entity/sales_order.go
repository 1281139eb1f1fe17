package entity

import (
	"time"

	"gorm.io/gorm"
)

// SalesOrderStatus 销售订单状态
const (
	SOStatusNew        = "NEW"
	SOStatusInProgress = "IN_PROGRESS"
	SOStatusShipped    = "SHIPPED"
	SOStatusCancelled  = "CANCELLED"
)

// SalesOrder 销售订单
type SalesOrder struct {
	ID                  string     `json:"id" gorm:"primaryKey;size:32"`
	SOCode              string     `json:"so_code" gorm:"size:50;not null;uniqueIndex"`
	CustomerID          string     `json:"customer_id" gorm:"size:32;not null;index"`
	Status              string     `json:"status" gorm:"size:20;not null;default:NEW;index"`
	OrderDate           *time.Time `json:"order_date"`
	ShipDate            *time.Time `json:"ship_date"`
	ProductionStartDate *time.Time `json:"production_start_date"`
	ProductionEndDate   *time.Time `json:"production_end_date"`
	Notes               string     `json:"notes" gorm:"type:text"`
	CreatedBy           string     `json:"created_by" gorm:"size:64"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`

	Customer *Customer        `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	Lines    []SalesOrderLine `json:"lines,omitempty" gorm:"foreignKey:SalesOrderID"`
}

func (SalesOrder) TableName() string {
	return "erp_sales_orders"
}

func (so *SalesOrder) BeforeCreate(tx *gorm.DB) error {
	if so.ID == "" {
		so.ID = NewID()
	}
	return nil
}

// TotalOrderedQty sums the order quantity of every line.
func (so *SalesOrder) TotalOrderedQty() float64 {
	var total float64
	for _, l := range so.Lines {
		total += l.Quantity
	}
	return total
}

// SalesOrderLine 销售订单明细，一行对应一个款式/颜色/尺码
type SalesOrderLine struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	SalesOrderID string    `json:"sales_order_id" gorm:"size:32;not null;index"`
	ProductID    string    `json:"product_id" gorm:"size:32;not null"`
	Style        string    `json:"style" gorm:"size:64;not null"`
	Color        string    `json:"color" gorm:"size:64;not null"`
	Size         string    `json:"size" gorm:"size:20"`
	Quantity     float64   `json:"quantity" gorm:"type:decimal(12,2);not null"`
	ShippedQty   float64   `json:"shipped_qty" gorm:"type:decimal(12,2);default:0"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (SalesOrderLine) TableName() string {
	return "erp_sales_order_lines"
}

func (l *SalesOrderLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = NewID()
	}
	return nil
}
