package entity

import (
	"time"

	"gorm.io/gorm"
)

// BOMTemplate 按产品类别维护的可复用BOM模板
type BOMTemplate struct {
	ID              string    `json:"id" gorm:"primaryKey;size:32"`
	Code            string    `json:"code" gorm:"size:50;not null;uniqueIndex"`
	Name            string    `json:"name" gorm:"size:200;not null"`
	ProductCategory string    `json:"product_category" gorm:"size:100;index"`
	Notes           string    `json:"notes" gorm:"type:text"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Lines []BOMTemplateLine `json:"lines,omitempty" gorm:"foreignKey:TemplateID"`
}

func (BOMTemplate) TableName() string {
	return "erp_bom_templates"
}

// BOMTemplateLine 模板行
type BOMTemplateLine struct {
	ID           string      `json:"id" gorm:"primaryKey;size:32"`
	TemplateID   string      `json:"template_id" gorm:"size:32;not null;index"`
	Sequence     int         `json:"sequence" gorm:"not null"`
	Material     MaterialRef `json:"material" gorm:"embedded"`
	Usage        float64     `json:"usage" gorm:"type:decimal(12,4);not null"`
	WastePercent float64     `json:"waste_percent" gorm:"type:decimal(6,2);default:0"`
}

func (BOMTemplateLine) TableName() string {
	return "erp_bom_template_lines"
}

// OrderBOM 销售订单BOM，与销售订单一对一
type OrderBOM struct {
	ID           string  `json:"id" gorm:"primaryKey;size:32"`
	SalesOrderID string  `json:"sales_order_id" gorm:"size:32;not null;uniqueIndex"`
	TemplateID   *string `json:"template_id" gorm:"size:32"`
	// OrderQtySnapshot is the order total the demand quantities were computed from.
	OrderQtySnapshot float64   `json:"order_qty_snapshot" gorm:"type:decimal(12,2);default:0"`
	CreatedBy        string    `json:"created_by" gorm:"size:64"`
	UpdatedBy        string    `json:"updated_by" gorm:"size:64"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	Lines []OrderBOMLine `json:"lines" gorm:"foreignKey:OrderBOMID"`
}

func (OrderBOM) TableName() string {
	return "erp_order_boms"
}

func (b *OrderBOM) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = NewID()
	}
	return nil
}

// OrderBOMLine 订单BOM行
type OrderBOMLine struct {
	ID              string      `json:"id" gorm:"primaryKey;size:32"`
	OrderBOMID      string      `json:"order_bom_id" gorm:"size:32;not null;index"`
	Sequence        int         `json:"sequence" gorm:"not null"`
	Material        MaterialRef `json:"material" gorm:"embedded"`
	MaterialCode    string      `json:"material_code" gorm:"size:50"`
	MaterialName    string      `json:"material_name" gorm:"size:200"`
	MaterialGroupID string      `json:"material_group_id" gorm:"size:32"`
	Color           *string     `json:"color" gorm:"size:64"`
	Size            *string     `json:"size" gorm:"size:20"`
	UnitID          string      `json:"unit_id" gorm:"size:32"`
	UnitCode        string      `json:"unit_code" gorm:"size:20"`
	SupplierID      *string     `json:"supplier_id" gorm:"size:32;index"`
	SupplierName    string      `json:"supplier_name" gorm:"size:200"`
	UnitPrice       *float64    `json:"unit_price" gorm:"type:decimal(12,4)"`
	Currency        string      `json:"currency" gorm:"size:10"`
	TaxRate         float64     `json:"tax_rate" gorm:"type:decimal(6,2);default:0"`
	Usage           float64     `json:"usage" gorm:"type:decimal(12,4);not null"`
	WastePercent    float64     `json:"waste_percent" gorm:"type:decimal(6,2);default:0"`
	DemandQty       float64     `json:"demand_qty" gorm:"type:decimal(14,2);default:0"`
	PurchaseQty     float64     `json:"purchase_qty" gorm:"type:decimal(14,2);default:0"`
	// PurchaseQtyOverride marks a purchase quantity typed in by the operator.
	PurchaseQtyOverride bool      `json:"purchase_qty_override" gorm:"default:false"`
	InventoryQty        float64   `json:"inventory_qty" gorm:"type:decimal(14,2);default:0"`
	Notes               string    `json:"notes" gorm:"type:text"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (OrderBOMLine) TableName() string {
	return "erp_order_bom_lines"
}

func (l *OrderBOMLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = NewID()
	}
	return nil
}

func (t *BOMTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = NewID()
	}
	return nil
}

func (l *BOMTemplateLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = NewID()
	}
	return nil
}
