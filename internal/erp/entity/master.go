package entity

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Material kinds
const (
	MaterialKindFabric = "FABRIC"
	MaterialKindTrim   = "TRIM"
)

// MaterialRef points at exactly one concrete material master record.
// It is stored as two columns (material_kind, material_id) on every table that embeds it.
type MaterialRef struct {
	Kind string `json:"kind" gorm:"column:material_kind;size:10;not null"`
	ID   string `json:"id" gorm:"column:material_id;size:32;not null;index"`
}

func FabricRef(id string) MaterialRef { return MaterialRef{Kind: MaterialKindFabric, ID: id} }

func TrimRef(id string) MaterialRef { return MaterialRef{Kind: MaterialKindTrim, ID: id} }

func (m MaterialRef) IsFabric() bool { return m.Kind == MaterialKindFabric }

func (m MaterialRef) IsTrim() bool { return m.Kind == MaterialKindTrim }

// Validate checks the kind tag and that an ID is present.
func (m MaterialRef) Validate() error {
	if m.Kind != MaterialKindFabric && m.Kind != MaterialKindTrim {
		return fmt.Errorf("unknown material kind %q", m.Kind)
	}
	if m.ID == "" {
		return fmt.Errorf("material is required")
	}
	return nil
}

func (m MaterialRef) String() string {
	return m.Kind + ":" + m.ID
}

// Supplier 供应商
type Supplier struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Code      string    `json:"code" gorm:"size:50;not null;uniqueIndex"`
	Name      string    `json:"name" gorm:"size:200;not null"`
	Currency  string    `json:"currency" gorm:"size:10;not null;default:USD"`
	TaxRate   float64   `json:"tax_rate" gorm:"type:decimal(6,2);default:0"`
	Status    string    `json:"status" gorm:"size:20;not null;default:active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Supplier) TableName() string {
	return "erp_suppliers"
}

// Unit 计量单位
type Unit struct {
	ID   string `json:"id" gorm:"primaryKey;size:32"`
	Code string `json:"code" gorm:"size:20;not null;uniqueIndex"`
	Name string `json:"name" gorm:"size:50"`
}

func (Unit) TableName() string {
	return "erp_units"
}

// MaterialGroup 物料组
type MaterialGroup struct {
	ID   string `json:"id" gorm:"primaryKey;size:32"`
	Code string `json:"code" gorm:"size:50;not null;uniqueIndex"`
	Name string `json:"name" gorm:"size:100;not null"`
	Kind string `json:"kind" gorm:"size:10;not null"`
}

func (MaterialGroup) TableName() string {
	return "erp_material_groups"
}

// Fabric 面料
type Fabric struct {
	ID              string    `json:"id" gorm:"primaryKey;size:32"`
	Code            string    `json:"code" gorm:"size:50;not null;uniqueIndex"`
	Name            string    `json:"name" gorm:"size:200;not null"`
	Composition     string    `json:"composition" gorm:"size:200"`
	Width           float64   `json:"width" gorm:"type:decimal(8,2);default:0"`
	MaterialGroupID string    `json:"material_group_id" gorm:"size:32;not null;index"`
	UnitID          string    `json:"unit_id" gorm:"size:32;not null"`
	SupplierID      *string   `json:"supplier_id" gorm:"size:32"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	MaterialGroup *MaterialGroup `json:"material_group,omitempty" gorm:"foreignKey:MaterialGroupID"`
	Unit          *Unit          `json:"unit,omitempty" gorm:"foreignKey:UnitID"`
	Supplier      *Supplier      `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
}

func (Fabric) TableName() string {
	return "erp_fabrics"
}

// Trim 辅料
type Trim struct {
	ID              string    `json:"id" gorm:"primaryKey;size:32"`
	Code            string    `json:"code" gorm:"size:50;not null;uniqueIndex"`
	Name            string    `json:"name" gorm:"size:200;not null"`
	Specification   string    `json:"specification" gorm:"size:500"`
	MaterialGroupID string    `json:"material_group_id" gorm:"size:32;not null;index"`
	UnitID          string    `json:"unit_id" gorm:"size:32;not null"`
	SupplierID      *string   `json:"supplier_id" gorm:"size:32"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	MaterialGroup *MaterialGroup `json:"material_group,omitempty" gorm:"foreignKey:MaterialGroupID"`
	Unit          *Unit          `json:"unit,omitempty" gorm:"foreignKey:UnitID"`
	Supplier      *Supplier      `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
}

func (Trim) TableName() string {
	return "erp_trims"
}

// Customer 客户
type Customer struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Code      string    `json:"code" gorm:"size:50;not null;uniqueIndex"`
	Name      string    `json:"name" gorm:"size:200;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Customer) TableName() string {
	return "erp_customers"
}

func (s *Supplier) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = NewID()
	}
	return nil
}

func (f *Fabric) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = NewID()
	}
	return nil
}

func (t *Trim) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = NewID()
	}
	return nil
}

func (u *Unit) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = NewID()
	}
	return nil
}

func (g *MaterialGroup) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = NewID()
	}
	return nil
}

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = NewID()
	}
	return nil
}
