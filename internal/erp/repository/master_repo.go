package repository

import (
	"context"
	"fmt"

	"github.com/Frankie2101/GSM-sub000/internal/erp/entity"
	"gorm.io/gorm"
)

// MasterRepository 主数据只读查询（面料、辅料、供应商、单位、物料组、BOM模板）
type MasterRepository struct {
	db *gorm.DB
}

func NewMasterRepository(db *gorm.DB) *MasterRepository {
	return &MasterRepository{db: db}
}

// MaterialInfo is the master data of a fabric or trim flattened for BOM lines.
type MaterialInfo struct {
	Ref             entity.MaterialRef
	Code            string
	Name            string
	MaterialGroupID string
	UnitID          string
	UnitCode        string
	SupplierID      *string
	SupplierName    string
	Currency        string
	TaxRate         float64
}

// FindSupplier 根据ID查找供应商
func (r *MasterRepository) FindSupplier(ctx context.Context, id string) (*entity.Supplier, error) {
	var s entity.Supplier
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// FindFabric 根据ID查找面料
func (r *MasterRepository) FindFabric(ctx context.Context, id string) (*entity.Fabric, error) {
	var f entity.Fabric
	err := r.db.WithContext(ctx).
		Preload("Unit").
		Preload("Supplier").
		Where("id = ?", id).
		First(&f).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

// FindTrim 根据ID查找辅料
func (r *MasterRepository) FindTrim(ctx context.Context, id string) (*entity.Trim, error) {
	var t entity.Trim
	err := r.db.WithContext(ctx).
		Preload("Unit").
		Preload("Supplier").
		Where("id = ?", id).
		First(&t).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// FindTemplate 查找BOM模板（行按序号排列）
func (r *MasterRepository) FindTemplate(ctx context.Context, id string) (*entity.BOMTemplate, error) {
	var t entity.BOMTemplate
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Where("id = ?", id).
		First(&t).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// ResolveMaterial looks up the concrete material behind ref.
func (r *MasterRepository) ResolveMaterial(ctx context.Context, ref entity.MaterialRef) (*MaterialInfo, error) {
	switch ref.Kind {
	case entity.MaterialKindFabric:
		f, err := r.FindFabric(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return buildMaterialInfo(ref, f.Code, f.Name, f.MaterialGroupID, f.UnitID, f.Unit, f.SupplierID, f.Supplier), nil
	case entity.MaterialKindTrim:
		t, err := r.FindTrim(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return buildMaterialInfo(ref, t.Code, t.Name, t.MaterialGroupID, t.UnitID, t.Unit, t.SupplierID, t.Supplier), nil
	default:
		return nil, fmt.Errorf("unknown material kind %q", ref.Kind)
	}
}

func buildMaterialInfo(ref entity.MaterialRef, code, name, groupID, unitID string, unit *entity.Unit, supplierID *string, supplier *entity.Supplier) *MaterialInfo {
	info := &MaterialInfo{
		Ref:             ref,
		Code:            code,
		Name:            name,
		MaterialGroupID: groupID,
		UnitID:          unitID,
		SupplierID:      supplierID,
	}
	if unit != nil {
		info.UnitCode = unit.Code
	}
	if supplier != nil {
		info.SupplierName = supplier.Name
		info.Currency = supplier.Currency
		info.TaxRate = supplier.TaxRate
	}
	return info
}
