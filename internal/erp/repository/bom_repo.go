package repository

import (
	"context"

	"github.com/Frankie2101/GSM-sub000/internal/erp/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BOMRepository 订单BOM仓库
type BOMRepository struct {
	db *gorm.DB
}

func NewBOMRepository(db *gorm.DB) *BOMRepository {
	return &BOMRepository{db: db}
}

// FindBySalesOrder 查找销售订单的BOM（行按序号排列）
func (r *BOMRepository) FindBySalesOrder(ctx context.Context, salesOrderID string) (*entity.OrderBOM, error) {
	var bom entity.OrderBOM
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Where("sales_order_id = ?", salesOrderID).
		First(&bom).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &bom, nil
}

// FindBySalesOrders 批量查找BOM（含行）
func (r *BOMRepository) FindBySalesOrders(ctx context.Context, salesOrderIDs []string) ([]entity.OrderBOM, error) {
	var boms []entity.OrderBOM
	if len(salesOrderIDs) == 0 {
		return boms, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Where("sales_order_id IN ?", salesOrderIDs).
		Find(&boms).Error
	return boms, err
}

// CreateHeader 创建BOM表头（不含行）
func (r *BOMRepository) CreateHeader(ctx context.Context, bom *entity.OrderBOM) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(bom).Error
}

// UpdateHeader 更新BOM表头（不含行）
func (r *BOMRepository) UpdateHeader(ctx context.Context, bom *entity.OrderBOM) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(bom).Error
}

// CreateLine 新增BOM行
func (r *BOMRepository) CreateLine(ctx context.Context, line *entity.OrderBOMLine) error {
	return r.db.WithContext(ctx).Create(line).Error
}

// UpdateLine 更新BOM行
func (r *BOMRepository) UpdateLine(ctx context.Context, line *entity.OrderBOMLine) error {
	return r.db.WithContext(ctx).Save(line).Error
}

// DeleteLines 删除BOM行
func (r *BOMRepository) DeleteLines(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&entity.OrderBOMLine{}).Error
}

// FindLines 查找属于指定BOM的行
func (r *BOMRepository) FindLines(ctx context.Context, bomID string, ids []string) ([]entity.OrderBOMLine, error) {
	var lines []entity.OrderBOMLine
	if len(ids) == 0 {
		return lines, nil
	}
	err := r.db.WithContext(ctx).
		Where("order_bom_id = ? AND id IN ?", bomID, ids).
		Order("sequence ASC").
		Find(&lines).Error
	return lines, err
}

// LinesReferencedByPO returns the subset of ids that have at least one purchase order line.
func (r *BOMRepository) LinesReferencedByPO(ctx context.Context, ids []string) ([]string, error) {
	var referenced []string
	if len(ids) == 0 {
		return referenced, nil
	}
	err := r.db.WithContext(ctx).
		Model(&entity.PurchaseOrderLine{}).
		Distinct("order_bom_line_id").
		Where("order_bom_line_id IN ?", ids).
		Pluck("order_bom_line_id", &referenced).Error
	return referenced, err
}
