package repository

import (
	"context"

	"github.com/Frankie2101/GSM-sub000/internal/erp/entity"
	"gorm.io/gorm"
)

type SalesRepository struct {
	db *gorm.DB
}

func NewSalesRepository(db *gorm.DB) *SalesRepository {
	return &SalesRepository{db: db}
}

// FindByID 查找销售订单（含明细）
func (r *SalesRepository) FindByID(ctx context.Context, id string) (*entity.SalesOrder, error) {
	var so entity.SalesOrder
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("id = ?", id).
		First(&so).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &so, nil
}

// ListByStatus 按状态查询销售订单（含明细）
func (r *SalesRepository) ListByStatus(ctx context.Context, statuses ...string) ([]entity.SalesOrder, error) {
	var orders []entity.SalesOrder
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("style ASC, color ASC, size ASC")
		}).
		Where("status IN ?", statuses).
		Order("so_code ASC").
		Find(&orders).Error
	return orders, err
}

// Exists 判断销售订单是否存在
func (r *SalesRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.SalesOrder{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}
