package repository

import (
	"context"
	"time"

	"github.com/Frankie2101/GSM-sub000/internal/erp/entity"
	"gorm.io/gorm"
)

// ProductionRepository 生产产量仓库
type ProductionRepository struct {
	db *gorm.DB
}

func NewProductionRepository(db *gorm.DB) *ProductionRepository {
	return &ProductionRepository{db: db}
}

// OutputFilter 产量查询/删除条件
type OutputFilter struct {
	SalesOrderID string
	Department   string
	From         *time.Time
	To           *time.Time
}

// IsEmpty reports whether the filter has no condition at all.
func (f OutputFilter) IsEmpty() bool {
	return f.SalesOrderID == "" && f.Department == "" && f.From == nil && f.To == nil
}

func (f OutputFilter) apply(q *gorm.DB) *gorm.DB {
	if f.SalesOrderID != "" {
		q = q.Where("sales_order_id = ?", f.SalesOrderID)
	}
	if f.Department != "" {
		q = q.Where("department = ?", f.Department)
	}
	if f.From != nil {
		q = q.Where("output_date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("output_date <= ?", *f.To)
	}
	return q
}

// OutputTotal is the cumulative output of one (order, style, color, department).
type OutputTotal struct {
	SalesOrderID string
	Style        string
	Color        string
	Department   string
	Quantity     float64
}

// Create 新增产量记录
func (r *ProductionRepository) Create(ctx context.Context, o *entity.ProductionOutput) error {
	return r.db.WithContext(ctx).Create(o).Error
}

// Delete 按条件批量删除，返回删除条数
func (r *ProductionRepository) Delete(ctx context.Context, f OutputFilter) (int64, error) {
	res := f.apply(r.db.WithContext(ctx)).Delete(&entity.ProductionOutput{})
	return res.RowsAffected, res.Error
}

// FindAll 分页查询产量记录
func (r *ProductionRepository) FindAll(ctx context.Context, f OutputFilter, page, pageSize int) ([]entity.ProductionOutput, int64, error) {
	var items []entity.ProductionOutput
	var total int64

	query := f.apply(r.db.WithContext(ctx).Model(&entity.ProductionOutput{}))
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("output_date DESC, created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error
	return items, total, err
}

// TotalsBySalesOrders 按订单/款式/颜色/工段汇总累计产量
func (r *ProductionRepository) TotalsBySalesOrders(ctx context.Context, salesOrderIDs []string) ([]OutputTotal, error) {
	var totals []OutputTotal
	if len(salesOrderIDs) == 0 {
		return totals, nil
	}
	err := r.db.WithContext(ctx).
		Model(&entity.ProductionOutput{}).
		Select("sales_order_id, style, color, department, SUM(quantity) AS quantity").
		Where("sales_order_id IN ?", salesOrderIDs).
		Group("sales_order_id, style, color, department").
		Scan(&totals).Error
	return totals, err
}

// Since 查询某时间点之后的全部产量记录
func (r *ProductionRepository) Since(ctx context.Context, from time.Time) ([]entity.ProductionOutput, error) {
	var items []entity.ProductionOutput
	err := r.db.WithContext(ctx).
		Where("output_date >= ?", from).
		Order("output_date ASC").
		Find(&items).Error
	return items, err
}

// ForSalesOrders 查询指定订单在某工段的全部产量记录
func (r *ProductionRepository) ForSalesOrders(ctx context.Context, salesOrderIDs []string, department string) ([]entity.ProductionOutput, error) {
	var items []entity.ProductionOutput
	if len(salesOrderIDs) == 0 {
		return items, nil
	}
	err := r.db.WithContext(ctx).
		Where("sales_order_id IN ? AND department = ?", salesOrderIDs, department).
		Order("output_date ASC").
		Find(&items).Error
	return items, err
}
