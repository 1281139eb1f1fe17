package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Frankie2101/GSM-sub000/internal/erp/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PurchaseRepository 采购订单仓库
type PurchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

// FindAll 查询采购订单列表
func (r *PurchaseRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.PurchaseOrder, int64, error) {
	var items []entity.PurchaseOrder
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.PurchaseOrder{})

	if supplierID := filters["supplier_id"]; supplierID != "" {
		query = query.Where("supplier_id = ?", supplierID)
	}
	if soID := filters["sales_order_id"]; soID != "" {
		query = query.Where("sales_order_id = ?", soID)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("po_number LIKE ?", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Supplier").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找采购订单（含行项）
func (r *PurchaseRepository) FindByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("Supplier").
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("id = ?", id).
		First(&po).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &po, nil
}

// Create 创建采购订单（含行项）
func (r *PurchaseRepository) Create(ctx context.Context, po *entity.PurchaseOrder) error {
	return r.db.WithContext(ctx).Omit("Supplier").Create(po).Error
}

// editableStatuses 允许编辑和删除的状态
var editableStatuses = []string{entity.POStatusNew, entity.POStatusRejected}

// UpdateEditableHeader writes the editable header fields only while the PO is
// still NEW or REJECTED. Status is never written here; a zero count means the
// guard did not match.
func (r *PurchaseRepository) UpdateEditableHeader(ctx context.Context, po *entity.PurchaseOrder) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.PurchaseOrder{}).
		Where("id = ? AND status IN ?", po.ID, editableStatuses).
		Updates(map[string]interface{}{
			"po_date":      po.PODate,
			"arrival_date": po.ArrivalDate,
			"notes":        po.Notes,
			"total_amount": po.TotalAmount,
			"updated_at":   time.Now(),
		})
	return res.RowsAffected, res.Error
}

// UpdateLine 更新采购订单行
func (r *PurchaseRepository) UpdateLine(ctx context.Context, line *entity.PurchaseOrderLine) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(line).Error
}

// DeleteEditable 删除NEW/REJECTED状态的采购订单及行项，返回删除的表头数
func (r *PurchaseRepository) DeleteEditable(ctx context.Context, id string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status IN ?", id, editableStatuses).
		Delete(&entity.PurchaseOrder{})
	if res.Error != nil || res.RowsAffected == 0 {
		return res.RowsAffected, res.Error
	}
	if err := r.db.WithContext(ctx).Where("purchase_order_id = ?", id).Delete(&entity.PurchaseOrderLine{}).Error; err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

// TransitionStatus moves a PO to a new status only when its current status is
// one of from. The returned count is zero when the guard did not match.
func (r *PurchaseRepository) TransitionStatus(ctx context.Context, id string, from []string, updates map[string]interface{}) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.PurchaseOrder{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// FindLine 查找PO行项
func (r *PurchaseRepository) FindLine(ctx context.Context, poID, lineID string) (*entity.PurchaseOrderLine, error) {
	var line entity.PurchaseOrderLine
	err := r.db.WithContext(ctx).
		Where("id = ? AND purchase_order_id = ?", lineID, poID).
		First(&line).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &line, nil
}

// AddReceived 累加行项收货数量
func (r *PurchaseRepository) AddReceived(ctx context.Context, lineID string, qty float64) error {
	return r.db.WithContext(ctx).
		Model(&entity.PurchaseOrderLine{}).
		Where("id = ?", lineID).
		UpdateColumn("received_qty", gorm.Expr("received_qty + ?", qty)).Error
}

// ActiveLineRefs returns the BOM line ids among ids already referenced by a
// line on a purchase order that is not rejected.
func (r *PurchaseRepository) ActiveLineRefs(ctx context.Context, ids []string) ([]string, error) {
	var refs []string
	if len(ids) == 0 {
		return refs, nil
	}
	err := r.db.WithContext(ctx).
		Model(&entity.PurchaseOrderLine{}).
		Joins("JOIN erp_purchase_orders ON erp_purchase_orders.id = erp_purchase_order_lines.purchase_order_id").
		Where("erp_purchase_order_lines.order_bom_line_id IN ?", ids).
		Where("erp_purchase_orders.status <> ?", entity.POStatusRejected).
		Distinct("erp_purchase_order_lines.order_bom_line_id").
		Pluck("erp_purchase_order_lines.order_bom_line_id", &refs).Error
	return refs, err
}

// LinesForBOMLines 查找引用指定BOM行的PO行（含所属PO）
func (r *PurchaseRepository) LinesForBOMLines(ctx context.Context, bomLineIDs []string) ([]entity.PurchaseOrderLine, error) {
	var lines []entity.PurchaseOrderLine
	if len(bomLineIDs) == 0 {
		return lines, nil
	}
	err := r.db.WithContext(ctx).
		Preload("PurchaseOrder").
		Where("order_bom_line_id IN ?", bomLineIDs).
		Find(&lines).Error
	return lines, err
}

// GenerateCode 生成PO编码 PO-{year}-{4位}
func (r *PurchaseRepository) GenerateCode(ctx context.Context) (string, error) {
	year := time.Now().Format("2006")
	prefix := fmt.Sprintf("PO-%s-", year)

	// 按长度再按字典序取最大，9999 之后的 10000 才能排在前面
	var codes []string
	err := r.db.WithContext(ctx).
		Model(&entity.PurchaseOrder{}).
		Where("po_number LIKE ?", prefix+"%").
		Order("LENGTH(po_number) DESC, po_number DESC").
		Limit(1).
		Pluck("po_number", &codes).Error
	if err != nil {
		return "", err
	}
	var maxCode string
	if len(codes) > 0 {
		maxCode = codes[0]
	}

	seq := 1
	if maxCode != "" {
		var lastSeq int
		if _, err := fmt.Sscanf(maxCode[len(prefix):], "%d", &lastSeq); err == nil {
			seq = lastSeq + 1
		}
	}
	return fmt.Sprintf("%s%04d", prefix, seq), nil
}
