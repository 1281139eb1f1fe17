package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Frankie2101/GSM-sub000/internal/erp/entity"
	"github.com/Frankie2101/GSM-sub000/internal/erp/repository"
	"github.com/Frankie2101/GSM-sub000/internal/metrics"
	"go.uber.org/zap"
)

// ProcurementService 采购服务：从订单BOM生成PO、PO审批流转
type ProcurementService struct {
	dashboardHook
	repos  *repository.Repositories
	logger *zap.Logger
}

func NewProcurementService(repos *repository.Repositories, invalidator DashboardInvalidator, logger *zap.Logger) *ProcurementService {
	return &ProcurementService{dashboardHook: dashboardHook{invalidator}, repos: repos, logger: logger}
}

// GeneratePORequest 从BOM行生成采购订单请求
type GeneratePORequest struct {
	LineIDs     []string   `json:"line_ids" binding:"required"`
	PODate      *time.Time `json:"po_date"`
	ArrivalDate *time.Time `json:"arrival_date"`
	Notes       string     `json:"notes"`
}

// GeneratedPO is the light summary returned for each created purchase order.
type GeneratedPO struct {
	ID           string  `json:"id"`
	PONumber     string  `json:"po_number"`
	SupplierID   string  `json:"supplier_id"`
	SupplierName string  `json:"supplier_name"`
	Currency     string  `json:"currency"`
	LineCount    int     `json:"line_count"`
	TotalAmount  float64 `json:"total_amount"`
}

type GenerateResult struct {
	PurchaseOrders []GeneratedPO `json:"purchase_orders"`
	// AlreadyOrderedLineIDs lists selected lines that were already on an active PO.
	AlreadyOrderedLineIDs []string `json:"already_ordered_line_ids"`
}

type poGroup struct {
	supplierID   string
	supplierName string
	currency     string
	lines        []entity.OrderBOMLine
}

// GenerateFromBOMLines 按(供应商, 币种)分组生成NEW状态采购订单
func (s *ProcurementService) GenerateFromBOMLines(ctx context.Context, salesOrderID string, req *GeneratePORequest, userID string) (*GenerateResult, error) {
	ids := dedupe(req.LineIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no bom lines selected", ErrValidation)
	}

	result := &GenerateResult{PurchaseOrders: []GeneratedPO{}, AlreadyOrderedLineIDs: []string{}}
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		bom, err := tx.BOM.FindBySalesOrder(ctx, salesOrderID)
		if err != nil {
			return fmt.Errorf("find order bom: %w", err)
		}
		found, err := tx.BOM.FindLines(ctx, bom.ID, ids)
		if err != nil {
			return fmt.Errorf("find bom lines: %w", err)
		}
		byID := make(map[string]entity.OrderBOMLine, len(found))
		for _, l := range found {
			byID[l.ID] = l
		}

		var groups []*poGroup
		index := make(map[string]*poGroup)
		for _, id := range ids {
			line, ok := byID[id]
			if !ok {
				return fmt.Errorf("bom line %s: %w", id, ErrNotFound)
			}
			if err := validateForPurchase(&line); err != nil {
				return err
			}
			key := *line.SupplierID + "|" + line.Currency
			g, ok := index[key]
			if !ok {
				g = &poGroup{supplierID: *line.SupplierID, supplierName: line.SupplierName, currency: line.Currency}
				index[key] = g
				groups = append(groups, g)
			}
			g.lines = append(g.lines, line)
		}

		already, err := tx.Purchase.ActiveLineRefs(ctx, ids)
		if err != nil {
			return fmt.Errorf("check existing purchase orders: %w", err)
		}
		if len(already) > 0 {
			result.AlreadyOrderedLineIDs = already
			s.logger.Warn("bom lines already on active purchase orders",
				zap.String("sales_order_id", salesOrderID),
				zap.Strings("line_ids", already))
		}

		poDate := req.PODate
		if poDate == nil {
			today := civilDay(time.Now())
			poDate = &today
		}

		for _, g := range groups {
			code, err := tx.Purchase.GenerateCode(ctx)
			if err != nil {
				return fmt.Errorf("生成PO编码失败: %w", err)
			}

			po := &entity.PurchaseOrder{
				PONumber:     code,
				SupplierID:   g.supplierID,
				SalesOrderID: salesOrderID,
				Currency:     g.currency,
				PODate:       poDate,
				ArrivalDate:  req.ArrivalDate,
				Status:       entity.POStatusNew,
				Notes:        req.Notes,
				CreatedBy:    userID,
			}
			amounts := make([]float64, 0, len(g.lines))
			for i, l := range g.lines {
				amount := LineAmount(l.PurchaseQty, *l.UnitPrice, l.TaxRate)
				amounts = append(amounts, amount)
				po.Lines = append(po.Lines, entity.PurchaseOrderLine{
					OrderBOMLineID: l.ID,
					Material:       l.Material,
					MaterialCode:   l.MaterialCode,
					MaterialName:   l.MaterialName,
					Color:          l.Color,
					Size:           l.Size,
					UnitCode:       l.UnitCode,
					Quantity:       l.PurchaseQty,
					UnitPrice:      *l.UnitPrice,
					TaxRate:        l.TaxRate,
					Amount:         amount,
					SortOrder:      i + 1,
				})
			}
			po.TotalAmount = sumAmounts(amounts)

			if err := tx.Purchase.Create(ctx, po); err != nil {
				return fmt.Errorf("创建PO失败: %w", err)
			}
			result.PurchaseOrders = append(result.PurchaseOrders, GeneratedPO{
				ID:           po.ID,
				PONumber:     po.PONumber,
				SupplierID:   po.SupplierID,
				SupplierName: g.supplierName,
				Currency:     po.Currency,
				LineCount:    len(po.Lines),
				TotalAmount:  po.TotalAmount,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.POsGenerated.Add(float64(len(result.PurchaseOrders)))
	s.invalidate(ctx)
	s.logger.Info("purchase orders generated",
		zap.String("sales_order_id", salesOrderID),
		zap.Int("purchase_orders", len(result.PurchaseOrders)),
		zap.Int("lines", len(ids)),
		zap.String("user_id", userID))
	return result, nil
}

func validateForPurchase(l *entity.OrderBOMLine) error {
	switch {
	case l.SupplierID == nil || *l.SupplierID == "":
		return fmt.Errorf("%w: bom line %d has no supplier", ErrValidation, l.Sequence)
	case l.Currency == "":
		return fmt.Errorf("%w: bom line %d has no currency", ErrValidation, l.Sequence)
	case l.UnitPrice == nil:
		return fmt.Errorf("%w: bom line %d has no unit price", ErrValidation, l.Sequence)
	case l.PurchaseQty <= 0:
		return fmt.Errorf("%w: bom line %d has no purchase quantity", ErrValidation, l.Sequence)
	}
	return nil
}

// === 采购订单(PO) ===

// ListPOs 获取PO列表
func (s *ProcurementService) ListPOs(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.PurchaseOrder, int64, error) {
	return s.repos.Purchase.FindAll(ctx, page, pageSize, filters)
}

// GetPO 获取PO详情
func (s *ProcurementService) GetPO(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	po, err := s.repos.Purchase.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find purchase order %s: %w", id, err)
	}
	return po, nil
}

// Submit NEW/REJECTED -> SUBMITTED
func (s *ProcurementService) Submit(ctx context.Context, id, userID string) (*entity.PurchaseOrder, error) {
	return s.transition(ctx, id, entity.POStatusSubmitted, userID)
}

// Approve SUBMITTED -> APPROVED
func (s *ProcurementService) Approve(ctx context.Context, id, userID string) (*entity.PurchaseOrder, error) {
	return s.transition(ctx, id, entity.POStatusApproved, userID)
}

// Reject SUBMITTED -> REJECTED
func (s *ProcurementService) Reject(ctx context.Context, id, userID string) (*entity.PurchaseOrder, error) {
	return s.transition(ctx, id, entity.POStatusRejected, userID)
}

// transition performs a guarded single-row status write. When the guard does
// not match, the PO is read back to tell a missing order from a wrong status.
func (s *ProcurementService) transition(ctx context.Context, id, target, userID string) (*entity.PurchaseOrder, error) {
	now := time.Now()
	updates := map[string]interface{}{
		"status":     target,
		"updated_at": now,
	}
	switch target {
	case entity.POStatusSubmitted:
		updates["submitted_at"] = now
	case entity.POStatusApproved:
		updates["approved_by"] = userID
		updates["approved_at"] = now
	}

	n, err := s.repos.Purchase.TransitionStatus(ctx, id, entity.POSourceStatuses(target), updates)
	if err != nil {
		return nil, fmt.Errorf("update purchase order status: %w", err)
	}
	if n == 0 {
		po, err := s.repos.Purchase.FindByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("find purchase order %s: %w", id, err)
		}
		return nil, fmt.Errorf("%w: purchase order %s is %s and cannot move to %s",
			ErrInvalidState, po.PONumber, po.Status, target)
	}

	metrics.POTransitions.WithLabelValues(target).Inc()
	s.invalidate(ctx)
	s.logger.Info("purchase order status changed",
		zap.String("po_id", id),
		zap.String("status", target),
		zap.String("user_id", userID))

	return s.GetPO(ctx, id)
}

// UpdatePORequest 更新采购订单请求
type UpdatePORequest struct {
	PODate      *time.Time     `json:"po_date"`
	ArrivalDate *time.Time     `json:"arrival_date"`
	Notes       *string        `json:"notes"`
	Lines       []UpdatePOLine `json:"lines"`
}

type UpdatePOLine struct {
	ID        string   `json:"id" binding:"required"`
	Quantity  *float64 `json:"quantity"`
	UnitPrice *float64 `json:"unit_price"`
	TaxRate   *float64 `json:"tax_rate"`
}

// UpdatePO 更新采购订单（仅NEW/REJECTED）
func (s *ProcurementService) UpdatePO(ctx context.Context, id string, req *UpdatePORequest) (*entity.PurchaseOrder, error) {
	for _, l := range req.Lines {
		if (l.Quantity != nil && *l.Quantity <= 0) ||
			(l.UnitPrice != nil && *l.UnitPrice < 0) ||
			(l.TaxRate != nil && *l.TaxRate < 0) {
			return nil, fmt.Errorf("%w: invalid quantity, price or tax on line %s", ErrValidation, l.ID)
		}
	}

	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		po, err := tx.Purchase.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("find purchase order %s: %w", id, err)
		}
		if !po.IsEditable() {
			return fmt.Errorf("%w: purchase order %s is %s", ErrInvalidState, po.PONumber, po.Status)
		}

		if req.PODate != nil {
			po.PODate = req.PODate
		}
		if req.ArrivalDate != nil {
			po.ArrivalDate = req.ArrivalDate
		}
		if req.Notes != nil {
			po.Notes = *req.Notes
		}

		lines := make(map[string]*entity.PurchaseOrderLine, len(po.Lines))
		for i := range po.Lines {
			lines[po.Lines[i].ID] = &po.Lines[i]
		}
		changed := make([]*entity.PurchaseOrderLine, 0, len(req.Lines))
		for _, ul := range req.Lines {
			line, ok := lines[ul.ID]
			if !ok {
				return fmt.Errorf("purchase order line %s: %w", ul.ID, ErrNotFound)
			}
			if ul.Quantity != nil {
				line.Quantity = *ul.Quantity
			}
			if ul.UnitPrice != nil {
				line.UnitPrice = *ul.UnitPrice
			}
			if ul.TaxRate != nil {
				line.TaxRate = *ul.TaxRate
			}
			line.Amount = LineAmount(line.Quantity, line.UnitPrice, line.TaxRate)
			changed = append(changed, line)
		}

		amounts := make([]float64, 0, len(po.Lines))
		for _, l := range po.Lines {
			amounts = append(amounts, l.Amount)
		}
		po.TotalAmount = sumAmounts(amounts)

		// 表头写入带状态条件，读之后被提交/审批的PO不会被改回
		n, err := tx.Purchase.UpdateEditableHeader(ctx, po)
		if err != nil {
			return fmt.Errorf("update purchase order: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: purchase order %s is no longer editable", ErrInvalidState, po.PONumber)
		}
		for _, line := range changed {
			if err := tx.Purchase.UpdateLine(ctx, line); err != nil {
				return fmt.Errorf("update purchase order line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return s.GetPO(ctx, id)
}

// DeletePO 删除采购订单（仅NEW/REJECTED）
func (s *ProcurementService) DeletePO(ctx context.Context, id, userID string) error {
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		po, err := tx.Purchase.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("find purchase order %s: %w", id, err)
		}
		if !po.IsEditable() {
			return fmt.Errorf("%w: purchase order %s is %s", ErrInvalidState, po.PONumber, po.Status)
		}
		n, err := tx.Purchase.DeleteEditable(ctx, id)
		if err != nil {
			return fmt.Errorf("delete purchase order: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: purchase order %s is no longer editable", ErrInvalidState, po.PONumber)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	s.logger.Info("purchase order deleted", zap.String("po_id", id), zap.String("user_id", userID))
	return nil
}

// ReceiveItemRequest 收货请求
type ReceiveItemRequest struct {
	ReceivedQty float64 `json:"received_qty" binding:"required"`
}

// ReceiveLine 收货，仅已审批的PO
func (s *ProcurementService) ReceiveLine(ctx context.Context, poID, lineID string, qty float64, userID string) (*entity.PurchaseOrderLine, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: received quantity must be positive", ErrValidation)
	}

	var line *entity.PurchaseOrderLine
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		po, err := tx.Purchase.FindByID(ctx, poID)
		if err != nil {
			return fmt.Errorf("find purchase order %s: %w", poID, err)
		}
		if po.Status != entity.POStatusApproved {
			return fmt.Errorf("%w: purchase order %s is %s, only approved orders can be received",
				ErrInvalidState, po.PONumber, po.Status)
		}
		if _, err := tx.Purchase.FindLine(ctx, poID, lineID); err != nil {
			return fmt.Errorf("find purchase order line %s: %w", lineID, err)
		}
		if err := tx.Purchase.AddReceived(ctx, lineID, qty); err != nil {
			return fmt.Errorf("receive purchase order line: %w", err)
		}
		line, err = tx.Purchase.FindLine(ctx, poID, lineID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("purchase order line received",
		zap.String("po_id", poID),
		zap.String("line_id", lineID),
		zap.Float64("qty", qty),
		zap.String("user_id", userID))
	return line, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
