package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Frankie2101/GSM-sub000/internal/erp/entity"
	"github.com/Frankie2101/GSM-sub000/internal/erp/repository"
	"github.com/Frankie2101/GSM-sub000/internal/metrics"
	"go.uber.org/zap"
)

// BOMService 订单BOM服务：模板展开、保存、重算
type BOMService struct {
	dashboardHook
	repos  *repository.Repositories
	logger *zap.Logger
}

func NewBOMService(repos *repository.Repositories, invalidator DashboardInvalidator, logger *zap.Logger) *BOMService {
	return &BOMService{dashboardHook: dashboardHook{invalidator}, repos: repos, logger: logger}
}

// Materialize expands a BOM template against the sales order's current total
// quantity. Nothing is persisted.
func (s *BOMService) Materialize(ctx context.Context, salesOrderID, templateID string) (*entity.OrderBOM, error) {
	so, err := s.repos.Sales.FindByID(ctx, salesOrderID)
	if err != nil {
		return nil, fmt.Errorf("find sales order %s: %w", salesOrderID, err)
	}
	tpl, err := s.repos.Master.FindTemplate(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("find bom template %s: %w", templateID, err)
	}

	total := so.TotalOrderedQty()
	lines, err := materializeLines(ctx, s.repos.Master, total, tpl)
	if err != nil {
		return nil, err
	}

	metrics.BOMMaterializations.WithLabelValues("preview").Inc()
	return &entity.OrderBOM{
		SalesOrderID:     so.ID,
		TemplateID:       &tpl.ID,
		OrderQtySnapshot: total,
		Lines:            lines,
	}, nil
}

func materializeLines(ctx context.Context, master *repository.MasterRepository, total float64, tpl *entity.BOMTemplate) ([]entity.OrderBOMLine, error) {
	lines := make([]entity.OrderBOMLine, 0, len(tpl.Lines))
	for _, tl := range tpl.Lines {
		if err := tl.Material.Validate(); err != nil {
			return nil, fmt.Errorf("%w: template line %d: %v", ErrValidation, tl.Sequence, err)
		}
		info, err := master.ResolveMaterial(ctx, tl.Material)
		if err != nil {
			return nil, fmt.Errorf("resolve material %s: %w", tl.Material, err)
		}

		demand := DemandQuantity(total, tl.Usage, tl.WastePercent)
		line := entity.OrderBOMLine{
			Sequence:     tl.Sequence,
			Material:     tl.Material,
			Usage:        tl.Usage,
			WastePercent: tl.WastePercent,
			DemandQty:    demand,
			PurchaseQty:  PurchaseQuantity(demand, 0),
		}
		applyMaterialInfo(&line, info)
		lines = append(lines, line)
	}
	return lines, nil
}

// applyMaterialInfo copies master-data display fields onto the line. The
// material group always comes from the resolved material.
func applyMaterialInfo(line *entity.OrderBOMLine, info *repository.MaterialInfo) {
	line.MaterialCode = info.Code
	line.MaterialName = info.Name
	line.MaterialGroupID = info.MaterialGroupID
	line.UnitID = info.UnitID
	line.UnitCode = info.UnitCode
	line.SupplierID = info.SupplierID
	line.SupplierName = info.SupplierName
	line.Currency = info.Currency
	line.TaxRate = info.TaxRate
}

// GetOrCreate 获取订单BOM，首次访问时创建空表头
func (s *BOMService) GetOrCreate(ctx context.Context, salesOrderID, userID string) (*entity.OrderBOM, error) {
	bom, err := s.repos.BOM.FindBySalesOrder(ctx, salesOrderID)
	if err == nil {
		return bom, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("find order bom: %w", err)
	}

	so, err := s.repos.Sales.FindByID(ctx, salesOrderID)
	if err != nil {
		return nil, fmt.Errorf("find sales order %s: %w", salesOrderID, err)
	}
	bom = &entity.OrderBOM{
		SalesOrderID:     so.ID,
		OrderQtySnapshot: so.TotalOrderedQty(),
		CreatedBy:        userID,
		UpdatedBy:        userID,
		Lines:            []entity.OrderBOMLine{},
	}
	if err := s.repos.BOM.CreateHeader(ctx, bom); err != nil {
		return nil, fmt.Errorf("create order bom: %w", err)
	}
	return bom, nil
}

// SaveBOMRequest 保存订单BOM请求（整体替换行集合）
type SaveBOMRequest struct {
	TemplateID *string       `json:"template_id"`
	Lines      []SaveBOMLine `json:"lines"`
}

type SaveBOMLine struct {
	ID                  string             `json:"id"`
	Sequence            int                `json:"sequence"`
	Material            entity.MaterialRef `json:"material"`
	Color               *string            `json:"color"`
	Size                *string            `json:"size"`
	SupplierID          *string            `json:"supplier_id"`
	UnitPrice           *float64           `json:"unit_price"`
	Currency            string             `json:"currency"`
	TaxRate             *float64           `json:"tax_rate"`
	Usage               float64            `json:"usage"`
	WastePercent        float64            `json:"waste_percent"`
	PurchaseQty         float64            `json:"purchase_qty"`
	PurchaseQtyOverride bool               `json:"purchase_qty_override"`
	InventoryQty        float64            `json:"inventory_qty"`
	Notes               string             `json:"notes"`
}

func (l *SaveBOMLine) validate(idx int) error {
	if err := l.Material.Validate(); err != nil {
		return fmt.Errorf("%w: line %d: %v", ErrValidation, idx+1, err)
	}
	switch {
	case l.Usage < 0:
		return fmt.Errorf("%w: line %d: usage must not be negative", ErrValidation, idx+1)
	case l.WastePercent < 0:
		return fmt.Errorf("%w: line %d: waste percent must not be negative", ErrValidation, idx+1)
	case l.InventoryQty < 0:
		return fmt.Errorf("%w: line %d: inventory quantity must not be negative", ErrValidation, idx+1)
	case l.PurchaseQtyOverride && l.PurchaseQty < 0:
		return fmt.Errorf("%w: line %d: purchase quantity must not be negative", ErrValidation, idx+1)
	case l.UnitPrice != nil && *l.UnitPrice < 0:
		return fmt.Errorf("%w: line %d: unit price must not be negative", ErrValidation, idx+1)
	case l.TaxRate != nil && *l.TaxRate < 0:
		return fmt.Errorf("%w: line %d: tax rate must not be negative", ErrValidation, idx+1)
	}
	return nil
}

// Save upserts the BOM header and replaces its line collection atomically.
// Lines with an id are updated, lines without one are inserted and stored
// lines missing from the request are deleted unless a purchase order line
// references them.
func (s *BOMService) Save(ctx context.Context, salesOrderID string, req *SaveBOMRequest, userID string) (*entity.OrderBOM, error) {
	seen := make(map[string]bool, len(req.Lines))
	for i := range req.Lines {
		if err := req.Lines[i].validate(i); err != nil {
			return nil, err
		}
		if id := req.Lines[i].ID; id != "" {
			if seen[id] {
				return nil, fmt.Errorf("%w: line %d: bom line %s appears more than once", ErrValidation, i+1, id)
			}
			seen[id] = true
		}
	}

	var saved *entity.OrderBOM
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		bom, err := loadOrCreateBOM(ctx, tx, salesOrderID, userID)
		if err != nil {
			return err
		}

		existing := make(map[string]entity.OrderBOMLine, len(bom.Lines))
		for _, l := range bom.Lines {
			existing[l.ID] = l
		}
		keep := make(map[string]bool, len(req.Lines))
		for _, rl := range req.Lines {
			if rl.ID == "" {
				continue
			}
			if _, ok := existing[rl.ID]; !ok {
				return fmt.Errorf("bom line %s: %w", rl.ID, ErrNotFound)
			}
			keep[rl.ID] = true
		}

		var removed []string
		for _, l := range bom.Lines {
			if !keep[l.ID] {
				removed = append(removed, l.ID)
			}
		}
		if err := guardLineDeletion(ctx, tx, removed); err != nil {
			return err
		}

		for i, rl := range req.Lines {
			line := entity.OrderBOMLine{OrderBOMID: bom.ID}
			if rl.ID != "" {
				line = existing[rl.ID]
			}
			if err := s.fillLine(ctx, tx, &line, &rl, i, bom.OrderQtySnapshot); err != nil {
				return err
			}
			if rl.ID == "" {
				err = tx.BOM.CreateLine(ctx, &line)
			} else {
				err = tx.BOM.UpdateLine(ctx, &line)
			}
			if err != nil {
				return fmt.Errorf("save bom line %d: %w", i+1, err)
			}
		}

		if err := tx.BOM.DeleteLines(ctx, removed); err != nil {
			return fmt.Errorf("delete bom lines: %w", err)
		}

		bom.TemplateID = req.TemplateID
		bom.UpdatedBy = userID
		if err := tx.BOM.UpdateHeader(ctx, bom); err != nil {
			return fmt.Errorf("update order bom: %w", err)
		}

		saved, err = tx.BOM.FindBySalesOrder(ctx, salesOrderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.logger.Info("order bom saved",
		zap.String("sales_order_id", salesOrderID),
		zap.Int("lines", len(saved.Lines)),
		zap.String("user_id", userID))
	return saved, nil
}

func (s *BOMService) fillLine(ctx context.Context, tx *repository.Repositories, line *entity.OrderBOMLine, rl *SaveBOMLine, idx int, orderQty float64) error {
	info, err := tx.Master.ResolveMaterial(ctx, rl.Material)
	if err != nil {
		return fmt.Errorf("line %d: resolve material %s: %w", idx+1, rl.Material, err)
	}

	line.Sequence = rl.Sequence
	if line.Sequence == 0 {
		line.Sequence = idx + 1
	}
	line.Material = rl.Material
	applyMaterialInfo(line, info)

	// an explicit supplier overrides the material's default supplier
	if rl.SupplierID != nil && *rl.SupplierID != "" && (info.SupplierID == nil || *info.SupplierID != *rl.SupplierID) {
		sup, err := tx.Master.FindSupplier(ctx, *rl.SupplierID)
		if err != nil {
			return fmt.Errorf("line %d: find supplier %s: %w", idx+1, *rl.SupplierID, err)
		}
		line.SupplierID = &sup.ID
		line.SupplierName = sup.Name
		line.Currency = sup.Currency
		line.TaxRate = sup.TaxRate
	}
	if c := strings.TrimSpace(rl.Currency); c != "" {
		line.Currency = strings.ToUpper(c)
	}
	if rl.TaxRate != nil {
		line.TaxRate = *rl.TaxRate
	}

	line.Color = rl.Color
	line.Size = rl.Size
	line.UnitPrice = rl.UnitPrice
	line.Usage = rl.Usage
	line.WastePercent = rl.WastePercent
	line.InventoryQty = rl.InventoryQty
	line.Notes = rl.Notes
	line.DemandQty = DemandQuantity(orderQty, rl.Usage, rl.WastePercent)
	line.PurchaseQtyOverride = rl.PurchaseQtyOverride
	if rl.PurchaseQtyOverride {
		line.PurchaseQty = rl.PurchaseQty
	} else {
		line.PurchaseQty = PurchaseQuantity(line.DemandQty, line.InventoryQty)
	}
	return nil
}

// ApplyTemplate materializes a template and persists it as the order's BOM,
// replacing every existing line.
func (s *BOMService) ApplyTemplate(ctx context.Context, salesOrderID, templateID, userID string) (*entity.OrderBOM, error) {
	var saved *entity.OrderBOM
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		so, err := tx.Sales.FindByID(ctx, salesOrderID)
		if err != nil {
			return fmt.Errorf("find sales order %s: %w", salesOrderID, err)
		}
		tpl, err := tx.Master.FindTemplate(ctx, templateID)
		if err != nil {
			return fmt.Errorf("find bom template %s: %w", templateID, err)
		}

		total := so.TotalOrderedQty()
		lines, err := materializeLines(ctx, tx.Master, total, tpl)
		if err != nil {
			return err
		}

		bom, err := loadOrCreateBOM(ctx, tx, salesOrderID, userID)
		if err != nil {
			return err
		}
		old := make([]string, 0, len(bom.Lines))
		for _, l := range bom.Lines {
			old = append(old, l.ID)
		}
		if err := guardLineDeletion(ctx, tx, old); err != nil {
			return err
		}
		if err := tx.BOM.DeleteLines(ctx, old); err != nil {
			return fmt.Errorf("delete bom lines: %w", err)
		}

		for i := range lines {
			lines[i].OrderBOMID = bom.ID
			if err := tx.BOM.CreateLine(ctx, &lines[i]); err != nil {
				return fmt.Errorf("create bom line %d: %w", i+1, err)
			}
		}

		bom.TemplateID = &tpl.ID
		bom.OrderQtySnapshot = total
		bom.UpdatedBy = userID
		if err := tx.BOM.UpdateHeader(ctx, bom); err != nil {
			return fmt.Errorf("update order bom: %w", err)
		}

		saved, err = tx.BOM.FindBySalesOrder(ctx, salesOrderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.BOMMaterializations.WithLabelValues("apply").Inc()
	s.invalidate(ctx)
	s.logger.Info("bom template applied",
		zap.String("sales_order_id", salesOrderID),
		zap.String("template_id", templateID),
		zap.Int("lines", len(saved.Lines)),
		zap.String("user_id", userID))
	return saved, nil
}

// Recalculate refreshes the order quantity snapshot from the sales order and
// recomputes demand. Purchase quantities typed in by an operator are kept.
func (s *BOMService) Recalculate(ctx context.Context, salesOrderID, userID string) (*entity.OrderBOM, error) {
	var saved *entity.OrderBOM
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		so, err := tx.Sales.FindByID(ctx, salesOrderID)
		if err != nil {
			return fmt.Errorf("find sales order %s: %w", salesOrderID, err)
		}
		bom, err := tx.BOM.FindBySalesOrder(ctx, salesOrderID)
		if err != nil {
			return fmt.Errorf("find order bom: %w", err)
		}

		total := so.TotalOrderedQty()
		for i := range bom.Lines {
			line := &bom.Lines[i]
			line.DemandQty = DemandQuantity(total, line.Usage, line.WastePercent)
			if !line.PurchaseQtyOverride {
				line.PurchaseQty = PurchaseQuantity(line.DemandQty, line.InventoryQty)
			}
			if err := tx.BOM.UpdateLine(ctx, line); err != nil {
				return fmt.Errorf("update bom line %d: %w", line.Sequence, err)
			}
		}

		bom.OrderQtySnapshot = total
		bom.UpdatedBy = userID
		if err := tx.BOM.UpdateHeader(ctx, bom); err != nil {
			return fmt.Errorf("update order bom: %w", err)
		}
		saved = bom
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order bom recalculated",
		zap.String("sales_order_id", salesOrderID),
		zap.Float64("order_qty", saved.OrderQtySnapshot),
		zap.String("user_id", userID))
	return saved, nil
}

func loadOrCreateBOM(ctx context.Context, tx *repository.Repositories, salesOrderID, userID string) (*entity.OrderBOM, error) {
	bom, err := tx.BOM.FindBySalesOrder(ctx, salesOrderID)
	if err == nil {
		return bom, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("find order bom: %w", err)
	}

	so, err := tx.Sales.FindByID(ctx, salesOrderID)
	if err != nil {
		return nil, fmt.Errorf("find sales order %s: %w", salesOrderID, err)
	}
	bom = &entity.OrderBOM{
		SalesOrderID:     so.ID,
		OrderQtySnapshot: so.TotalOrderedQty(),
		CreatedBy:        userID,
		UpdatedBy:        userID,
	}
	if err := tx.BOM.CreateHeader(ctx, bom); err != nil {
		return nil, fmt.Errorf("create order bom: %w", err)
	}
	return bom, nil
}

// guardLineDeletion rejects removing BOM lines that purchase order lines point to.
func guardLineDeletion(ctx context.Context, tx *repository.Repositories, ids []string) error {
	referenced, err := tx.BOM.LinesReferencedByPO(ctx, ids)
	if err != nil {
		return fmt.Errorf("check purchase order references: %w", err)
	}
	if len(referenced) > 0 {
		return fmt.Errorf("%w: %d bom line(s) are referenced by purchase orders", ErrConflict, len(referenced))
	}
	return nil
}
