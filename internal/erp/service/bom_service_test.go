package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Frankie2101/GSM-sub000/internal/erp/entity"
	"go.uber.org/zap"
)

func TestMaterializeComputesDemandWithoutSaving(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.BOM.Materialize(ctx, f.order.ID, f.template.ID)
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}
	if first.OrderQtySnapshot != 500 {
		t.Fatalf("expected order total 500, got %v", first.OrderQtySnapshot)
	}
	if len(first.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(first.Lines))
	}

	fabric := first.Lines[0]
	if fabric.DemandQty != 550 || fabric.PurchaseQty != 550 {
		t.Fatalf("expected fabric demand 550, got %v / %v", fabric.DemandQty, fabric.PurchaseQty)
	}
	if fabric.MaterialCode != "FAB-001" || fabric.UnitCode != "M" {
		t.Fatalf("master data not copied: %+v", fabric)
	}
	if fabric.SupplierID == nil || *fabric.SupplierID != f.master.Supplier.ID || fabric.Currency != "USD" || fabric.TaxRate != 10 {
		t.Fatalf("expected default supplier terms, got %+v", fabric)
	}
	if fabric.MaterialGroupID != f.master.FabricGroup.ID {
		t.Fatalf("expected fabric group, got %s", fabric.MaterialGroupID)
	}

	trim := first.Lines[1]
	if trim.DemandQty != 1000 || trim.Currency != "VND" {
		t.Fatalf("unexpected trim line: %+v", trim)
	}

	second, err := f.svc.BOM.Materialize(ctx, f.order.ID, f.template.ID)
	if err != nil {
		t.Fatalf("second Materialize failed: %v", err)
	}
	for i := range first.Lines {
		if first.Lines[i].DemandQty != second.Lines[i].DemandQty || first.Lines[i].Material != second.Lines[i].Material {
			t.Fatalf("materialize is not repeatable at line %d", i)
		}
	}

	var count int64
	f.db.Model(&entity.OrderBOM{}).Count(&count)
	if count != 0 {
		t.Fatalf("preview must not persist a BOM, found %d", count)
	}
}

func TestMaterializeUnknownOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.BOM.Materialize(context.Background(), "missing", f.template.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_, err = f.svc.BOM.Materialize(context.Background(), f.order.ID, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for template, got %v", err)
	}
}

func TestApplyTemplateReplacesLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bom, err := f.svc.BOM.ApplyTemplate(ctx, f.order.ID, f.template.ID, "planner")
	if err != nil {
		t.Fatalf("ApplyTemplate failed: %v", err)
	}
	if len(bom.Lines) != 2 || bom.TemplateID == nil || *bom.TemplateID != f.template.ID {
		t.Fatalf("unexpected BOM: %+v", bom)
	}

	bom2, err := f.svc.BOM.ApplyTemplate(ctx, f.order.ID, f.template.ID, "planner")
	if err != nil {
		t.Fatalf("second ApplyTemplate failed: %v", err)
	}
	if bom2.ID != bom.ID {
		t.Fatal("expected the same BOM header")
	}
	var count int64
	f.db.Model(&entity.OrderBOMLine{}).Where("order_bom_id = ?", bom.ID).Count(&count)
	if count != 2 {
		t.Fatalf("expected lines to be replaced, found %d", count)
	}
}

func TestGetOrCreateCreatesEmptyBOM(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bom, err := f.svc.BOM.GetOrCreate(ctx, f.order.ID, "planner")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if len(bom.Lines) != 0 || bom.OrderQtySnapshot != 500 {
		t.Fatalf("unexpected BOM: %+v", bom)
	}
	again, err := f.svc.BOM.GetOrCreate(ctx, f.order.ID, "planner")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if again.ID != bom.ID {
		t.Fatal("expected one BOM per sales order")
	}
}

func TestSaveUpdatesInsertsAndDeletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bom, err := f.svc.BOM.ApplyTemplate(ctx, f.order.ID, f.template.ID, "planner")
	if err != nil {
		t.Fatalf("ApplyTemplate failed: %v", err)
	}
	lines := saveLines(bom)

	// 面料行：定价并手工指定采购量
	price := 3.5
	lines[0].UnitPrice = &price
	lines[0].PurchaseQty = 600
	lines[0].PurchaseQtyOverride = true

	// 删除辅料行，新增一条改由面料供应商供货的辅料行
	color := "Black"
	newLine := SaveBOMLine{
		Sequence:     3,
		Material:     entity.TrimRef(f.master.Trim.ID),
		Color:        &color,
		SupplierID:   &f.master.Supplier.ID,
		Usage:        1,
		WastePercent: 2,
		InventoryQty: 10,
	}
	req := &SaveBOMRequest{TemplateID: bom.TemplateID, Lines: []SaveBOMLine{lines[0], newLine}}

	saved, err := f.svc.BOM.Save(ctx, f.order.ID, req, "planner")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if len(saved.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(saved.Lines))
	}

	fabric := saved.Lines[0]
	if fabric.ID != bom.Lines[0].ID {
		t.Fatal("existing line should keep its id")
	}
	if fabric.PurchaseQty != 600 || !fabric.PurchaseQtyOverride || fabric.DemandQty != 550 {
		t.Fatalf("override not kept: %+v", fabric)
	}
	if fabric.UnitPrice == nil || *fabric.UnitPrice != 3.5 {
		t.Fatalf("price not saved: %v", fabric.UnitPrice)
	}

	trim := saved.Lines[1]
	if trim.Sequence != 3 || trim.Color == nil || *trim.Color != "Black" {
		t.Fatalf("unexpected new line: %+v", trim)
	}
	if trim.SupplierID == nil || *trim.SupplierID != f.master.Supplier.ID || trim.Currency != "USD" || trim.TaxRate != 10 {
		t.Fatalf("explicit supplier should override material default: %+v", trim)
	}
	if trim.DemandQty != 510 || trim.PurchaseQty != 500 {
		t.Fatalf("expected demand 510 and purchase 500, got %v / %v", trim.DemandQty, trim.PurchaseQty)
	}
	if trim.MaterialGroupID != f.master.TrimGroup.ID {
		t.Fatalf("material group must follow the material, got %s", trim.MaterialGroupID)
	}
}

func TestSaveRejectsUnknownLine(t *testing.T) {
	f := newFixture(t)
	req := &SaveBOMRequest{Lines: []SaveBOMLine{{
		ID:       "not-a-line",
		Material: entity.FabricRef(f.master.Fabric.ID),
		Usage:    1,
	}}}
	_, err := f.svc.BOM.Save(context.Background(), f.order.ID, req, "planner")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveValidatesMaterial(t *testing.T) {
	f := newFixture(t)
	req := &SaveBOMRequest{Lines: []SaveBOMLine{{
		Material: entity.MaterialRef{Kind: "YARN", ID: "x"},
		Usage:    1,
	}}}
	_, err := f.svc.BOM.Save(context.Background(), f.order.ID, req, "planner")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestSaveRefusesToDeleteOrderedLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bom := f.pricedBOM(t)

	if _, err := f.svc.Procurement.GenerateFromBOMLines(ctx, f.order.ID, &GeneratePORequest{LineIDs: []string{bom.Lines[0].ID}}, "buyer"); err != nil {
		t.Fatalf("GenerateFromBOMLines failed: %v", err)
	}

	lines := saveLines(bom)
	_, err := f.svc.BOM.Save(ctx, f.order.ID, &SaveBOMRequest{Lines: lines[1:]}, "planner")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// 事务回滚，两行都还在
	current, err := f.repos.BOM.FindBySalesOrder(ctx, f.order.ID)
	if err != nil {
		t.Fatalf("FindBySalesOrder failed: %v", err)
	}
	if len(current.Lines) != 2 {
		t.Fatalf("expected rollback to keep 2 lines, got %d", len(current.Lines))
	}

	_, err = f.svc.BOM.ApplyTemplate(ctx, f.order.ID, f.template.ID, "planner")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict from ApplyTemplate, got %v", err)
	}
}

func TestRecalculateKeepsOverrides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bom, err := f.svc.BOM.ApplyTemplate(ctx, f.order.ID, f.template.ID, "planner")
	if err != nil {
		t.Fatalf("ApplyTemplate failed: %v", err)
	}
	lines := saveLines(bom)
	lines[1].PurchaseQty = 1500
	lines[1].PurchaseQtyOverride = true
	if _, err := f.svc.BOM.Save(ctx, f.order.ID, &SaveBOMRequest{TemplateID: bom.TemplateID, Lines: lines}, "planner"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// 订单数量改为 600
	if err := f.db.Model(&entity.SalesOrderLine{}).
		Where("sales_order_id = ? AND size = ?", f.order.ID, "L").
		Update("quantity", 300).Error; err != nil {
		t.Fatalf("update order line failed: %v", err)
	}

	re, err := f.svc.BOM.Recalculate(ctx, f.order.ID, "planner")
	if err != nil {
		t.Fatalf("Recalculate failed: %v", err)
	}
	if re.OrderQtySnapshot != 600 {
		t.Fatalf("expected snapshot 600, got %v", re.OrderQtySnapshot)
	}
	if re.Lines[0].DemandQty != 660 || re.Lines[0].PurchaseQty != 660 {
		t.Fatalf("fabric not recalculated: %+v", re.Lines[0])
	}
	if re.Lines[1].DemandQty != 1200 || re.Lines[1].PurchaseQty != 1500 {
		t.Fatalf("trim demand should be 1200 and keep override 1500: %+v", re.Lines[1])
	}
}

func TestSaveRejectsDuplicateLineIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bom, err := f.svc.BOM.ApplyTemplate(ctx, f.order.ID, f.template.ID, "planner")
	if err != nil {
		t.Fatalf("ApplyTemplate failed: %v", err)
	}
	lines := saveLines(bom)
	dup := lines[0]
	dup.Usage = 9

	_, err = f.svc.BOM.Save(ctx, f.order.ID, &SaveBOMRequest{TemplateID: bom.TemplateID, Lines: append(lines, dup)}, "planner")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for a repeated line id, got %v", err)
	}
	current, _ := f.repos.BOM.FindBySalesOrder(ctx, f.order.ID)
	if current.Lines[0].Usage != 1 {
		t.Fatalf("line must be unchanged, usage %v", current.Lines[0].Usage)
	}
}

func TestBOMWritesInvalidateDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := &countingInvalidator{}
	svc := NewBOMService(f.repos, inv, zap.NewNop())

	bom, err := svc.ApplyTemplate(ctx, f.order.ID, f.template.ID, "planner")
	if err != nil {
		t.Fatalf("ApplyTemplate failed: %v", err)
	}
	if _, err := svc.Save(ctx, f.order.ID, &SaveBOMRequest{TemplateID: bom.TemplateID, Lines: saveLines(bom)}, "planner"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if inv.calls != 2 {
		t.Fatalf("expected 2 invalidations, got %d", inv.calls)
	}

	if _, err := svc.Materialize(ctx, f.order.ID, f.template.ID); err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}
	if inv.calls != 2 {
		t.Fatalf("preview must not invalidate, got %d", inv.calls)
	}
}
