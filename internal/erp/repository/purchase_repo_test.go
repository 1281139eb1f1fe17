package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Frankie2101/GSM-sub000/internal/erp/entity"
	"github.com/Frankie2101/GSM-sub000/internal/erp/testutil"
)

func seedPO(t *testing.T, repos *Repositories, supplierID, number, status string) *entity.PurchaseOrder {
	t.Helper()
	po := &entity.PurchaseOrder{
		PONumber:   number,
		SupplierID: supplierID,
		Currency:   "USD",
		Status:     status,
		Lines: []entity.PurchaseOrderLine{{
			OrderBOMLineID: "bom-line-1",
			Material:       entity.FabricRef("fab-1"),
			Quantity:       100,
			UnitPrice:      2,
			Amount:         200,
			SortOrder:      1,
		}},
	}
	if err := repos.Purchase.Create(context.Background(), po); err != nil {
		t.Fatalf("create purchase order failed: %v", err)
	}
	return po
}

func TestUpdateEditableHeaderKeepsNewerStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := NewRepositories(db)
	m := testutil.SeedMasterData(t, db)
	ctx := context.Background()

	po := seedPO(t, repos, m.Supplier.ID, "PO-2024-0001", entity.POStatusNew)
	stale, err := repos.Purchase.FindByID(ctx, po.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}

	// 另一请求在读之后完成了提交和审批
	n, err := repos.Purchase.TransitionStatus(ctx, po.ID, []string{entity.POStatusNew}, map[string]interface{}{"status": entity.POStatusApproved})
	if err != nil || n != 1 {
		t.Fatalf("TransitionStatus: n=%d err=%v", n, err)
	}

	stale.Notes = "late edit"
	n, err = repos.Purchase.UpdateEditableHeader(ctx, stale)
	if err != nil {
		t.Fatalf("UpdateEditableHeader failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected the guard to reject the write, %d rows updated", n)
	}

	current, _ := repos.Purchase.FindByID(ctx, po.ID)
	if current.Status != entity.POStatusApproved || current.Notes == "late edit" {
		t.Fatalf("approved order was overwritten: status %s notes %q", current.Status, current.Notes)
	}

	rejected := seedPO(t, repos, m.Supplier.ID, "PO-2024-0002", entity.POStatusRejected)
	rejected.Notes = "fixed price"
	rejected.TotalAmount = 180
	if n, err := repos.Purchase.UpdateEditableHeader(ctx, rejected); err != nil || n != 1 {
		t.Fatalf("rejected order should be editable: n=%d err=%v", n, err)
	}
	current, _ = repos.Purchase.FindByID(ctx, rejected.ID)
	if current.Status != entity.POStatusRejected || current.Notes != "fixed price" || current.TotalAmount != 180 {
		t.Fatalf("unexpected header after edit: %+v", current)
	}
}

func TestDeleteEditableSkipsSubmittedOrders(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := NewRepositories(db)
	m := testutil.SeedMasterData(t, db)
	ctx := context.Background()

	submitted := seedPO(t, repos, m.Supplier.ID, "PO-2024-0001", entity.POStatusSubmitted)
	n, err := repos.Purchase.DeleteEditable(ctx, submitted.ID)
	if err != nil || n != 0 {
		t.Fatalf("submitted order must not be deleted: n=%d err=%v", n, err)
	}
	if _, err := repos.Purchase.FindByID(ctx, submitted.ID); err != nil {
		t.Fatalf("submitted order is gone: %v", err)
	}
	var lines int64
	db.Model(&entity.PurchaseOrderLine{}).Where("purchase_order_id = ?", submitted.ID).Count(&lines)
	if lines != 1 {
		t.Fatalf("lines of a submitted order were deleted, %d left", lines)
	}

	fresh := seedPO(t, repos, m.Supplier.ID, "PO-2024-0002", entity.POStatusNew)
	if n, err := repos.Purchase.DeleteEditable(ctx, fresh.ID); err != nil || n != 1 {
		t.Fatalf("new order should be deleted: n=%d err=%v", n, err)
	}
	db.Model(&entity.PurchaseOrderLine{}).Where("purchase_order_id = ?", fresh.ID).Count(&lines)
	if lines != 0 {
		t.Fatalf("expected lines to be deleted, %d left", lines)
	}
}

func TestGenerateCodePastFourDigits(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := NewRepositories(db)
	m := testutil.SeedMasterData(t, db)
	ctx := context.Background()
	prefix := fmt.Sprintf("PO-%s-", time.Now().Format("2006"))

	code, err := repos.Purchase.GenerateCode(ctx)
	if err != nil || code != prefix+"0001" {
		t.Fatalf("first code: %q err=%v", code, err)
	}

	seedPO(t, repos, m.Supplier.ID, prefix+"9999", entity.POStatusNew)
	code, _ = repos.Purchase.GenerateCode(ctx)
	if code != prefix+"10000" {
		t.Fatalf("expected %s10000, got %s", prefix, code)
	}

	seedPO(t, repos, m.Supplier.ID, prefix+"10000", entity.POStatusNew)
	code, _ = repos.Purchase.GenerateCode(ctx)
	if code != prefix+"10001" {
		t.Fatalf("expected %s10001, got %s", prefix, code)
	}
}
