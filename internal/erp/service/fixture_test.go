package service

import (
	"context"
	"testing"

	"github.com/Frankie2101/GSM-sub000/internal/erp/entity"
	"github.com/Frankie2101/GSM-sub000/internal/erp/repository"
	"github.com/Frankie2101/GSM-sub000/internal/erp/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	repos    *repository.Repositories
	svc      *Services
	master   *testutil.MasterData
	order    *entity.SalesOrder
	template *entity.BOMTemplate
}

// newFixture seeds one sales order of 500 pieces and a template with a fabric
// line (usage 1, waste 10%) and a trim line (usage 2, no waste).
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	m := testutil.SeedMasterData(t, db)

	so := testutil.SeedSalesOrder(t, db, testutil.SalesOrderSeed{
		Code:       "SO-001",
		CustomerID: m.Customer.ID,
		Lines: []entity.SalesOrderLine{
			testutil.SOLine("TS-01", "Black", "M", 300),
			testutil.SOLine("TS-01", "Black", "L", 200),
		},
	})
	tpl := testutil.SeedTemplate(t, db, "TPL-TEE",
		testutil.TemplateLine(entity.FabricRef(m.Fabric.ID), 1, 10),
		testutil.TemplateLine(entity.TrimRef(m.Trim.ID), 2, 0),
	)

	return &fixture{
		db:       db,
		repos:    repos,
		svc:      NewServices(repos, Options{Thresholds: DefaultRiskThresholds()}, zap.NewNop()),
		master:   m,
		order:    so,
		template: tpl,
	}
}

// saveLines turns stored BOM lines back into a save request.
func saveLines(bom *entity.OrderBOM) []SaveBOMLine {
	lines := make([]SaveBOMLine, 0, len(bom.Lines))
	for _, l := range bom.Lines {
		l := l
		lines = append(lines, SaveBOMLine{
			ID:                  l.ID,
			Sequence:            l.Sequence,
			Material:            l.Material,
			Color:               l.Color,
			Size:                l.Size,
			SupplierID:          l.SupplierID,
			UnitPrice:           l.UnitPrice,
			Currency:            l.Currency,
			TaxRate:             &l.TaxRate,
			Usage:               l.Usage,
			WastePercent:        l.WastePercent,
			PurchaseQty:         l.PurchaseQty,
			PurchaseQtyOverride: l.PurchaseQtyOverride,
			InventoryQty:        l.InventoryQty,
			Notes:               l.Notes,
		})
	}
	return lines
}

// pricedBOM applies the template and prices every line: fabric 2.00, trim 0.05.
func (f *fixture) pricedBOM(t *testing.T) *entity.OrderBOM {
	t.Helper()
	ctx := context.Background()
	bom, err := f.svc.BOM.ApplyTemplate(ctx, f.order.ID, f.template.ID, "planner")
	if err != nil {
		t.Fatalf("ApplyTemplate failed: %v", err)
	}
	lines := saveLines(bom)
	for i := range lines {
		price := 2.0
		if lines[i].Material.IsTrim() {
			price = 0.05
		}
		lines[i].UnitPrice = &price
	}
	bom, err = f.svc.BOM.Save(ctx, f.order.ID, &SaveBOMRequest{TemplateID: bom.TemplateID, Lines: lines}, "planner")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	return bom
}

func lineIDs(bom *entity.OrderBOM) []string {
	ids := make([]string, 0, len(bom.Lines))
	for _, l := range bom.Lines {
		ids = append(ids, l.ID)
	}
	return ids
}
