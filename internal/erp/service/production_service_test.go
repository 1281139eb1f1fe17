package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Frankie2101/GSM-sub000/internal/erp/entity"
	"github.com/Frankie2101/GSM-sub000/internal/erp/repository"
	"go.uber.org/zap"
)

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(ctx context.Context) { c.calls++ }

func TestRecordOutput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := &countingInvalidator{}
	svc := NewProductionService(f.repos, inv, zap.NewNop())

	out, err := svc.Record(ctx, &RecordOutputRequest{
		SalesOrderID: f.order.ID,
		Style:        "TS-01",
		Color:        "Black",
		Department:   "sew",
		OutputDate:   dayPtr(2024, 3, 10),
		Quantity:     120,
	}, "line-lead")
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if out.Department != entity.DeptSew || !out.OutputDate.Equal(day(2024, 3, 10)) {
		t.Fatalf("unexpected output: %+v", out)
	}
	if inv.calls != 1 {
		t.Fatalf("expected dashboard invalidation, got %d calls", inv.calls)
	}

	_, err = svc.Record(ctx, &RecordOutputRequest{SalesOrderID: f.order.ID, Style: "TS-01", Color: "Black", Department: "IRON", Quantity: 1}, "line-lead")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown department, got %v", err)
	}
	_, err = svc.Record(ctx, &RecordOutputRequest{SalesOrderID: f.order.ID, Style: "TS-01", Color: "Black", Department: "CUT", Quantity: -5}, "line-lead")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for negative quantity, got %v", err)
	}
	_, err = svc.Record(ctx, &RecordOutputRequest{SalesOrderID: "missing", Style: "TS-01", Color: "Black", Department: "CUT", Quantity: 5}, "line-lead")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown order, got %v", err)
	}
}

func TestBulkDeleteOutputs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := &countingInvalidator{}
	svc := NewProductionService(f.repos, inv, zap.NewNop())

	for _, dept := range []string{"CUT", "CUT", "SEW"} {
		if _, err := svc.Record(ctx, &RecordOutputRequest{
			SalesOrderID: f.order.ID, Style: "TS-01", Color: "Black", Department: dept,
			OutputDate: dayPtr(2024, 3, 10), Quantity: 10,
		}, "line-lead"); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	if _, err := svc.BulkDelete(ctx, repository.OutputFilter{}, "admin"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty filter, got %v", err)
	}

	n, err := svc.BulkDelete(ctx, repository.OutputFilter{SalesOrderID: f.order.ID, Department: entity.DeptCut}, "admin")
	if err != nil {
		t.Fatalf("BulkDelete failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows deleted, got %d", n)
	}

	items, total, err := svc.List(ctx, repository.OutputFilter{SalesOrderID: f.order.ID}, 1, 20)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].Department != entity.DeptSew {
		t.Fatalf("expected only the SEW row to remain, got %d rows", total)
	}
}
