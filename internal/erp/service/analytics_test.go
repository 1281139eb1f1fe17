package service

import (
	"testing"
	"time"

	"github.com/Frankie2101/GSM-sub000/internal/erp/entity"
	"github.com/Frankie2101/GSM-sub000/internal/erp/repository"
)

func TestBuildWIPRowsGroupsByStyleColor(t *testing.T) {
	so := entity.SalesOrder{
		ID:     "so-1",
		SOCode: "SO-001",
		Lines: []entity.SalesOrderLine{
			{Style: "S1", Color: "Red", Size: "S", Quantity: 100},
			{Style: "S1", Color: "Red", Size: "M", Quantity: 200, ShippedQty: 20},
			{Style: "S1", Color: "Blue", Size: "M", Quantity: 50},
		},
	}
	output := OutputMap([]repository.OutputTotal{
		{SalesOrderID: "so-1", Style: "S1", Color: "Red", Department: entity.DeptCut, Quantity: 250},
		{SalesOrderID: "so-1", Style: "S1", Color: "Red", Department: entity.DeptSew, Quantity: 300},
		{SalesOrderID: "so-1", Style: "S1", Color: "Red", Department: entity.DeptPack, Quantity: 10},
	})

	rows := BuildWIPRows(day(2024, 3, 10), []entity.SalesOrder{so}, output, DefaultRiskThresholds())
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	red := rows[0]
	if red.Color != "Red" || red.OrderedQty != 300 || red.ShippedQty != 20 {
		t.Fatalf("unexpected red row: %+v", red)
	}
	// 录入滞后时WIP为负，不截断
	if red.CutWIP != -50 {
		t.Fatalf("expected cut WIP -50, got %v", red.CutWIP)
	}
	if red.SewWIP != 290 || red.PackWIP != -10 {
		t.Fatalf("unexpected sew/pack WIP: %v / %v", red.SewWIP, red.PackWIP)
	}
	if red.RiskRemark != "" {
		t.Fatalf("undated order should carry no risk, got %q", red.RiskRemark)
	}

	blue := rows[1]
	if blue.OrderedQty != 50 || blue.CutQty != 0 || blue.CutWIP != 0 {
		t.Fatalf("unexpected blue row: %+v", blue)
	}

	sum := SummarizeWIP(rows)
	if sum.Orders != 1 || sum.OrderedQty != 350 || sum.CutWIP != -50 || sum.AtRiskRows != 0 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestDeliveryKPIsEmpty(t *testing.T) {
	kpi := DeliveryKPIs(nil)
	if kpi.OnTimeRate != 100 || kpi.AvgLeadTimeDays != 0 || kpi.ShippedOrders != 0 {
		t.Fatalf("unexpected empty KPI: %+v", kpi)
	}
}

func TestDeliveryKPIs(t *testing.T) {
	shipped := []entity.SalesOrder{
		{
			ID:                  "a",
			ShipDate:            dayPtr(2024, 3, 15),
			ProductionStartDate: dayPtr(2024, 3, 1),
			UpdatedAt:           time.Date(2024, 3, 11, 16, 30, 0, 0, time.UTC),
		},
		{
			ID:                  "b",
			ShipDate:            dayPtr(2024, 3, 15),
			ProductionStartDate: dayPtr(2024, 3, 1),
			UpdatedAt:           time.Date(2024, 3, 21, 9, 0, 0, 0, time.UTC),
		},
		{
			ID:        "c",
			UpdatedAt: time.Date(2024, 3, 21, 9, 0, 0, 0, time.UTC),
		},
	}
	kpi := DeliveryKPIs(shipped)
	if kpi.ShippedOrders != 3 || kpi.OnTimeOrders != 1 {
		t.Fatalf("unexpected counts: %+v", kpi)
	}
	if kpi.OnTimeRate != 50 {
		t.Fatalf("expected on-time rate 50, got %v", kpi.OnTimeRate)
	}
	if kpi.AvgLeadTimeDays != 15 {
		t.Fatalf("expected average lead time 15, got %v", kpi.AvgLeadTimeDays)
	}
}

func TestDailyThroughputZeroFills(t *testing.T) {
	outputs := []entity.ProductionOutput{
		{Department: entity.DeptCut, OutputDate: day(2024, 3, 10), Quantity: 100},
		{Department: entity.DeptCut, OutputDate: day(2024, 3, 10), Quantity: 20},
		{Department: entity.DeptSew, OutputDate: day(2024, 3, 4), Quantity: 50},
		{Department: entity.DeptSew, OutputDate: day(2024, 3, 3), Quantity: 70},
	}
	tp := DailyThroughput(day(2024, 3, 10), outputs, ThroughputDays)

	if len(tp.Labels) != 7 || tp.Labels[0] != "2024-03-04" || tp.Labels[6] != "2024-03-10" {
		t.Fatalf("unexpected labels: %v", tp.Labels)
	}
	if len(tp.Series) != len(entity.Departments) {
		t.Fatalf("expected %d series, got %d", len(entity.Departments), len(tp.Series))
	}
	for _, s := range tp.Series {
		if len(s.Values) != 7 {
			t.Fatalf("series %s has %d values", s.Department, len(s.Values))
		}
		switch s.Department {
		case entity.DeptCut:
			if s.Values[6] != 120 {
				t.Fatalf("expected CUT 120 today, got %v", s.Values[6])
			}
		case entity.DeptSew:
			if s.Values[0] != 50 {
				t.Fatalf("expected SEW 50 on first day, got %v", s.Values[0])
			}
		case entity.DeptPack:
			for _, v := range s.Values {
				if v != 0 {
					t.Fatalf("expected zero-filled PCK series, got %v", s.Values)
				}
			}
		}
	}
}

func TestBuildSCurve(t *testing.T) {
	orders := []entity.SalesOrder{{
		ID:                  "so-1",
		ProductionStartDate: dayPtr(2024, 3, 1),
		ShipDate:            dayPtr(2024, 3, 3),
		Lines:               []entity.SalesOrderLine{{Quantity: 100}},
	}}
	sew := []entity.ProductionOutput{
		{OutputDate: day(2024, 2, 28), Quantity: 10},
		{OutputDate: day(2024, 3, 1), Quantity: 20},
		{OutputDate: day(2024, 3, 2), Quantity: 5},
		{OutputDate: day(2024, 3, 3), Quantity: 1},
	}

	c := BuildSCurve(day(2024, 3, 2), orders, sew)
	if len(c.Labels) != 3 || c.Labels[0] != "2024-03-01" {
		t.Fatalf("unexpected labels: %v", c.Labels)
	}
	wantPlanned := []float64{33.33, 66.67, 100}
	for i, w := range wantPlanned {
		if c.Planned[i] != w {
			t.Fatalf("planned[%d] = %v, want %v", i, c.Planned[i], w)
		}
	}
	if c.Planned[len(c.Planned)-1] != c.TotalQty {
		t.Fatalf("plan must end at total %v, got %v", c.TotalQty, c.Planned[len(c.Planned)-1])
	}
	if c.Actual[0] == nil || *c.Actual[0] != 30 {
		t.Fatalf("expected actual 30 on day 1 including earlier output, got %v", c.Actual[0])
	}
	if c.Actual[1] == nil || *c.Actual[1] != 35 {
		t.Fatalf("expected actual 35 on day 2, got %v", c.Actual[1])
	}
	if c.Actual[2] != nil {
		t.Fatalf("expected no actual value after today, got %v", *c.Actual[2])
	}
}

func TestBuildSCurveWithoutDates(t *testing.T) {
	orders := []entity.SalesOrder{{ID: "so-1", Lines: []entity.SalesOrderLine{{Quantity: 40}}}}
	c := BuildSCurve(day(2024, 3, 2), orders, nil)
	if c.Labels == nil || c.Planned == nil || c.Actual == nil {
		t.Fatal("expected empty, non-nil series")
	}
	if len(c.Labels) != 0 || c.TotalQty != 40 {
		t.Fatalf("unexpected curve: %+v", c)
	}
}

func TestMaterialRisks(t *testing.T) {
	links := []MaterialLink{
		{SalesOrderID: "a", SOCode: "SO-A", ProductionStartDate: day(2024, 3, 5), Sequence: 2, MaterialCode: "TRM-001", PONumber: "PO-1", ArrivalDate: day(2024, 3, 1)},
		{SalesOrderID: "a", SOCode: "SO-A", ProductionStartDate: day(2024, 3, 5), Sequence: 1, MaterialCode: "FAB-001", PONumber: "PO-2", ArrivalDate: day(2024, 3, 6)},
		{SalesOrderID: "a", SOCode: "SO-A", ProductionStartDate: day(2024, 3, 5), Sequence: 1, MaterialCode: "FAB-001", PONumber: "PO-3", ArrivalDate: day(2024, 3, 8)},
		{SalesOrderID: "b", SOCode: "SO-B", ProductionStartDate: day(2024, 3, 5), Sequence: 1, MaterialCode: "FAB-002", PONumber: "PO-4", ArrivalDate: day(2024, 3, 1)},
		{SalesOrderID: "c", SOCode: "SO-C", ProductionStartDate: day(2024, 3, 5), Sequence: 1, MaterialCode: "FAB-003", PONumber: "PO-5", ArrivalDate: day(2024, 3, 15)},
	}
	rows := MaterialRisks(links, DefaultRiskThresholds())
	if len(rows) != 3 {
		t.Fatalf("expected one row per order, got %d", len(rows))
	}

	if rows[0].SOCode != "SO-B" || rows[0].DaysDifference != -4 || rows[0].Status != MaterialDelayed {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[1].SOCode != "SO-A" || rows[1].PONumber != "PO-3" || rows[1].DaysDifference != 3 || rows[1].Status != MaterialAtRisk {
		t.Fatalf("unexpected second row: %+v", rows[1])
	}
	if rows[2].SOCode != "SO-C" || rows[2].Status != MaterialOnTrack {
		t.Fatalf("unexpected third row: %+v", rows[2])
	}
}

func TestBuildDashboardEmpty(t *testing.T) {
	d := BuildDashboard(time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC), DashboardInputs{}, DefaultRiskThresholds())
	if d.WIPRows == nil || len(d.WIPRows) != 0 {
		t.Fatalf("expected empty WIP rows, got %v", d.WIPRows)
	}
	if d.MaterialRisks == nil || len(d.MaterialRisks) != 0 {
		t.Fatalf("expected empty material risks, got %v", d.MaterialRisks)
	}
	if d.Delivery.OnTimeRate != 100 {
		t.Fatalf("expected default on-time rate 100, got %v", d.Delivery.OnTimeRate)
	}
	if len(d.Throughput.Labels) != ThroughputDays {
		t.Fatalf("expected %d throughput days, got %d", ThroughputDays, len(d.Throughput.Labels))
	}
}
