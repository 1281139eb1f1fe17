package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/Frankie2101/GSM-sub000/internal/erp/entity"
	"github.com/Frankie2101/GSM-sub000/internal/erp/repository"
	"github.com/shopspring/decimal"
)

const (
	ThroughputDays = 7
	dateLayout     = "2006-01-02"
)

// DashboardInputs is everything the aggregator reads, loaded in one snapshot.
type DashboardInputs struct {
	InProgress    []entity.SalesOrder
	Shipped       []entity.SalesOrder
	OutputTotals  []repository.OutputTotal
	RecentOutputs []entity.ProductionOutput
	SewOutputs    []entity.ProductionOutput
	MaterialLinks []MaterialLink
}

// MaterialLink ties a BOM line of an order to a dated, non-rejected PO.
type MaterialLink struct {
	SalesOrderID        string
	SOCode              string
	ProductionStartDate time.Time
	Sequence            int
	MaterialCode        string
	MaterialName        string
	PONumber            string
	ArrivalDate         time.Time
}

type Dashboard struct {
	GeneratedAt   time.Time         `json:"generated_at"`
	WIPSummary    WIPSummary        `json:"wip_summary"`
	WIPRows       []WIPRow          `json:"wip_rows"`
	Delivery      DeliveryKPI       `json:"delivery"`
	Throughput    Throughput        `json:"throughput"`
	SCurve        SCurve            `json:"s_curve"`
	MaterialRisks []MaterialRiskRow `json:"material_risks"`
}

// WIPRow is one (sales order, style, color) line of the WIP table.
type WIPRow struct {
	SalesOrderID        string     `json:"sales_order_id"`
	SOCode              string     `json:"so_code"`
	Style               string     `json:"style"`
	Color               string     `json:"color"`
	ProductionStartDate *time.Time `json:"production_start_date"`
	ShipDate            *time.Time `json:"ship_date"`
	OrderedQty          float64    `json:"ordered_qty"`
	ShippedQty          float64    `json:"shipped_qty"`
	CutQty              float64    `json:"cut_qty"`
	SewQty              float64    `json:"sew_qty"`
	WashQty             float64    `json:"wash_qty"`
	DipQty              float64    `json:"dip_qty"`
	PackQty             float64    `json:"pack_qty"`
	CutWIP              float64    `json:"cut_wip"`
	SewWIP              float64    `json:"sew_wip"`
	PackWIP             float64    `json:"pack_wip"`
	RiskRemark          string     `json:"risk_remark"`
}

// WIPSummary aggregates the WIP table by department.
type WIPSummary struct {
	Orders     int     `json:"orders"`
	OrderedQty float64 `json:"ordered_qty"`
	CutQty     float64 `json:"cut_qty"`
	SewQty     float64 `json:"sew_qty"`
	PackQty    float64 `json:"pack_qty"`
	CutWIP     float64 `json:"cut_wip"`
	SewWIP     float64 `json:"sew_wip"`
	PackWIP    float64 `json:"pack_wip"`
	AtRiskRows int     `json:"at_risk_rows"`
}

type DeliveryKPI struct {
	ShippedOrders   int     `json:"shipped_orders"`
	OnTimeOrders    int     `json:"on_time_orders"`
	OnTimeRate      float64 `json:"on_time_rate"`
	AvgLeadTimeDays float64 `json:"avg_lead_time_days"`
}

type Throughput struct {
	Labels []string           `json:"labels"`
	Series []DepartmentSeries `json:"series"`
}

type DepartmentSeries struct {
	Department string    `json:"department"`
	Values     []float64 `json:"values"`
}

// SCurve holds planned and actual cumulative sewing output per day. Actual is
// nil for days after today.
type SCurve struct {
	Labels   []string   `json:"labels"`
	Planned  []float64  `json:"planned"`
	Actual   []*float64 `json:"actual"`
	TotalQty float64    `json:"total_qty"`
}

type MaterialRiskRow struct {
	SalesOrderID        string    `json:"sales_order_id"`
	SOCode              string    `json:"so_code"`
	MaterialCode        string    `json:"material_code"`
	MaterialName        string    `json:"material_name"`
	PONumber            string    `json:"po_number"`
	ProductionStartDate time.Time `json:"production_start_date"`
	ArrivalDate         time.Time `json:"arrival_date"`
	DaysDifference      int       `json:"days_difference"`
	Status              string    `json:"status"`
}

// BuildDashboard runs the whole aggregation over already loaded inputs.
func BuildDashboard(now time.Time, in DashboardInputs, th RiskThresholds) *Dashboard {
	today := civilDay(now)
	rows := BuildWIPRows(today, in.InProgress, OutputMap(in.OutputTotals), th)
	return &Dashboard{
		GeneratedAt:   now,
		WIPSummary:    SummarizeWIP(rows),
		WIPRows:       rows,
		Delivery:      DeliveryKPIs(in.Shipped),
		Throughput:    DailyThroughput(today, in.RecentOutputs, ThroughputDays),
		SCurve:        BuildSCurve(today, in.InProgress, in.SewOutputs),
		MaterialRisks: MaterialRisks(in.MaterialLinks, th),
	}
}

// OutputKey is the lookup key of the pre-aggregated output map.
func OutputKey(salesOrderID, style, color, department string) string {
	return fmt.Sprintf("%s_%s_%s_%s", salesOrderID, style, color, department)
}

func OutputMap(totals []repository.OutputTotal) map[string]float64 {
	m := make(map[string]float64, len(totals))
	for _, t := range totals {
		m[OutputKey(t.SalesOrderID, t.Style, t.Color, t.Department)] += t.Quantity
	}
	return m
}

// BuildWIPRows groups each order's lines by (style, color). WIP is not
// clamped: a negative value means output recording lags.
func BuildWIPRows(today time.Time, orders []entity.SalesOrder, output map[string]float64, th RiskThresholds) []WIPRow {
	rows := []WIPRow{}
	for _, so := range orders {
		start := civilDayPtr(so.ProductionStartDate)
		ship := civilDayPtr(so.ShipDate)

		index := make(map[string]int)
		var group []WIPRow
		for _, l := range so.Lines {
			key := l.Style + "\x00" + l.Color
			i, ok := index[key]
			if !ok {
				i = len(group)
				index[key] = i
				group = append(group, WIPRow{
					SalesOrderID:        so.ID,
					SOCode:              so.SOCode,
					Style:               l.Style,
					Color:               l.Color,
					ProductionStartDate: start,
					ShipDate:            ship,
				})
			}
			group[i].OrderedQty += l.Quantity
			group[i].ShippedQty += l.ShippedQty
		}

		for i := range group {
			r := &group[i]
			get := func(dept string) float64 { return output[OutputKey(so.ID, r.Style, r.Color, dept)] }
			r.CutQty = get(entity.DeptCut)
			r.SewQty = get(entity.DeptSew)
			r.WashQty = get(entity.DeptWash)
			r.DipQty = get(entity.DeptDip)
			r.PackQty = get(entity.DeptPack)
			r.CutWIP = r.CutQty - r.SewQty
			r.SewWIP = r.SewQty - r.PackQty
			r.PackWIP = r.PackQty - r.ShippedQty
			r.RiskRemark = EvaluateRisk(RiskSnapshot{
				Today:           today,
				ProductionStart: start,
				ShipDate:        ship,
				OrderedQty:      r.OrderedQty,
				CutQty:          r.CutQty,
				SewQty:          r.SewQty,
				PackQty:         r.PackQty,
				CutWIP:          r.CutWIP,
			}, th)
		}
		rows = append(rows, group...)
	}
	return rows
}

func SummarizeWIP(rows []WIPRow) WIPSummary {
	var s WIPSummary
	orders := make(map[string]bool)
	for _, r := range rows {
		orders[r.SalesOrderID] = true
		s.OrderedQty += r.OrderedQty
		s.CutQty += r.CutQty
		s.SewQty += r.SewQty
		s.PackQty += r.PackQty
		s.CutWIP += r.CutWIP
		s.SewWIP += r.SewWIP
		s.PackWIP += r.PackWIP
		if r.RiskRemark != "" {
			s.AtRiskRows++
		}
	}
	s.Orders = len(orders)
	return s
}

// DeliveryKPIs: an order is on time when its last modification day is not
// after its ship day. Orders without a ship date are left out of the rate and
// orders without a production start are left out of the lead time.
func DeliveryKPIs(shipped []entity.SalesOrder) DeliveryKPI {
	kpi := DeliveryKPI{ShippedOrders: len(shipped), OnTimeRate: 100}

	var rated, leadCount, leadDays int
	for _, so := range shipped {
		done := civilDay(so.UpdatedAt)
		if so.ShipDate != nil {
			rated++
			if !done.After(civilDay(*so.ShipDate)) {
				kpi.OnTimeOrders++
			}
		}
		if so.ProductionStartDate != nil {
			leadCount++
			leadDays += daysBetween(*so.ProductionStartDate, so.UpdatedAt)
		}
	}
	if rated > 0 {
		kpi.OnTimeRate = decimal.NewFromInt(int64(kpi.OnTimeOrders)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(rated))).
			Round(2).InexactFloat64()
	}
	if leadCount > 0 {
		kpi.AvgLeadTimeDays = decimal.NewFromInt(int64(leadDays)).
			Div(decimal.NewFromInt(int64(leadCount))).
			Round(2).InexactFloat64()
	}
	return kpi
}

// DailyThroughput sums output per department per day over the trailing window
// ending today. Every department gets a value for every day.
func DailyThroughput(today time.Time, outputs []entity.ProductionOutput, days int) Throughput {
	first := today.AddDate(0, 0, -(days - 1))
	t := Throughput{Labels: make([]string, days)}
	for i := 0; i < days; i++ {
		t.Labels[i] = first.AddDate(0, 0, i).Format(dateLayout)
	}

	values := make(map[string][]float64, len(entity.Departments))
	for _, d := range entity.Departments {
		values[d] = make([]float64, days)
	}
	for _, o := range outputs {
		idx := daysBetween(first, o.OutputDate)
		if idx < 0 || idx >= days {
			continue
		}
		if v, ok := values[o.Department]; ok {
			v[idx] += o.Quantity
		}
	}
	for _, d := range entity.Departments {
		t.Series = append(t.Series, DepartmentSeries{Department: d, Values: values[d]})
	}
	return t
}

// BuildSCurve spans the earliest production start to the latest ship date of
// the given orders. The plan grows linearly and ends exactly at the total
// ordered quantity. Actual is the running SEW total, including output booked
// before the span.
func BuildSCurve(today time.Time, orders []entity.SalesOrder, sewOutputs []entity.ProductionOutput) SCurve {
	curve := SCurve{Labels: []string{}, Planned: []float64{}, Actual: []*float64{}}

	var start, end *time.Time
	total := decimal.Zero
	for _, so := range orders {
		total = total.Add(decimal.NewFromFloat(so.TotalOrderedQty()))
		if so.ProductionStartDate != nil {
			d := civilDay(*so.ProductionStartDate)
			if start == nil || d.Before(*start) {
				start = &d
			}
		}
		if so.ShipDate != nil {
			d := civilDay(*so.ShipDate)
			if end == nil || d.After(*end) {
				end = &d
			}
		}
	}
	curve.TotalQty = total.InexactFloat64()
	if start == nil || end == nil || end.Before(*start) {
		return curve
	}

	n := daysBetween(*start, *end) + 1
	daily := total.Div(decimal.NewFromInt(int64(n)))

	byDay := make(map[int]float64)
	var carried float64
	for _, o := range sewOutputs {
		idx := daysBetween(*start, o.OutputDate)
		if idx < 0 {
			carried += o.Quantity
			continue
		}
		byDay[idx] += o.Quantity
	}

	cum := decimal.NewFromFloat(carried)
	for k := 0; k < n; k++ {
		day := start.AddDate(0, 0, k)
		curve.Labels = append(curve.Labels, day.Format(dateLayout))

		planned := daily.Mul(decimal.NewFromInt(int64(k + 1))).Round(2)
		if k == n-1 || planned.GreaterThan(total) {
			planned = total
		}
		curve.Planned = append(curve.Planned, planned.InexactFloat64())

		cum = cum.Add(decimal.NewFromFloat(byDay[k]))
		if day.After(today) {
			curve.Actual = append(curve.Actual, nil)
			continue
		}
		v := cum.InexactFloat64()
		curve.Actual = append(curve.Actual, &v)
	}
	return curve
}

// MaterialRisks keeps one link per order: the lowest BOM sequence, and for
// that line the latest arrival date. Rows are sorted most urgent first.
func MaterialRisks(links []MaterialLink, th RiskThresholds) []MaterialRiskRow {
	primary := make(map[string]MaterialLink)
	var order []string
	for _, l := range links {
		cur, ok := primary[l.SalesOrderID]
		if !ok {
			order = append(order, l.SalesOrderID)
			primary[l.SalesOrderID] = l
			continue
		}
		if l.Sequence < cur.Sequence ||
			(l.Sequence == cur.Sequence && l.ArrivalDate.After(cur.ArrivalDate)) {
			primary[l.SalesOrderID] = l
		}
	}

	rows := make([]MaterialRiskRow, 0, len(order))
	for _, id := range order {
		l := primary[id]
		days := daysBetween(l.ProductionStartDate, l.ArrivalDate)
		rows = append(rows, MaterialRiskRow{
			SalesOrderID:        l.SalesOrderID,
			SOCode:              l.SOCode,
			MaterialCode:        l.MaterialCode,
			MaterialName:        l.MaterialName,
			PONumber:            l.PONumber,
			ProductionStartDate: civilDay(l.ProductionStartDate),
			ArrivalDate:         civilDay(l.ArrivalDate),
			DaysDifference:      days,
			Status:              ClassifyMaterialRisk(days, th),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].DaysDifference != rows[j].DaysDifference {
			return rows[i].DaysDifference < rows[j].DaysDifference
		}
		return rows[i].SOCode < rows[j].SOCode
	})
	return rows
}

// civilDay truncates t to midnight UTC of its UTC calendar day.
func civilDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func civilDayPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := civilDay(*t)
	return &d
}

// daysBetween counts calendar days from a to b.
func daysBetween(a, b time.Time) int {
	return int(civilDay(b).Sub(civilDay(a)).Hours() / 24)
}
