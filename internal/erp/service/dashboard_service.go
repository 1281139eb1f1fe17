package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Frankie2101/GSM-sub000/internal/erp/entity"
	"github.com/Frankie2101/GSM-sub000/internal/erp/repository"
	"github.com/Frankie2101/GSM-sub000/internal/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const dashboardCachePrefix = "erp:dashboard:"

// DashboardService 生产看板：读取快照后聚合，结果按天缓存到Redis
type DashboardService struct {
	repos      *repository.Repositories
	rdb        *redis.Client
	ttl        time.Duration
	thresholds RiskThresholds
	logger     *zap.Logger
	now        func() time.Time
}

func NewDashboardService(repos *repository.Repositories, rdb *redis.Client, ttl time.Duration, thresholds RiskThresholds, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		repos:      repos,
		rdb:        rdb,
		ttl:        ttl,
		thresholds: thresholds,
		logger:     logger,
		now:        time.Now,
	}
}

// SetClock replaces the time source.
func (s *DashboardService) SetClock(now func() time.Time) {
	s.now = now
}

func dashboardCacheKey(now time.Time) string {
	return dashboardCachePrefix + civilDay(now).Format(dateLayout)
}

// Build returns today's dashboard, from cache unless refresh is set.
func (s *DashboardService) Build(ctx context.Context, refresh bool) (*Dashboard, error) {
	now := s.now().UTC()
	key := dashboardCacheKey(now)

	if s.rdb != nil && !refresh {
		if d, ok := s.fromCache(ctx, key); ok {
			return d, nil
		}
	}

	start := time.Now()
	in, err := s.loadInputs(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("load dashboard inputs: %w", err)
	}
	d := BuildDashboard(now, *in, s.thresholds)
	metrics.DashboardBuild.Observe(time.Since(start).Seconds())

	if s.rdb != nil && s.ttl > 0 {
		data, err := json.Marshal(d)
		if err == nil {
			err = s.rdb.Set(ctx, key, data, s.ttl).Err()
		}
		if err != nil {
			s.logger.Warn("cache dashboard failed", zap.String("key", key), zap.Error(err))
		}
	}
	return d, nil
}

func (s *DashboardService) fromCache(ctx context.Context, key string) (*Dashboard, bool) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.DashboardCache.WithLabelValues("miss").Inc()
		} else {
			metrics.DashboardCache.WithLabelValues("error").Inc()
			s.logger.Warn("read dashboard cache failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var d Dashboard
	if err := json.Unmarshal(data, &d); err != nil {
		metrics.DashboardCache.WithLabelValues("error").Inc()
		return nil, false
	}
	metrics.DashboardCache.WithLabelValues("hit").Inc()
	return &d, true
}

// Invalidate drops today's cached dashboard.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	key := dashboardCacheKey(s.now())
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		s.logger.Warn("invalidate dashboard cache failed", zap.String("key", key), zap.Error(err))
	}
}

// loadInputs reads everything inside one read-only snapshot.
func (s *DashboardService) loadInputs(ctx context.Context, now time.Time) (*DashboardInputs, error) {
	in := &DashboardInputs{}
	err := s.repos.ReadSnapshot(ctx, func(tx *repository.Repositories) error {
		var err error
		if in.InProgress, err = tx.Sales.ListByStatus(ctx, entity.SOStatusInProgress); err != nil {
			return fmt.Errorf("list in-progress orders: %w", err)
		}
		if in.Shipped, err = tx.Sales.ListByStatus(ctx, entity.SOStatusShipped); err != nil {
			return fmt.Errorf("list shipped orders: %w", err)
		}

		ids := make([]string, 0, len(in.InProgress))
		for _, so := range in.InProgress {
			ids = append(ids, so.ID)
		}
		if in.OutputTotals, err = tx.Production.TotalsBySalesOrders(ctx, ids); err != nil {
			return fmt.Errorf("aggregate output: %w", err)
		}
		if in.SewOutputs, err = tx.Production.ForSalesOrders(ctx, ids, entity.DeptSew); err != nil {
			return fmt.Errorf("load sewing output: %w", err)
		}

		from := civilDay(now).AddDate(0, 0, -(ThroughputDays - 1))
		if in.RecentOutputs, err = tx.Production.Since(ctx, from); err != nil {
			return fmt.Errorf("load recent output: %w", err)
		}

		in.MaterialLinks, err = loadMaterialLinks(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return in, nil
}

// loadMaterialLinks collects, for NEW and IN_PROGRESS orders with a production
// start date, every BOM line that sits on a dated non-rejected purchase order.
func loadMaterialLinks(ctx context.Context, tx *repository.Repositories) ([]MaterialLink, error) {
	orders, err := tx.Sales.ListByStatus(ctx, entity.SOStatusNew, entity.SOStatusInProgress)
	if err != nil {
		return nil, fmt.Errorf("list open orders: %w", err)
	}
	soByID := make(map[string]entity.SalesOrder)
	var ids []string
	for _, so := range orders {
		if so.ProductionStartDate == nil {
			continue
		}
		soByID[so.ID] = so
		ids = append(ids, so.ID)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	boms, err := tx.BOM.FindBySalesOrders(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load order boms: %w", err)
	}
	type lineRef struct {
		soID string
		line entity.OrderBOMLine
	}
	lines := make(map[string]lineRef)
	var lineIDs []string
	for _, b := range boms {
		for _, l := range b.Lines {
			lines[l.ID] = lineRef{soID: b.SalesOrderID, line: l}
			lineIDs = append(lineIDs, l.ID)
		}
	}

	poLines, err := tx.Purchase.LinesForBOMLines(ctx, lineIDs)
	if err != nil {
		return nil, fmt.Errorf("load purchase order lines: %w", err)
	}

	var links []MaterialLink
	for _, pl := range poLines {
		po := pl.PurchaseOrder
		if po == nil || po.ArrivalDate == nil || po.Status == entity.POStatusRejected {
			continue
		}
		ref, ok := lines[pl.OrderBOMLineID]
		if !ok {
			continue
		}
		so := soByID[ref.soID]
		links = append(links, MaterialLink{
			SalesOrderID:        so.ID,
			SOCode:              so.SOCode,
			ProductionStartDate: *so.ProductionStartDate,
			Sequence:            ref.line.Sequence,
			MaterialCode:        ref.line.MaterialCode,
			MaterialName:        ref.line.MaterialName,
			PONumber:            po.PONumber,
			ArrivalDate:         *po.ArrivalDate,
		})
	}
	return links, nil
}
