package service

import (
	"context"
	"time"

	"github.com/Frankie2101/GSM-sub000/internal/erp/repository"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Services ERP 服务集合
type Services struct {
	BOM         *BOMService
	Procurement *ProcurementService
	Production  *ProductionService
	Dashboard   *DashboardService
	Report      *ReportService
}

// Options carries the optional infrastructure of the service layer. Nil
// clients disable caching and report archiving.
type Options struct {
	Redis      *redis.Client
	MinIO      *minio.Client
	Bucket     string
	CacheTTL   time.Duration
	Thresholds RiskThresholds
}

// DashboardInvalidator drops cached dashboard data after a write that feeds it.
type DashboardInvalidator interface {
	Invalidate(ctx context.Context)
}

// dashboardHook is embedded by services whose writes change dashboard inputs.
type dashboardHook struct {
	invalidator DashboardInvalidator
}

func (h dashboardHook) invalidate(ctx context.Context) {
	if h.invalidator != nil {
		h.invalidator.Invalidate(ctx)
	}
}

func NewServices(repos *repository.Repositories, opts Options, logger *zap.Logger) *Services {
	dashboard := NewDashboardService(repos, opts.Redis, opts.CacheTTL, opts.Thresholds, logger)
	return &Services{
		BOM:         NewBOMService(repos, dashboard, logger),
		Procurement: NewProcurementService(repos, dashboard, logger),
		Production:  NewProductionService(repos, dashboard, logger),
		Dashboard:   dashboard,
		Report:      NewReportService(dashboard, opts.MinIO, opts.Bucket, logger),
	}
}
