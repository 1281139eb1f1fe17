package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Frankie2101/GSM-sub000/internal/erp/entity"
	"github.com/Frankie2101/GSM-sub000/internal/erp/repository"
	"github.com/Frankie2101/GSM-sub000/internal/metrics"
	"go.uber.org/zap"
)

// ProductionService 生产产量记录
type ProductionService struct {
	dashboardHook
	repos  *repository.Repositories
	logger *zap.Logger
}

func NewProductionService(repos *repository.Repositories, invalidator DashboardInvalidator, logger *zap.Logger) *ProductionService {
	return &ProductionService{dashboardHook: dashboardHook{invalidator}, repos: repos, logger: logger}
}

// RecordOutputRequest 产量录入请求
type RecordOutputRequest struct {
	SalesOrderID   string     `json:"sales_order_id" binding:"required"`
	Style          string     `json:"style" binding:"required"`
	Color          string     `json:"color" binding:"required"`
	Department     string     `json:"department" binding:"required"`
	ProductionLine string     `json:"production_line"`
	OutputDate     *time.Time `json:"output_date"`
	Quantity       float64    `json:"quantity" binding:"required"`
}

// Record 录入产量（只增不改）
func (s *ProductionService) Record(ctx context.Context, req *RecordOutputRequest, userID string) (*entity.ProductionOutput, error) {
	dept := strings.ToUpper(strings.TrimSpace(req.Department))
	switch {
	case !entity.IsDepartment(dept):
		return nil, fmt.Errorf("%w: unknown department %q", ErrValidation, req.Department)
	case req.Quantity <= 0:
		return nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	case strings.TrimSpace(req.Style) == "" || strings.TrimSpace(req.Color) == "":
		return nil, fmt.Errorf("%w: style and color are required", ErrValidation)
	}

	ok, err := s.repos.Sales.Exists(ctx, req.SalesOrderID)
	if err != nil {
		return nil, fmt.Errorf("find sales order: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("sales order %s: %w", req.SalesOrderID, ErrNotFound)
	}

	outputDate := civilDay(time.Now())
	if req.OutputDate != nil {
		outputDate = civilDay(*req.OutputDate)
	}
	out := &entity.ProductionOutput{
		SalesOrderID:   req.SalesOrderID,
		Style:          strings.TrimSpace(req.Style),
		Color:          strings.TrimSpace(req.Color),
		Department:     dept,
		ProductionLine: req.ProductionLine,
		OutputDate:     outputDate,
		Quantity:       req.Quantity,
		CreatedBy:      userID,
	}
	if err := s.repos.Production.Create(ctx, out); err != nil {
		return nil, fmt.Errorf("create production output: %w", err)
	}

	metrics.OutputUnits.WithLabelValues(dept).Add(req.Quantity)
	s.invalidate(ctx)
	return out, nil
}

// BulkDelete 按条件批量删除产量记录，不允许空条件
func (s *ProductionService) BulkDelete(ctx context.Context, filter repository.OutputFilter, userID string) (int64, error) {
	if filter.IsEmpty() {
		return 0, fmt.Errorf("%w: a sales order, department or date range is required", ErrValidation)
	}
	n, err := s.repos.Production.Delete(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("delete production outputs: %w", err)
	}

	s.logger.Info("production outputs deleted",
		zap.String("sales_order_id", filter.SalesOrderID),
		zap.String("department", filter.Department),
		zap.Int64("rows", n),
		zap.String("user_id", userID))
	if n > 0 {
		s.invalidate(ctx)
	}
	return n, nil
}

// List 分页查询产量记录
func (s *ProductionService) List(ctx context.Context, filter repository.OutputFilter, page, pageSize int) ([]entity.ProductionOutput, int64, error) {
	return s.repos.Production.FindAll(ctx, filter, page, pageSize)
}
