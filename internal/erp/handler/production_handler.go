package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/Frankie2101/GSM-sub000/internal/erp/repository"
	"github.com/Frankie2101/GSM-sub000/internal/erp/service"
	"github.com/gin-gonic/gin"
)

// ProductionHandler 生产产量处理器
type ProductionHandler struct {
	svc *service.ProductionService
}

func NewProductionHandler(svc *service.ProductionService) *ProductionHandler {
	return &ProductionHandler{svc: svc}
}

// outputFilter 从查询参数解析 sales_order_id / department / from / to
func outputFilter(c *gin.Context) (repository.OutputFilter, error) {
	f := repository.OutputFilter{
		SalesOrderID: c.Query("sales_order_id"),
		Department:   strings.ToUpper(c.Query("department")),
	}
	for _, p := range []struct {
		key  string
		dest **time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		v := c.Query(p.key)
		if v == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return f, fmt.Errorf("invalid %s date %q", p.key, v)
		}
		*p.dest = &t
	}
	return f, nil
}

// List 产量记录列表
// GET /api/v1/erp/production-outputs?sales_order_id=xxx&department=CUT&from=2024-01-01&to=2024-01-31
func (h *ProductionHandler) List(c *gin.Context) {
	filter, err := outputFilter(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	page, pageSize := GetPagination(c)

	items, total, err := h.svc.List(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		InternalError(c, "获取产量列表失败: "+err.Error())
		return
	}

	Success(c, ListResponse{
		Items:      items,
		Pagination: NewPagination(page, pageSize, total),
	})
}

// Record 录入产量
// POST /api/v1/erp/production-outputs
func (h *ProductionHandler) Record(c *gin.Context) {
	var req service.RecordOutputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	output, err := h.svc.Record(c.Request.Context(), &req, GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, output)
}

// BulkDelete 按条件批量删除产量记录
// DELETE /api/v1/erp/production-outputs?sales_order_id=xxx&department=SEW
func (h *ProductionHandler) BulkDelete(c *gin.Context) {
	filter, err := outputFilter(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	deleted, err := h.svc.BulkDelete(c.Request.Context(), filter, GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"deleted": deleted})
}
