package handler

import (
	"errors"
	"strconv"

	"github.com/Frankie2101/GSM-sub000/internal/erp/service"
	"github.com/Frankie2101/GSM-sub000/internal/middleware"
	"github.com/gin-gonic/gin"
)

// PermApprovePO 采购订单审批权限
const PermApprovePO = "erp:po:approve"

// Handlers ERP HTTP处理器集合
type Handlers struct {
	BOM         *BOMHandler
	Procurement *ProcurementHandler
	Production  *ProductionHandler
	Dashboard   *DashboardHandler
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		BOM:         NewBOMHandler(services.BOM, services.Procurement),
		Procurement: NewProcurementHandler(services.Procurement),
		Production:  NewProductionHandler(services.Production),
		Dashboard:   NewDashboardHandler(services.Dashboard, services.Report),
	}
}

// Register mounts every ERP route on r.
func (h *Handlers) Register(r gin.IRouter) {
	// 销售订单BOM
	bom := r.Group("/sales-orders/:id/bom")
	{
		bom.GET("", h.BOM.Get)
		bom.PUT("", h.BOM.Save)
		bom.POST("/materialize", h.BOM.Materialize)
		bom.POST("/apply-template", h.BOM.ApplyTemplate)
		bom.POST("/recalculate", h.BOM.Recalculate)
		bom.POST("/purchase-orders", h.BOM.GeneratePOs)
	}

	// 采购订单
	pos := r.Group("/purchase-orders")
	{
		pos.GET("", h.Procurement.ListPOs)
		pos.GET("/:id", h.Procurement.GetPO)
		pos.PUT("/:id", h.Procurement.UpdatePO)
		pos.DELETE("/:id", h.Procurement.DeletePO)
		pos.POST("/:id/submit", h.Procurement.SubmitPO)
		pos.POST("/:id/approve", middleware.RequirePermission(PermApprovePO), h.Procurement.ApprovePO)
		pos.POST("/:id/reject", middleware.RequirePermission(PermApprovePO), h.Procurement.RejectPO)
		pos.POST("/:id/lines/:lineId/receive", h.Procurement.ReceiveLine)
	}

	// 生产产量
	outputs := r.Group("/production-outputs")
	{
		outputs.GET("", h.Production.List)
		outputs.POST("", h.Production.Record)
		outputs.DELETE("", h.Production.BulkDelete)
	}

	// 看板
	dashboard := r.Group("/dashboard")
	{
		dashboard.GET("", h.Dashboard.Get)
		dashboard.GET("/wip/export", h.Dashboard.ExportWIP)
		dashboard.POST("/wip/archive", h.Dashboard.ArchiveWIP)
	}
}

// === 响应辅助函数 ===

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func NewPagination(page, pageSize int, total int64) *Pagination {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return &Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      int(total),
		TotalPages: totalPages,
	}
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// ServiceError maps the service error taxonomy to the response envelope.
func ServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, service.ErrValidation):
		BadRequest(c, err.Error())
	case errors.Is(err, service.ErrInvalidState):
		Error(c, 40900, err.Error())
	case errors.Is(err, service.ErrConflict):
		Error(c, 40901, err.Error())
	case errors.Is(err, service.ErrUnavailable):
		Error(c, 50300, err.Error())
	default:
		InternalError(c, err.Error())
	}
}

// GetUserID 当前操作人，由 JWTAuth 写入
func GetUserID(c *gin.Context) string {
	return c.GetString(middleware.KeyUserID)
}

func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}
