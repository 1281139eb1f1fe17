package handler

import (
	"github.com/Frankie2101/GSM-sub000/internal/erp/service"
	"github.com/gin-gonic/gin"
)

// BOMHandler 订单BOM处理器
type BOMHandler struct {
	svc         *service.BOMService
	procurement *service.ProcurementService
}

func NewBOMHandler(svc *service.BOMService, procurement *service.ProcurementService) *BOMHandler {
	return &BOMHandler{svc: svc, procurement: procurement}
}

type templateRequest struct {
	TemplateID string `json:"template_id" binding:"required"`
}

// Get 获取订单BOM（首次访问自动创建）
// GET /api/v1/erp/sales-orders/:id/bom
func (h *BOMHandler) Get(c *gin.Context) {
	bom, err := h.svc.GetOrCreate(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, bom)
}

// Save 保存订单BOM
// PUT /api/v1/erp/sales-orders/:id/bom
func (h *BOMHandler) Save(c *gin.Context) {
	var req service.SaveBOMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	bom, err := h.svc.Save(c.Request.Context(), c.Param("id"), &req, GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, bom)
}

// Materialize 模板展开预览（不保存）
// POST /api/v1/erp/sales-orders/:id/bom/materialize
func (h *BOMHandler) Materialize(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	bom, err := h.svc.Materialize(c.Request.Context(), c.Param("id"), req.TemplateID)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, bom)
}

// ApplyTemplate 应用模板并保存
// POST /api/v1/erp/sales-orders/:id/bom/apply-template
func (h *BOMHandler) ApplyTemplate(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	bom, err := h.svc.ApplyTemplate(c.Request.Context(), c.Param("id"), req.TemplateID, GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, bom)
}

// Recalculate 按当前订单数量重算需求
// POST /api/v1/erp/sales-orders/:id/bom/recalculate
func (h *BOMHandler) Recalculate(c *gin.Context) {
	bom, err := h.svc.Recalculate(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, bom)
}

// GeneratePOs 从BOM行生成采购订单
// POST /api/v1/erp/sales-orders/:id/bom/purchase-orders
func (h *BOMHandler) GeneratePOs(c *gin.Context) {
	var req service.GeneratePORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.procurement.GenerateFromBOMLines(c.Request.Context(), c.Param("id"), &req, GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, result)
}
