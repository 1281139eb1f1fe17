package handler

import (
	"github.com/Frankie2101/GSM-sub000/internal/erp/service"
	"github.com/gin-gonic/gin"
)

// ProcurementHandler 采购订单处理器
type ProcurementHandler struct {
	svc *service.ProcurementService
}

func NewProcurementHandler(svc *service.ProcurementService) *ProcurementHandler {
	return &ProcurementHandler{svc: svc}
}

// ListPOs 采购订单列表
// GET /api/v1/erp/purchase-orders?supplier_id=xxx&sales_order_id=xxx&status=xxx&search=xxx
func (h *ProcurementHandler) ListPOs(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"supplier_id":    c.Query("supplier_id"),
		"sales_order_id": c.Query("sales_order_id"),
		"status":         c.Query("status"),
		"search":         c.Query("search"),
	}

	items, total, err := h.svc.ListPOs(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取采购订单列表失败: "+err.Error())
		return
	}

	Success(c, ListResponse{
		Items:      items,
		Pagination: NewPagination(page, pageSize, total),
	})
}

// GetPO 采购订单详情
// GET /api/v1/erp/purchase-orders/:id
func (h *ProcurementHandler) GetPO(c *gin.Context) {
	po, err := h.svc.GetPO(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, po)
}

// UpdatePO 更新采购订单
// PUT /api/v1/erp/purchase-orders/:id
func (h *ProcurementHandler) UpdatePO(c *gin.Context) {
	var req service.UpdatePORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	po, err := h.svc.UpdatePO(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, po)
}

// DeletePO 删除采购订单
// DELETE /api/v1/erp/purchase-orders/:id
func (h *ProcurementHandler) DeletePO(c *gin.Context) {
	if err := h.svc.DeletePO(c.Request.Context(), c.Param("id"), GetUserID(c)); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, nil)
}

// SubmitPO 提交审批
// POST /api/v1/erp/purchase-orders/:id/submit
func (h *ProcurementHandler) SubmitPO(c *gin.Context) {
	po, err := h.svc.Submit(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, po)
}

// ApprovePO 审批通过
// POST /api/v1/erp/purchase-orders/:id/approve
func (h *ProcurementHandler) ApprovePO(c *gin.Context) {
	po, err := h.svc.Approve(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, po)
}

// RejectPO 驳回
// POST /api/v1/erp/purchase-orders/:id/reject
func (h *ProcurementHandler) RejectPO(c *gin.Context) {
	po, err := h.svc.Reject(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, po)
}

// ReceiveLine 行项收货
// POST /api/v1/erp/purchase-orders/:id/lines/:lineId/receive
func (h *ProcurementHandler) ReceiveLine(c *gin.Context) {
	var req service.ReceiveItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	line, err := h.svc.ReceiveLine(c.Request.Context(), c.Param("id"), c.Param("lineId"), req.ReceivedQty, GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, line)
}
