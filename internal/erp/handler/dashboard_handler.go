package handler

import (
	"net/url"

	"github.com/Frankie2101/GSM-sub000/internal/erp/service"
	"github.com/gin-gonic/gin"
)

// DashboardHandler 生产看板处理器
type DashboardHandler struct {
	dashboard *service.DashboardService
	report    *service.ReportService
}

func NewDashboardHandler(dashboard *service.DashboardService, report *service.ReportService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, report: report}
}

// Get 生产看板数据
// GET /api/v1/erp/dashboard?refresh=true
func (h *DashboardHandler) Get(c *gin.Context) {
	d, err := h.dashboard.Build(c.Request.Context(), c.Query("refresh") == "true")
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, d)
}

// ExportWIP 导出WIP报表为Excel
// GET /api/v1/erp/dashboard/wip/export
func (h *DashboardHandler) ExportWIP(c *gin.Context) {
	f, filename, err := h.report.ExportWIP(c.Request.Context())
	if err != nil {
		ServiceError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "写入Excel失败: "+err.Error())
		return
	}
}

// ArchiveWIP 归档WIP报表到对象存储
// POST /api/v1/erp/dashboard/wip/archive
func (h *DashboardHandler) ArchiveWIP(c *gin.Context) {
	key, err := h.report.ArchiveWIP(c.Request.Context(), GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, gin.H{"object": key})
}
