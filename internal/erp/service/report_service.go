package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var wipExportHeaders = []string{
	"订单号", "款式", "颜色", "开裁日期", "出货日期", "订单数", "已出货",
	"裁剪", "车缝", "水洗", "浸染", "包装", "裁剪WIP", "车缝WIP", "包装WIP", "风险",
}

// ReportService WIP报表导出与归档
type ReportService struct {
	dashboard   *DashboardService
	minioClient *minio.Client
	bucketName  string
	logger      *zap.Logger
}

func NewReportService(dashboard *DashboardService, minioClient *minio.Client, bucketName string, logger *zap.Logger) *ReportService {
	return &ReportService{
		dashboard:   dashboard,
		minioClient: minioClient,
		bucketName:  bucketName,
		logger:      logger,
	}
}

// ExportWIP builds the WIP table workbook from a freshly computed dashboard,
// bypassing and refreshing the cache.
func (s *ReportService) ExportWIP(ctx context.Context) (*excelize.File, string, error) {
	d, err := s.dashboard.Build(ctx, true)
	if err != nil {
		return nil, "", err
	}
	f, err := WIPWorkbook(d.WIPRows)
	if err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("WIP_%s.xlsx", d.GeneratedAt.Format("20060102-150405"))
	return f, filename, nil
}

// WIPWorkbook renders WIP rows into a single-sheet workbook.
func WIPWorkbook(rows []WIPRow) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := "WIP"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	// 表头样式: 加粗
	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	for i, h := range wipExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	var ordered, cutWIP, sewWIP, packWIP float64
	for idx, r := range rows {
		row := idx + 2
		values := []interface{}{
			r.SOCode, r.Style, r.Color, formatDay(r.ProductionStartDate), formatDay(r.ShipDate),
			r.OrderedQty, r.ShippedQty, r.CutQty, r.SewQty, r.WashQty, r.DipQty, r.PackQty,
			r.CutWIP, r.SewWIP, r.PackWIP, r.RiskRemark,
		}
		for i, v := range values {
			col, _ := excelize.ColumnNumberToName(i + 1)
			f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, row), v)
		}
		ordered += r.OrderedQty
		cutWIP += r.CutWIP
		sewWIP += r.SewWIP
		packWIP += r.PackWIP
	}

	// 底部汇总行
	summaryRow := len(rows) + 2
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	f.SetCellValue(sheet, fmt.Sprintf("A%d", summaryRow), "汇总")
	f.SetCellValue(sheet, fmt.Sprintf("F%d", summaryRow), ordered)
	f.SetCellValue(sheet, fmt.Sprintf("M%d", summaryRow), cutWIP)
	f.SetCellValue(sheet, fmt.Sprintf("N%d", summaryRow), sewWIP)
	f.SetCellValue(sheet, fmt.Sprintf("O%d", summaryRow), packWIP)
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("P%d", summaryRow), summaryStyle)

	colWidths := []float64{14, 14, 12, 12, 12, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 28}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}
	return f, nil
}

// ArchiveWIP uploads the WIP workbook to object storage and returns its key.
func (s *ReportService) ArchiveWIP(ctx context.Context, userID string) (string, error) {
	if s.minioClient == nil {
		return "", fmt.Errorf("%w: storage not configured", ErrUnavailable)
	}

	f, _, err := s.ExportWIP(ctx)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return "", fmt.Errorf("write workbook: %w", err)
	}

	objectName := fmt.Sprintf("reports/wip/%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	_, err = s.minioClient.PutObject(ctx, s.bucketName, objectName, bytes.NewReader(buf.Bytes()), int64(buf.Len()), minio.PutObjectOptions{
		ContentType: xlsxContentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload to storage: %w", err)
	}

	s.logger.Info("wip report archived", zap.String("object", objectName), zap.String("user_id", userID))
	return objectName, nil
}

func formatDay(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}
