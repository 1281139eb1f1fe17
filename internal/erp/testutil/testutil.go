package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Frankie2101/GSM-sub000/internal/erp/entity"
	"github.com/Frankie2101/GSM-sub000/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const JWTSecret = "gsm-erp-test-secret"

var dbSeq atomic.Int64

// SetupTestDB opens an isolated in-memory sqlite database with every ERP table migrated.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:erp_test_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// 单连接，避免 sqlite 事务内外连接互相锁住
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := entity.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

// SetupRouter creates a gin test router
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// AuthGroup creates an API group with JWT auth middleware for testing
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.JWTAuth(JWTSecret))
}

// GenerateTestToken creates a valid JWT token for testing
func GenerateTestToken(userID, name string, roles, permissions []string) string {
	if roles == nil {
		roles = []string{}
	}
	if permissions == nil {
		permissions = []string{}
	}

	now := time.Now()
	claims := middleware.JWTClaims{
		UserID:      userID,
		Name:        name,
		Email:       userID + "@test.local",
		Roles:       roles,
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    "gsm-erp",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// DefaultTestToken returns a token for a default admin test user
func DefaultTestToken() string {
	return GenerateTestToken("test-user-001", "Test Admin", []string{middleware.AdminRole}, []string{"*"})
}

// DoRequest executes an HTTP request against the test router
func DoRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse parses the JSON response body into a handler.Response-like map
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// Day returns midnight UTC of the given date.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DayPtr is Day returning a pointer.
func DayPtr(year int, month time.Month, day int) *time.Time {
	d := Day(year, month, day)
	return &d
}

// MasterData 基础资料种子数据
type MasterData struct {
	Supplier    *entity.Supplier
	AltSupplier *entity.Supplier
	Unit        *entity.Unit
	FabricGroup *entity.MaterialGroup
	TrimGroup   *entity.MaterialGroup
	Fabric      *entity.Fabric
	Trim        *entity.Trim
	Customer    *entity.Customer
}

// SeedMasterData creates two suppliers, one fabric and one trim.
// The fabric defaults to Supplier (USD, 10% tax); the trim defaults to AltSupplier (VND, no tax).
func SeedMasterData(t *testing.T, db *gorm.DB) *MasterData {
	t.Helper()

	m := &MasterData{
		Supplier:    &entity.Supplier{Code: "SUP-001", Name: "面料供应商A", Currency: "USD", TaxRate: 10, Status: "active"},
		AltSupplier: &entity.Supplier{Code: "SUP-002", Name: "辅料供应商B", Currency: "VND", TaxRate: 0, Status: "active"},
		Unit:        &entity.Unit{Code: "M", Name: "米"},
		FabricGroup: &entity.MaterialGroup{Code: "FAB-KNIT", Name: "针织面料", Kind: entity.MaterialKindFabric},
		TrimGroup:   &entity.MaterialGroup{Code: "TRM-BTN", Name: "纽扣", Kind: entity.MaterialKindTrim},
		Customer:    &entity.Customer{Code: "CUS-001", Name: "测试客户"},
	}
	for _, v := range []interface{}{m.Supplier, m.AltSupplier, m.Unit, m.FabricGroup, m.TrimGroup, m.Customer} {
		if err := db.Create(v).Error; err != nil {
			t.Fatalf("Failed to seed master data: %v", err)
		}
	}

	m.Fabric = &entity.Fabric{
		Code:            "FAB-001",
		Name:            "全棉汗布",
		Composition:     "100% Cotton",
		Width:           180,
		MaterialGroupID: m.FabricGroup.ID,
		UnitID:          m.Unit.ID,
		SupplierID:      &m.Supplier.ID,
	}
	if err := db.Create(m.Fabric).Error; err != nil {
		t.Fatalf("Failed to seed fabric: %v", err)
	}

	m.Trim = &entity.Trim{
		Code:            "TRM-001",
		Name:            "四眼纽扣",
		Specification:   "18L",
		MaterialGroupID: m.TrimGroup.ID,
		UnitID:          m.Unit.ID,
		SupplierID:      &m.AltSupplier.ID,
	}
	if err := db.Create(m.Trim).Error; err != nil {
		t.Fatalf("Failed to seed trim: %v", err)
	}
	return m
}

// SalesOrderSeed 销售订单种子参数
type SalesOrderSeed struct {
	Code            string
	CustomerID      string
	Status          string
	ProductionStart *time.Time
	ShipDate        *time.Time
	ProductionEnd   *time.Time
	Lines           []entity.SalesOrderLine
}

// SeedSalesOrder creates a sales order with its lines.
func SeedSalesOrder(t *testing.T, db *gorm.DB, s SalesOrderSeed) *entity.SalesOrder {
	t.Helper()
	if s.Status == "" {
		s.Status = entity.SOStatusNew
	}
	so := &entity.SalesOrder{
		SOCode:              s.Code,
		CustomerID:          s.CustomerID,
		Status:              s.Status,
		ProductionStartDate: s.ProductionStart,
		ShipDate:            s.ShipDate,
		ProductionEndDate:   s.ProductionEnd,
		CreatedBy:           "test-user-001",
	}
	for i := range s.Lines {
		if s.Lines[i].ProductID == "" {
			s.Lines[i].ProductID = "prod-" + s.Lines[i].Style
		}
	}
	so.Lines = s.Lines
	if err := db.Create(so).Error; err != nil {
		t.Fatalf("Failed to seed sales order: %v", err)
	}
	return so
}

// SOLine is shorthand for a sales order line.
func SOLine(style, color, size string, qty float64) entity.SalesOrderLine {
	return entity.SalesOrderLine{Style: style, Color: color, Size: size, Quantity: qty}
}

// SeedTemplate creates a BOM template with the given lines.
func SeedTemplate(t *testing.T, db *gorm.DB, code string, lines ...entity.BOMTemplateLine) *entity.BOMTemplate {
	t.Helper()
	for i := range lines {
		if lines[i].Sequence == 0 {
			lines[i].Sequence = i + 1
		}
	}
	tpl := &entity.BOMTemplate{Code: code, Name: "模板 " + code, ProductCategory: "T-Shirt", Lines: lines}
	if err := db.Create(tpl).Error; err != nil {
		t.Fatalf("Failed to seed template: %v", err)
	}
	return tpl
}

// TemplateLine is shorthand for a template line.
func TemplateLine(ref entity.MaterialRef, usage, waste float64) entity.BOMTemplateLine {
	return entity.BOMTemplateLine{Material: ref, Usage: usage, WastePercent: waste}
}

// SeedOutput records a production output row directly.
func SeedOutput(t *testing.T, db *gorm.DB, salesOrderID, style, color, dept string, day time.Time, qty float64) {
	t.Helper()
	o := &entity.ProductionOutput{
		SalesOrderID: salesOrderID,
		Style:        style,
		Color:        color,
		Department:   dept,
		OutputDate:   day,
		Quantity:     qty,
		CreatedBy:    "test-user-001",
	}
	if err := db.Create(o).Error; err != nil {
		t.Fatalf("Failed to seed output: %v", err)
	}
}
