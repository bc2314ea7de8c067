package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/ifta-backend-go/internal/ifta"
	"github.com/jengzang/ifta-backend-go/internal/service"
	"github.com/jengzang/ifta-backend-go/internal/units"
	"github.com/jengzang/ifta-backend-go/pkg/response"
)

// ReportHandler serves quarterly IFTA reports
type ReportHandler struct {
	service *service.ReportService
	now     func() time.Time
}

// NewReportHandler creates a new report handler
func NewReportHandler(service *service.ReportService) *ReportHandler {
	return &ReportHandler{service: service, now: time.Now}
}

// GetQuarterly handles GET /api/v1/reports/quarterly
func (h *ReportHandler) GetQuarterly(c *gin.Context) {
	q, err := quarterFromQuery(c, h.now)
	if err != nil {
		response.BadRequest(c, "Invalid quarter", err)
		return
	}
	system, err := units.ParseSystem(c.Query("units"))
	if err != nil {
		response.BadRequest(c, "Invalid units", err)
		return
	}

	report, err := h.service.Quarterly(c.Request.Context(), q, system)
	if err != nil {
		fail(c, "Failed to build report", err)
		return
	}
	response.Success(c, report)
}

// GetQuarterlyCSV handles GET /api/v1/reports/quarterly.csv
func (h *ReportHandler) GetQuarterlyCSV(c *gin.Context) {
	q, err := quarterFromQuery(c, h.now)
	if err != nil {
		response.BadRequest(c, "Invalid quarter", err)
		return
	}

	var buf bytes.Buffer
	if err := h.service.WriteCSV(c.Request.Context(), q, &buf); err != nil {
		fail(c, "Failed to build report", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, ifta.CSVFilename(q)))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// quarterFromQuery reads ?year&quarter or ?q=2025-Q3. Without either the
// current quarter is used.
func quarterFromQuery(c *gin.Context, now func() time.Time) (ifta.Quarter, error) {
	if s := c.Query("q"); s != "" {
		return ifta.ParseQuarter(s)
	}

	yearStr, quarterStr := c.Query("year"), c.Query("quarter")
	if yearStr == "" && quarterStr == "" {
		return ifta.QuarterOf(now().UTC()), nil
	}

	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return ifta.Quarter{}, fmt.Errorf("invalid year %q", yearStr)
	}
	number, err := strconv.Atoi(quarterStr)
	if err != nil {
		return ifta.Quarter{}, fmt.Errorf("invalid quarter %q", quarterStr)
	}
	return ifta.NewQuarter(year, number)
}
