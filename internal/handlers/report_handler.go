package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pftsystem/internal/services"
)

// ReportHandler handles report generation.
type ReportHandler struct {
	reportService services.ReportServicer
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService services.ReportServicer) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// ReportRequest represents the request payload for generating a report.
type ReportRequest struct {
	ReportType string   `json:"report_type" binding:"required,report_type"`
	StartDate  string   `json:"start_date" binding:"required"`
	EndDate    string   `json:"end_date" binding:"required"`
	Categories []string `json:"categories" binding:"omitempty,dive,max=100"`
	Tags       []string `json:"tags" binding:"omitempty,dive,max=50"`
}

// GenerateReport builds a report over an inclusive date range.
// @Summary     Generate a report
// @Description Expenditure, income, savings or cashflow report with a summary
// @Tags        reports
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ReportRequest true "Report parameters"
// @Success     200 {object} services.Report "Generated report"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports [post]
func (h *ReportHandler) GenerateReport(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, badRequest(err))
		return
	}

	start, err := parseFlexibleTime(req.StartDate)
	if err != nil {
		respondWithError(c, err)
		return
	}
	end, err := parseFlexibleTime(req.EndDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.reportService.GenerateReport(userID, services.ReportRequest{
		ReportType: services.ReportType(req.ReportType),
		StartDate:  start,
		EndDate:    end,
		Categories: req.Categories,
		Tags:       req.Tags,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
