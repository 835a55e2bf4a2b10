package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangang/issuepulse/internal/analytics"
	"github.com/huangang/issuepulse/internal/middleware"
	"github.com/huangang/issuepulse/internal/services"
	"github.com/huangang/issuepulse/pkg/response"
)

const maxProjectionDays = 365

type AnalyticsHandler struct {
	service *services.AnalyticsService
	queue   services.TaskQueue
	loc     *time.Location
}

func NewAnalyticsHandler(service *services.AnalyticsService, queue services.TaskQueue, loc *time.Location) *AnalyticsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AnalyticsHandler{service: service, queue: queue, loc: loc}
}

// AnalyticsQuery is the query string shared by the read endpoints.
type AnalyticsQuery struct {
	Range     string `form:"range"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	UserID    *uint  `form:"user_id"`
	Severity  string `form:"severity"`
	IssueType string `form:"issue_type"`
	Status    string `form:"status"`
}

// filter validates the query and scopes it to the caller.
func (h *AnalyticsHandler) filter(c *gin.Context) (analytics.Filter, error) {
	var q AnalyticsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return analytics.Filter{}, response.NewBadRequest(err.Error())
	}

	f := analytics.Filter{
		Range:  q.Range,
		UserID: middleware.ScopedUserID(c, q.UserID),
	}
	if q.Range != "" && !analytics.ValidRange(q.Range) {
		return f, &analytics.InvalidRangeError{Token: q.Range}
	}

	if q.StartDate != "" {
		start, err := parseDate(q.StartDate, h.loc, false)
		if err != nil {
			return f, response.NewBadRequest("invalid start_date: " + err.Error())
		}
		f.Start = start
	}
	if q.EndDate != "" {
		end, err := parseDate(q.EndDate, h.loc, true)
		if err != nil {
			return f, response.NewBadRequest("invalid end_date: " + err.Error())
		}
		f.End = end
	}
	if !f.Start.IsZero() && !f.End.IsZero() && f.End.Before(f.Start) {
		return f, response.NewBadRequest("end_date is before start_date")
	}

	if q.Severity != "" {
		s := analytics.Severity(q.Severity)
		if !contains(analytics.Severities, s) {
			return f, response.NewBadRequest(fmt.Sprintf("unknown severity %q", q.Severity))
		}
		f.Severity = s
	}
	if q.IssueType != "" {
		t := analytics.IssueType(q.IssueType)
		if !contains(analytics.IssueTypes, t) {
			return f, response.NewBadRequest(fmt.Sprintf("unknown issue_type %q", q.IssueType))
		}
		f.IssueType = t
	}
	if q.Status != "" {
		s := analytics.Status(q.Status)
		if !contains(analytics.Statuses, s) {
			return f, response.NewBadRequest(fmt.Sprintf("unknown status %q", q.Status))
		}
		f.Status = s
	}
	return f, nil
}

// parseDate accepts RFC 3339 or a bare date. A bare end date covers the
// whole day.
func parseDate(value string, loc *time.Location, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(analytics.DateLayout, value, loc)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, nil
}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// GetSnapshot GET /api/analytics/snapshot
func (h *AnalyticsHandler) GetSnapshot(c *gin.Context) {
	f, err := h.filter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	snapshot, err := h.service.Snapshot(c.Request.Context(), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, snapshot)
}

// GetProjection GET /api/analytics/projection?days=
func (h *AnalyticsHandler) GetProjection(c *gin.Context) {
	f, err := h.filter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	days := h.service.DefaultProjectionDays()
	if raw := c.Query("days"); raw != "" {
		days, err = strconv.Atoi(raw)
		if err != nil || days > maxProjectionDays {
			response.BadRequest(c, fmt.Sprintf("days must be an integer up to %d", maxProjectionDays))
			return
		}
	}

	result, err := h.service.Projection(c.Request.Context(), f, days)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Export GET /api/analytics/export?format=json|csv|xlsx
func (h *AnalyticsHandler) Export(c *gin.Context) {
	f, err := h.filter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	out, err := h.service.Export(c.Request.Context(), f, c.DefaultQuery("format", "json"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
	c.Data(http.StatusOK, out.ContentType, out.Payload)
}

// GetPatterns GET /api/analytics/patterns
func (h *AnalyticsHandler) GetPatterns(c *gin.Context) {
	f, err := h.filter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	patterns, err := h.service.Patterns(c.Request.Context(), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, patterns)
}

type ClassifyRequest struct {
	Text string `json:"text" binding:"required"`
}

// Classify POST /api/analytics/classify
func (h *AnalyticsHandler) Classify(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, h.service.Classify(req.Text))
}

type DetectPatternsRequest struct {
	AnalysisID uint       `json:"analysis_id"`
	Text       string     `json:"text" binding:"required"`
	OccurredAt *time.Time `json:"occurred_at"`
}

// DetectPatterns POST /api/analytics/patterns/detect
func (h *AnalyticsHandler) DetectPatterns(c *gin.Context) {
	var req DetectPatternsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	task := &services.PatternTask{AnalysisID: req.AnalysisID, Text: req.Text}
	if req.OccurredAt != nil {
		task.OccurredAt = *req.OccurredAt
	}

	id, err := h.queue.Enqueue(c.Request.Context(), task)
	if err != nil {
		response.Error(c, fmt.Errorf("enqueue pattern task: %w", err))
		return
	}
	response.Accepted(c, gin.H{
		"task_id": id,
		"async":   h.queue.IsAsync(),
	})
}
