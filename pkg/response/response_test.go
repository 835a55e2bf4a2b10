package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/huangang/issuepulse/internal/analytics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performRequest(handler gin.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/test", nil)
	handler(c)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return resp
}

func TestSuccess(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Success(c, map[string]int{"totalRecords": 3})
	})

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	resp := parseResponse(t, w)
	if resp.Code != 0 || resp.Message != "ok" {
		t.Errorf("unexpected envelope %+v", resp)
	}
}

func TestAccepted(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Accepted(c, gin.H{"task_id": "abc"})
	})
	if w.Code != http.StatusAccepted {
		t.Errorf("expected status %d, got %d", http.StatusAccepted, w.Code)
	}
}

func TestFromAnalyticsError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid range", &analytics.InvalidRangeError{Token: "1y"}, http.StatusBadRequest},
		{"unsupported format", fmt.Errorf("%w: %q", analytics.ErrUnsupportedFormat, "pdf"), http.StatusBadRequest},
		{"insufficient data", fmt.Errorf("project: %w", analytics.ErrInsufficientData), http.StatusUnprocessableEntity},
		{"aggregation", &analytics.AggregationError{Op: "fetch records", Err: errors.New("db down")}, http.StatusInternalServerError},
		{"app error passthrough", NewForbidden("nope"), http.StatusForbidden},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromAnalyticsError(tt.err)
			if got.HTTPStatus != tt.status {
				t.Errorf("HTTPStatus = %d, expected %d", got.HTTPStatus, tt.status)
			}
			if got.Code != tt.status {
				t.Errorf("Code = %d, expected %d", got.Code, tt.status)
			}
		})
	}
}

func TestFromAnalyticsError_HidesStoreDetails(t *testing.T) {
	err := &analytics.AggregationError{Op: "fetch records", Err: errors.New("dial tcp 10.0.0.1:5432")}
	if got := FromAnalyticsError(err).Message; got != "failed to fetch records" {
		t.Errorf("Message = %q", got)
	}
}

func TestError_UsesMappedStatus(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Error(c, fmt.Errorf("wrapped: %w", analytics.ErrInsufficientData))
	})

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d", http.StatusUnprocessableEntity, w.Code)
	}
	resp := parseResponse(t, w)
	if resp.Code != 422 {
		t.Errorf("expected code 422, got %d", resp.Code)
	}
}

func TestConvenienceHelpers(t *testing.T) {
	tests := []struct {
		name    string
		handler gin.HandlerFunc
		status  int
	}{
		{"BadRequest", func(c *gin.Context) { BadRequest(c, "bad") }, http.StatusBadRequest},
		{"Unauthorized", func(c *gin.Context) { Unauthorized(c, "who") }, http.StatusUnauthorized},
		{"Forbidden", func(c *gin.Context) { Forbidden(c, "no") }, http.StatusForbidden},
		{"ServerError", func(c *gin.Context) { ServerError(c, "oops") }, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(tt.handler)
			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, w.Code)
			}
			if resp := parseResponse(t, w); resp.Code != tt.status {
				t.Errorf("expected code %d, got %d", tt.status, resp.Code)
			}
		})
	}
}
