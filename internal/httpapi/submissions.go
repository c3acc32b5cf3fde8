package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/atelierhq/atelier/internal/submission"
	"github.com/atelierhq/atelier/pkg/observability"
)

type submissionRequest struct {
	Slug  string          `json:"slug"`
	Steps json.RawMessage `json:"steps"`
	Notes string          `json:"notes"`
}

// CreateSubmission records a completed configuration flow.
// POST /api/submissions
func (h *Handler) CreateSubmission(c echo.Context) error {
	var req submissionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Slug == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing required field: slug"})
	}

	sub, err := h.submissions.Create(c.Request().Context(), submission.Submission{
		Slug:      req.Slug,
		Steps:     req.Steps,
		Notes:     req.Notes,
		ClientIP:  c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	})
	if err != nil {
		return h.writeError(c, err)
	}
	observability.RecordSubmission()

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"id":      sub.ID,
	})
}

// ListSubmissions returns all submissions, newest first.
// GET /api/submissions
func (h *Handler) ListSubmissions(c echo.Context) error {
	subs, err := h.submissions.List(c.Request().Context())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, subs)
}
