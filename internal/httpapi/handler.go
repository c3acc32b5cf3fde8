// Package httpapi exposes the configuration-flow endpoints over HTTP.
package httpapi

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/atelierhq/atelier/internal/llm"
	"github.com/atelierhq/atelier/internal/llm/provider"
	"github.com/atelierhq/atelier/internal/studio"
	"github.com/atelierhq/atelier/internal/submission"
	"github.com/atelierhq/atelier/internal/upload"
	"github.com/atelierhq/atelier/pkg/session"
)

// Handler handles HTTP requests.
type Handler struct {
	studio      *studio.Service
	submissions *submission.Service
	uploads     *upload.Store
}

// NewHandler creates a new handler.
func NewHandler(studioSvc *studio.Service, submissions *submission.Service, uploads *upload.Store) *Handler {
	return &Handler{
		studio:      studioSvc,
		submissions: submissions,
		uploads:     uploads,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/assistant/chat", h.AssistantChat)

	e.POST("/api/chat", h.PostChatMessage)
	e.GET("/api/chat", h.GetChatHistory)

	e.POST("/api/brand", h.GenerateBrand)
	e.POST("/api/decompose", h.DecomposeFeatures)
	e.POST("/api/spec", h.SynthesizeSpec)
	e.POST("/api/revise", h.Revise)

	e.POST("/api/submissions", h.CreateSubmission)
	e.GET("/api/submissions", h.ListSubmissions)

	e.POST("/api/uploads", h.CreateUpload)
	e.GET("/api/uploads", h.ListUploads)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

// writeError maps service errors onto the response taxonomy: client input
// errors are 400, missing credentials 500, upstream failures 502. Upstream
// details are logged but never echoed to the caller.
func (h *Handler) writeError(c echo.Context, err error) error {
	var badReq *studio.BadRequestError
	if errors.As(err, &badReq) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": badReq.Error()})
	}
	if errors.Is(err, session.ErrInvalidKey) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid slug"})
	}
	if errors.Is(err, llm.ErrNotConfigured) {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "generation provider not configured"})
	}

	var perr *provider.ProviderError
	if errors.As(err, &perr) {
		log.Printf("ERROR: upstream generation failed: provider=%s code=%s status=%d message=%s",
			perr.Provider, perr.Code, perr.StatusCode, perr.Message)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "generation service unavailable"})
	}

	log.Printf("ERROR: request failed: %v", err)
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
