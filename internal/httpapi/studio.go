package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/atelierhq/atelier/internal/llm/provider"
)

type assistantChatRequest struct {
	Slug        string `json:"slug"`
	Message     string `json:"message"`
	ProjectName string `json:"projectName"`
}

// AssistantChat runs one turn of the ops-assistant conversation.
// POST /api/assistant/chat
func (h *Handler) AssistantChat(c echo.Context) error {
	var req assistantChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	reply, count, err := h.studio.AssistantChat(c.Request().Context(), req.Slug, req.ProjectName, req.Message)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"response":     reply,
		"messageCount": count,
	})
}

type chatMessageRequest struct {
	Slug    string `json:"slug"`
	Message string `json:"message"`
}

// PostChatMessage appends one visitor message to the plain chat log.
// POST /api/chat
func (h *Handler) PostChatMessage(c echo.Context) error {
	var req chatMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	count, err := h.studio.PostChatMessage(c.Request().Context(), req.Slug, req.Message)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"count":   count,
	})
}

type chatEntry struct {
	From      string    `json:"from"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// GetChatHistory returns the plain chat log for a slug. An unknown slug
// is an empty list.
// GET /api/chat?slug=
func (h *Handler) GetChatHistory(c echo.Context) error {
	slug := c.QueryParam("slug")
	if slug == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing required field: slug"})
	}

	msgs, err := h.studio.ChatHistory(c.Request().Context(), slug)
	if err != nil {
		return h.writeError(c, err)
	}

	entries := make([]chatEntry, len(msgs))
	for i, m := range msgs {
		entries[i] = chatEntry{From: m.Role, Text: m.Content, Timestamp: m.Timestamp}
	}
	return c.JSON(http.StatusOK, entries)
}

type brandRequest struct {
	Description string   `json:"description"`
	Features    []string `json:"features"`
}

// GenerateBrand proposes brand directions. A generation that cannot be
// parsed is an empty options list with a 200 status, never an error body.
// POST /api/brand
func (h *Handler) GenerateBrand(c echo.Context) error {
	var req brandRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	options, err := h.studio.GenerateBrand(c.Request().Context(), req.Description, req.Features)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{"options": options})
}

type decomposeRequest struct {
	Features []string `json:"features"`
}

// DecomposeFeatures breaks features into priced task groups.
// POST /api/decompose
func (h *Handler) DecomposeFeatures(c echo.Context) error {
	var req decomposeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	items, err := h.studio.DecomposeFeatures(c.Request().Context(), req.Features)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

type specRequest struct {
	Description string          `json:"description"`
	Features    []string        `json:"features"`
	Brand       json.RawMessage `json:"brand"`
	Total       float64         `json:"total"`
}

// SynthesizeSpec produces a build specification for the configuration.
// POST /api/spec
func (h *Handler) SynthesizeSpec(c echo.Context) error {
	var req specRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	spec, err := h.studio.SynthesizeSpec(c.Request().Context(), req.Description, req.Features, string(req.Brand), req.Total)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{"spec": spec})
}

type reviseRequest struct {
	Message string             `json:"message"`
	History []provider.Message `json:"history"`
	Spec    json.RawMessage    `json:"spec"`
	Brand   json.RawMessage    `json:"brand"`
}

// Revise answers a revision request against an existing specification.
// POST /api/revise
func (h *Handler) Revise(c echo.Context) error {
	var req reviseRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	reply, err := h.studio.Revise(c.Request().Context(), req.Message, req.History, string(req.Spec), string(req.Brand))
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, reply)
}
