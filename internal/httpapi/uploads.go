package httpapi

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/atelierhq/atelier/pkg/observability"
)

// CreateUpload stores one attached file for a project.
// POST /api/uploads (multipart: file + slug + stepLabel)
func (h *Handler) CreateUpload(c echo.Context) error {
	slug := c.FormValue("slug")
	if slug == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing required field: slug"})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing required field: file"})
	}

	src, err := fileHeader.Open()
	if err != nil {
		log.Printf("ERROR: open multipart file: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
	defer func() { _ = src.Close() }()

	contentType := fileHeader.Header.Get("Content-Type")
	rec, err := h.uploads.Put(slug, c.FormValue("stepLabel"), fileHeader.Filename, contentType, src)
	if err != nil {
		return h.writeError(c, err)
	}
	observability.RecordUpload(rec.Size)

	return c.JSON(http.StatusOK, map[string]any{
		"success":  true,
		"fileName": rec.FileName,
		"size":     rec.Size,
		"storedAs": rec.StoredAs,
		"type":     rec.Type,
	})
}

// ListUploads returns the stored metadata records for a slug.
// GET /api/uploads?slug=
func (h *Handler) ListUploads(c echo.Context) error {
	slug := c.QueryParam("slug")
	if slug == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing required field: slug"})
	}

	recs, err := h.uploads.List(slug)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, recs)
}
