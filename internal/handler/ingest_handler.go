package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonp69/DL-Homework-Garden/internal/service"
	appErrors "github.com/jonp69/DL-Homework-Garden/pkg/errors"
	"github.com/jonp69/DL-Homework-Garden/pkg/response"
)

// IngestHandler exposes link-file ingestion endpoints.
type IngestHandler struct {
	service *service.IngestService
}

// NewIngestHandler constructs an ingest handler.
func NewIngestHandler(svc *service.IngestService) *IngestHandler {
	return &IngestHandler{service: svc}
}

// IngestFile godoc
// @Summary Queue a link file
// @Description Queue one link file for ingestion; set force to re-run a processed file
// @Tags Ingest
// @Accept json
// @Produce json
// @Param payload body service.IngestFileRequest true "File payload"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /ingest/files [post]
func (h *IngestHandler) IngestFile(c *gin.Context) {
	var req service.IngestFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	queued, err := h.service.IngestFile(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, queued)
}

// Clipboard godoc
// @Summary Ingest a clipboard capture
// @Description Persist the capture and classify its urls inline
// @Tags Ingest
// @Accept json
// @Produce json
// @Param payload body service.ClipboardRequest true "Clipboard payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /ingest/clipboard [post]
func (h *IngestHandler) Clipboard(c *gin.Context) {
	var req service.ClipboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	report, err := h.service.IngestClipboard(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Scan queues a sweep of the configured link-files directory.
func (h *IngestHandler) Scan(c *gin.Context) {
	queued, err := h.service.TriggerScan(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, queued)
}

// Resume re-runs every halted batch and returns their reports.
func (h *IngestHandler) Resume(c *gin.Context) {
	reports, err := h.service.ResumeHalted(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reports, nil)
}

// Batches godoc
// @Summary List ingestion batches
// @Tags Ingest
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /batches [get]
func (h *IngestHandler) Batches(c *gin.Context) {
	batches := h.service.Batches(c.Request.Context())
	response.JSON(c, http.StatusOK, batches, nil)
}

// Batch looks up the batch record for one source file path.
func (h *IngestHandler) Batch(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "path query parameter is required"))
		return
	}
	batch, err := h.service.Batch(c.Request.Context(), path)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batch, nil)
}
