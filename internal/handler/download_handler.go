package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonp69/DL-Homework-Garden/internal/service"
	appErrors "github.com/jonp69/DL-Homework-Garden/pkg/errors"
	"github.com/jonp69/DL-Homework-Garden/pkg/response"
)

// DownloadHandler exposes queue control and limit decision endpoints.
type DownloadHandler struct {
	service *service.DownloadService
}

// NewDownloadHandler constructs a download handler.
func NewDownloadHandler(svc *service.DownloadService) *DownloadHandler {
	return &DownloadHandler{service: svc}
}

// Start godoc
// @Summary Start a download run
// @Description Claim links from the download tier, then the skip tier, until both drain
// @Tags Downloads
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /downloads/start [post]
func (h *DownloadHandler) Start(c *gin.Context) {
	if err := h.service.Start(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.service.Status(c.Request.Context()), nil)
}

// Pause holds further claims; in-flight downloads keep running.
func (h *DownloadHandler) Pause(c *gin.Context) {
	if err := h.service.Pause(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.service.Status(c.Request.Context()), nil)
}

// Resume lifts a pause.
func (h *DownloadHandler) Resume(c *gin.Context) {
	if err := h.service.Resume(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.service.Status(c.Request.Context()), nil)
}

// Stop ends the run and returns interrupted links to their tier.
func (h *DownloadHandler) Stop(c *gin.Context) {
	if err := h.service.Stop(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.service.Status(c.Request.Context()), nil)
}

// Skip godoc
// @Summary Skip an in-flight download
// @Description Abandon the named download and park the link in the skip tier
// @Tags Downloads
// @Accept json
// @Produce json
// @Param payload body service.SkipRequest true "Skip payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /downloads/skip [post]
func (h *DownloadHandler) Skip(c *gin.Context) {
	var req service.SkipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.service.Skip(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.service.Status(c.Request.Context()), nil)
}

// Status reports runner state, tier depths and pending prompt counts.
func (h *DownloadHandler) Status(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Status(c.Request.Context()), nil)
}

// Decisions lists limit prompts waiting on an operator answer.
func (h *DownloadHandler) Decisions(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.PendingDecisions(c.Request.Context()), nil)
}

// ResolveDecision godoc
// @Summary Answer a limit prompt
// @Description Continue past the limit for this download, or skip and park the link for review
// @Tags Downloads
// @Accept json
// @Produce json
// @Param id path string true "Prompt id"
// @Param payload body service.ResolveDecisionRequest true "Decision payload"
// @Success 204 "resolved"
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /downloads/decisions/{id} [post]
func (h *DownloadHandler) ResolveDecision(c *gin.Context) {
	var req service.ResolveDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ID = c.Param("id")
	if err := h.service.ResolveDecision(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Override godoc
// @Summary Force a retry
// @Description Queue a monitored-limit-free retry for a limit-parked or failed link
// @Tags Downloads
// @Accept json
// @Produce json
// @Param payload body service.OverrideRequest true "Override payload"
// @Success 202 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /downloads/override [post]
func (h *DownloadHandler) Override(c *gin.Context) {
	var req service.OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.service.Override(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, gin.H{"url": req.URL})
}
