package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jonp69/DL-Homework-Garden/internal/service"
	appErrors "github.com/jonp69/DL-Homework-Garden/pkg/errors"
	"github.com/jonp69/DL-Homework-Garden/pkg/response"
)

// FilterHandler exposes filter set management endpoints.
type FilterHandler struct {
	service *service.FilterService
}

// NewFilterHandler constructs a filter handler.
func NewFilterHandler(svc *service.FilterService) *FilterHandler {
	return &FilterHandler{service: svc}
}

func filterID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, "filter id must be numeric")
	}
	return id, nil
}

// List godoc
// @Summary List filters
// @Description List filters in priority order, highest priority first
// @Tags Filters
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /filters [get]
func (h *FilterHandler) List(c *gin.Context) {
	filters := h.service.List(c.Request.Context())
	response.JSON(c, http.StatusOK, filters, nil)
}

// Get godoc
// @Summary Get one filter
// @Tags Filters
// @Produce json
// @Param id path int true "Filter id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /filters/{id} [get]
func (h *FilterHandler) Get(c *gin.Context) {
	id, err := filterID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, filter, nil)
}

// Create godoc
// @Summary Create filter
// @Description Append a filter at the lowest priority position
// @Tags Filters
// @Accept json
// @Produce json
// @Param payload body service.FilterPayload true "Filter payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /filters [post]
func (h *FilterHandler) Create(c *gin.Context) {
	var req service.FilterPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	filter, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, filter)
}

// Update godoc
// @Summary Update filter
// @Description Replace a filter's name, rules and action
// @Tags Filters
// @Accept json
// @Produce json
// @Param id path int true "Filter id"
// @Param payload body service.FilterPayload true "Filter payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /filters/{id} [put]
func (h *FilterHandler) Update(c *gin.Context) {
	id, err := filterID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.FilterPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	filter, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, filter, nil)
}

// Delete godoc
// @Summary Delete filter
// @Description Remove a filter and send its links back through classification
// @Tags Filters
// @Produce json
// @Param id path int true "Filter id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /filters/{id} [delete]
func (h *FilterHandler) Delete(c *gin.Context) {
	id, err := filterID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.Delete(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Move godoc
// @Summary Move filter
// @Description Shift a filter up or down the priority order
// @Tags Filters
// @Accept json
// @Produce json
// @Param id path int true "Filter id"
// @Param payload body service.MoveFilterRequest true "Move payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /filters/{id}/move [post]
func (h *FilterHandler) Move(c *gin.Context) {
	id, err := filterID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.MoveFilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	filters, err := h.service.Move(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, filters, nil)
}

// AffectedLinks lists the links whose latest classification matched the filter.
func (h *FilterHandler) AffectedLinks(c *gin.Context) {
	id, err := filterID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	links, err := h.service.AffectedLinks(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, links, nil)
}

// Reprocess godoc
// @Summary Reprocess unmatched links
// @Description Re-run classification over the to_reprocess bucket; may halt on the first unmatched url
// @Tags Filters
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /filters/reprocess [post]
func (h *FilterHandler) Reprocess(c *gin.Context) {
	result, err := h.service.ReprocessAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// PendingAuthoring lists classification halts waiting on a new filter.
func (h *FilterHandler) PendingAuthoring(c *gin.Context) {
	pending := h.service.PendingAuthoring(c.Request.Context())
	response.JSON(c, http.StatusOK, pending, nil)
}

// ResolveAuthoring godoc
// @Summary Resolve an authoring request
// @Description Answer a halted classification with a new filter or a cancel
// @Tags Filters
// @Accept json
// @Produce json
// @Param id path string true "Request id"
// @Param payload body service.ResolveAuthoringRequest true "Resolution payload"
// @Success 204 "resolved"
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /filters/authoring/{id} [post]
func (h *FilterHandler) ResolveAuthoring(c *gin.Context) {
	var req service.ResolveAuthoringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.service.ResolveAuthoring(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
