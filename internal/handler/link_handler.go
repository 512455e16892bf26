package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jonp69/DL-Homework-Garden/internal/middleware"
	"github.com/jonp69/DL-Homework-Garden/internal/service"
	appErrors "github.com/jonp69/DL-Homework-Garden/pkg/errors"
	"github.com/jonp69/DL-Homework-Garden/pkg/response"
)

// LinkHandler exposes the link collection endpoints.
type LinkHandler struct {
	service *service.LinkService
}

// NewLinkHandler constructs a link handler.
func NewLinkHandler(svc *service.LinkService) *LinkHandler {
	return &LinkHandler{service: svc}
}

// List godoc
// @Summary List links
// @Description List links filtered by status, deleted flag and url substring
// @Tags Links
// @Produce json
// @Param status query string false "Filter by status"
// @Param deleted query bool false "Filter by deleted flag"
// @Param search query string false "Url substring"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /links [get]
func (h *LinkHandler) List(c *gin.Context) {
	var req service.ListLinksRequest
	req.Status = c.Query("status")
	req.Search = c.Query("search")
	if deleted := c.Query("deleted"); deleted != "" {
		if val, err := strconv.ParseBool(deleted); err == nil {
			req.Deleted = &val
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		req.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		req.PageSize = size
	}

	links, pagination, err := h.service.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, links, pagination)
}

// Get godoc
// @Summary Get one link
// @Description Look up a link record by its url
// @Tags Links
// @Produce json
// @Param url query string true "Link url"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /links/detail [get]
func (h *LinkHandler) Get(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "url query parameter is required"))
		return
	}
	link, err := h.service.Get(c.Request.Context(), url)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Stats returns collection aggregates by status.
func (h *LinkHandler) Stats(c *gin.Context) {
	stats, cacheHit, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

// SetStatus godoc
// @Summary Change link status
// @Description Manually move a link to another lifecycle status
// @Tags Links
// @Accept json
// @Produce json
// @Param payload body service.SetLinkStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /links/status [put]
func (h *LinkHandler) SetStatus(c *gin.Context) {
	var req service.SetLinkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	link, err := h.service.SetStatus(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// SetStatusBulk godoc
// @Summary Change several link statuses
// @Description Apply one status to every listed link, the bulk action behind the affected-links view
// @Tags Links
// @Accept json
// @Produce json
// @Param payload body service.SetLinkStatusBulkRequest true "Bulk status payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /links/status [patch]
func (h *LinkHandler) SetStatusBulk(c *gin.Context) {
	var req service.SetLinkStatusBulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	changed, err := h.service.SetStatusBulk(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"changed": changed}, nil)
}

// Review lists links parked by a limit decision, oldest first.
func (h *LinkHandler) Review(c *gin.Context) {
	links := h.service.Review(c.Request.Context())
	response.JSON(c, http.StatusOK, links, nil)
}
