package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonp69/DL-Homework-Garden/internal/middleware"
	"github.com/jonp69/DL-Homework-Garden/internal/models"
	"github.com/jonp69/DL-Homework-Garden/internal/service"
	appErrors "github.com/jonp69/DL-Homework-Garden/pkg/errors"
	"github.com/jonp69/DL-Homework-Garden/pkg/response"
)

// AuthHandler exposes the operator login endpoints.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Login godoc
// @Summary Authenticate the operator
// @Description Exchange the operator credentials for an access token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Me godoc
// @Summary Current operator
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, models.OperatorInfo{Username: claims.Username}, nil)
}

// claimsFromContext reads the claims the JWT middleware stored, or nil when
// the route ran unprotected.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, ok := c.Get(middleware.ContextUserKey)
	if !ok {
		return nil
	}
	claims, isClaims := value.(*models.JWTClaims)
	if !isClaims {
		return nil
	}
	return claims
}
