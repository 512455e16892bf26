package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating the operator.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and operator info.
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresIn   int64        `json:"expires_in"`
	IssuedAt    time.Time    `json:"issued_at"`
	Operator    OperatorInfo `json:"operator"`
}

// OperatorInfo describes the authenticated operator in responses.
type OperatorInfo struct {
	Username string `json:"username"`
}

// JWTClaims embeds the registered claims plus the operator identity.
type JWTClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}
