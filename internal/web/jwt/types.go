package jwt

import (
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type Handler interface {
	SetLoginToken(ctx *gin.Context, user string) error
	SetJWTToken(ctx *gin.Context, user string, ssid string) error
	ClearToken(ctx *gin.Context) error
	CheckSession(ctx *gin.Context, ssid string) error
	ExtractToken(ctx *gin.Context) string
	ParseAccessToken(token string) (UserClaims, error)
	ParseRefreshToken(token string) (RefreshClaims, error)
}

type RefreshClaims struct {
	jwt.RegisteredClaims
	User string
	Ssid string
}

type UserClaims struct {
	jwt.RegisteredClaims
	User      string
	Ssid      string
	UserAgent string
}

// ClaimsKey is where the middleware stores the caller's UserClaims.
const ClaimsKey = "user"
