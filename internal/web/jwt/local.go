package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

var (
	ErrTokenInvalid   = errors.New("token invalid")
	ErrSessionExpired = errors.New("session expired")
)

var _ Handler = &LocalJWTHandler{}

// LocalJWTHandler keeps live session ids in process memory.
type LocalJWTHandler struct {
	cache         *cache.Cache
	signingMethod jwt.SigningMethod
	jwtKey        []byte
	rcJWTKey      []byte
	expiration    time.Duration
	rcExpiration  time.Duration
}

// NewLocalJWTHandler signs access and refresh tokens with keys derived from
// secret.
func NewLocalJWTHandler(secret string) Handler {
	return &LocalJWTHandler{
		cache:         cache.New(5*time.Minute, 10*time.Minute),
		signingMethod: jwt.SigningMethodHS512,
		jwtKey:        []byte(secret),
		rcJWTKey:      []byte(secret + ":refresh"),
		expiration:    30 * time.Minute,
		rcExpiration:  7 * 24 * time.Hour,
	}
}

func ssidKey(ssid string) string {
	return fmt.Sprintf("users:ssid:%s", ssid)
}

func (h *LocalJWTHandler) CheckSession(ctx *gin.Context, ssid string) error {
	if _, found := h.cache.Get(ssidKey(ssid)); !found {
		return ErrSessionExpired
	}
	return nil
}

// ExtractToken reads a bearer token from the Authorization header.
func (h *LocalJWTHandler) ExtractToken(ctx *gin.Context) string {
	authCode := ctx.GetHeader("Authorization")
	if authCode == "" {
		return ""
	}
	segs := strings.Split(authCode, " ")
	if len(segs) != 2 || !strings.EqualFold(segs[0], "Bearer") {
		return ""
	}
	return segs[1]
}

func (h *LocalJWTHandler) SetLoginToken(ctx *gin.Context, user string) error {
	ssid := uuid.New().String()
	h.cache.Set(ssidKey(ssid), struct{}{}, h.rcExpiration)

	if err := h.setRefreshToken(ctx, user, ssid); err != nil {
		return err
	}
	return h.SetJWTToken(ctx, user, ssid)
}

// ClearToken ends the session of the claims stored by the middleware.
func (h *LocalJWTHandler) ClearToken(ctx *gin.Context) error {
	ctx.Header("x-jwt-token", "")
	ctx.Header("x-refresh-token", "")
	v, ok := ctx.Get(ClaimsKey)
	if !ok {
		return nil
	}
	if uc, ok := v.(UserClaims); ok {
		h.cache.Delete(ssidKey(uc.Ssid))
	}
	return nil
}

func (h *LocalJWTHandler) SetJWTToken(ctx *gin.Context, user string, ssid string) error {
	uc := UserClaims{
		User:      user,
		Ssid:      ssid,
		UserAgent: ctx.GetHeader("User-Agent"),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(h.expiration)),
		},
	}
	tokenStr, err := jwt.NewWithClaims(h.signingMethod, uc).SignedString(h.jwtKey)
	if err != nil {
		return err
	}
	ctx.Header("x-jwt-token", tokenStr)
	return nil
}

func (h *LocalJWTHandler) setRefreshToken(ctx *gin.Context, user string, ssid string) error {
	rc := RefreshClaims{
		User: user,
		Ssid: ssid,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(h.rcExpiration)),
		},
	}
	tokenStr, err := jwt.NewWithClaims(h.signingMethod, rc).SignedString(h.rcJWTKey)
	if err != nil {
		return err
	}
	ctx.Header("x-refresh-token", tokenStr)
	return nil
}

func (h *LocalJWTHandler) ParseAccessToken(token string) (UserClaims, error) {
	var uc UserClaims
	if err := h.parse(token, &uc, h.jwtKey); err != nil {
		return UserClaims{}, err
	}
	return uc, nil
}

func (h *LocalJWTHandler) ParseRefreshToken(token string) (RefreshClaims, error) {
	var rc RefreshClaims
	if err := h.parse(token, &rc, h.rcJWTKey); err != nil {
		return RefreshClaims{}, err
	}
	return rc, nil
}

func (h *LocalJWTHandler) parse(token string, claims jwt.Claims, key []byte) error {
	if token == "" {
		return ErrTokenInvalid
	}
	t, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{h.signingMethod.Alg()}))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !t.Valid {
		return ErrTokenInvalid
	}
	return nil
}
