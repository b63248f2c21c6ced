package web

import (
	"crypto/subtle"

	regexp "github.com/dlclark/regexp2"
	"github.com/gin-gonic/gin"

	"github.com/lvow2022/research-assistant/internal/config"
	"github.com/lvow2022/research-assistant/internal/pkg/code"
	ijwt "github.com/lvow2022/research-assistant/internal/web/jwt"
	"github.com/lvow2022/research-assistant/pkg/ginx"
	"github.com/lvow2022/research-assistant/pkg/ginx/errors"
	"github.com/lvow2022/research-assistant/pkg/log"
)

const (
	usernameRegexPattern = `^[\w.@-]{1,64}$`
	passwordRegexPattern = `^(?=.*[A-Za-z])(?=.*\d)(?=.*[$@$!%*#?&])[A-Za-z\d$@$!%*#?&]{8,}$`
)

type AuthHandler struct {
	usernameRegex  *regexp.Regexp
	passwordRexExp *regexp.Regexp
	jwtHdl         ijwt.Handler
	state          *config.State
}

func NewAuthHandler(jwtHdl ijwt.Handler, state *config.State) *AuthHandler {
	h := &AuthHandler{
		usernameRegex:  regexp.MustCompile(usernameRegexPattern, regexp.None),
		passwordRexExp: regexp.MustCompile(passwordRegexPattern, regexp.None),
		jwtHdl:         jwtHdl,
		state:          state,
	}
	if cfg := state.Current(); cfg.AuthEnabled() {
		if ok, _ := h.passwordRexExp.MatchString(cfg.Auth.Password); !ok {
			log.Warn("auth password is weak: use 8+ characters with a letter, a digit and a symbol")
		}
	}
	return h
}

func (h *AuthHandler) RegisterRoutes(server *gin.Engine) {
	g := server.Group("/auth")
	g.POST("/login", h.Login)
	g.POST("/refresh", h.Refresh)
	g.POST("/logout", h.Logout)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	type ReqBody struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	var req ReqBody
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ginx.WriteResponse(ctx, errors.WithCode(code.ErrBind, err.Error()), nil)
		return
	}
	cfg := h.state.Current()
	if !cfg.AuthEnabled() {
		ginx.WriteResponse(ctx, errors.WithCode(code.ErrIntegrationDisabled, "authentication is disabled"), nil)
		return
	}
	if ok, err := h.usernameRegex.MatchString(req.Username); err != nil || !ok {
		ginx.WriteResponse(ctx, errors.WithCode(code.ErrValidation, "invalid username"), nil)
		return
	}
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(cfg.Auth.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(cfg.Auth.Password)) == 1
	if !userOK || !passOK {
		ginx.WriteResponse(ctx, errors.WithCode(code.ErrUnauthorized, "username or password is incorrect"), nil)
		return
	}
	if err := h.jwtHdl.SetLoginToken(ctx, req.Username); err != nil {
		ginx.WriteResponse(ctx, err, nil)
		return
	}
	ginx.WriteResponse(ctx, nil, gin.H{"user": req.Username})
}

// Refresh issues a new access token for the refresh token in the
// Authorization header.
func (h *AuthHandler) Refresh(ctx *gin.Context) {
	rc, err := h.jwtHdl.ParseRefreshToken(h.jwtHdl.ExtractToken(ctx))
	if err != nil {
		ginx.WriteResponse(ctx, errors.WrapC(err, code.ErrTokenInvalid, "token invalid"), nil)
		return
	}
	if err := h.jwtHdl.CheckSession(ctx, rc.Ssid); err != nil {
		ginx.WriteResponse(ctx, errors.WrapC(err, code.ErrTokenInvalid, "session expired"), nil)
		return
	}
	if err := h.jwtHdl.SetJWTToken(ctx, rc.User, rc.Ssid); err != nil {
		ginx.WriteResponse(ctx, err, nil)
		return
	}
	ginx.WriteResponse(ctx, nil, nil)
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	if uc, err := h.jwtHdl.ParseAccessToken(h.jwtHdl.ExtractToken(ctx)); err == nil {
		ctx.Set(ijwt.ClaimsKey, uc)
	}
	if err := h.jwtHdl.ClearToken(ctx); err != nil {
		ginx.WriteResponse(ctx, err, nil)
		return
	}
	ginx.WriteResponse(ctx, nil, nil)
}
