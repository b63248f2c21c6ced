package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lvow2022/research-assistant/internal/pkg/code"
	ijwt "github.com/lvow2022/research-assistant/internal/web/jwt"
	"github.com/lvow2022/research-assistant/pkg/ginx"
	"github.com/lvow2022/research-assistant/pkg/ginx/errors"
)

// LoginJWTMiddlewareBuilder guards routes under the configured prefixes.
type LoginJWTMiddlewareBuilder struct {
	ijwt.Handler
	prefixes []string
}

func NewLoginJWTMiddlewareBuilder(hdl ijwt.Handler) *LoginJWTMiddlewareBuilder {
	return &LoginJWTMiddlewareBuilder{
		Handler:  hdl,
		prefixes: []string{"/api/"},
	}
}

func (m *LoginJWTMiddlewareBuilder) CheckLogin() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !m.guarded(ctx.Request.URL.Path) {
			return
		}
		uc, err := m.ParseAccessToken(m.ExtractToken(ctx))
		if err != nil {
			ginx.WriteResponse(ctx, errors.WrapC(err, code.ErrTokenInvalid, "token invalid"), nil)
			ctx.Abort()
			return
		}
		if uc.UserAgent != "" && uc.UserAgent != ctx.GetHeader("User-Agent") {
			ginx.WriteResponse(ctx, errors.WithCode(code.ErrTokenInvalid, "token issued to another client"), nil)
			ctx.Abort()
			return
		}
		if err := m.CheckSession(ctx, uc.Ssid); err != nil {
			ginx.WriteResponse(ctx, errors.WrapC(err, code.ErrTokenInvalid, "session expired"), nil)
			ctx.Abort()
			return
		}
		ctx.Set(ijwt.ClaimsKey, uc)
	}
}

func (m *LoginJWTMiddlewareBuilder) guarded(path string) bool {
	for _, p := range m.prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
