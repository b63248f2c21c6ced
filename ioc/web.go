package ioc

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/lvow2022/research-assistant/internal/config"
	"github.com/lvow2022/research-assistant/internal/repository"
	"github.com/lvow2022/research-assistant/internal/repository/storage"
	"github.com/lvow2022/research-assistant/internal/service"
	"github.com/lvow2022/research-assistant/internal/web"
	ijwt "github.com/lvow2022/research-assistant/internal/web/jwt"
	"github.com/lvow2022/research-assistant/internal/web/middleware"
	"github.com/lvow2022/research-assistant/pkg/log"
)

func InitWebServer(cfg *config.Config, mdls []gin.HandlerFunc, paperHdl *web.PaperHandler,
	searchHdl *web.SearchHandler, systemHdl *web.SystemHandler, authHdl *web.AuthHandler) *gin.Engine {
	if log.GetLevel() != log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	server := gin.New()
	server.Use(gin.LoggerWithWriter(log.Logger.Writer()), gin.Recovery())
	server.Use(mdls...)
	if limit := cfg.MaxUploadBytes(); limit > 0 {
		server.MaxMultipartMemory = limit
	}
	paperHdl.RegisterRoutes(server)
	searchHdl.RegisterRoutes(server)
	systemHdl.RegisterRoutes(server)
	authHdl.RegisterRoutes(server)
	return server
}

func InitGinMiddlewares(cfg *config.Config, jwtHdl ijwt.Handler) []gin.HandlerFunc {
	mdls := []gin.HandlerFunc{
		cors.New(cors.Config{
			AllowCredentials: true,
			AllowHeaders:     []string{"Content-Type", "Authorization"},
			// 允许前端读取响应里的 token 头
			ExposeHeaders: []string{"x-jwt-token", "x-refresh-token"},
			AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowOriginFunc: func(origin string) bool {
				return strings.HasPrefix(origin, "http://localhost") ||
					strings.HasPrefix(origin, "http://127.0.0.1")
			},
			MaxAge: 12 * time.Hour,
		}),
	}
	if !cfg.AuthEnabled() {
		log.Warn("AUTH_SECRET not set, /api is open")
		return mdls
	}
	return append(mdls, middleware.NewLoginJWTMiddlewareBuilder(jwtHdl).CheckLogin())
}

func InitPaperHandler(cfg *config.Config, uploadSvc service.UploadService, paperSvc service.PaperService,
	gapSvc service.GapAgentService, repo repository.PaperRepository, store storage.UploadStore) *web.PaperHandler {
	return web.NewPaperHandler(uploadSvc, paperSvc, gapSvc, repo, store, cfg.MaxUploadBytes())
}
