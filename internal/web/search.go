package web

import (
	stderrors "errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lvow2022/research-assistant/internal/integration/ezproxy"
	"github.com/lvow2022/research-assistant/internal/integration/scholar"
	"github.com/lvow2022/research-assistant/internal/pkg/code"
	"github.com/lvow2022/research-assistant/internal/service"
	"github.com/lvow2022/research-assistant/pkg/ginx"
	"github.com/lvow2022/research-assistant/pkg/ginx/errors"
)

const (
	defaultSearchMax = 10
	maxSearchMax     = 50
)

type SearchHandler struct {
	aggregator *scholar.Aggregator
	gapSvc     service.GapAgentService
	proxy      *ezproxy.Proxy
}

func NewSearchHandler(aggregator *scholar.Aggregator, gapSvc service.GapAgentService, proxy *ezproxy.Proxy) *SearchHandler {
	return &SearchHandler{
		aggregator: aggregator,
		gapSvc:     gapSvc,
		proxy:      proxy,
	}
}

func (h *SearchHandler) RegisterRoutes(server *gin.Engine) {
	g := server.Group("/api")
	g.GET("/search", h.Search)
	g.POST("/gaps", h.FindGaps)
	g.POST("/fetch", h.Fetch)
	g.POST("/proxy/fetch", h.ProxyFetch)
}

func (h *SearchHandler) Search(ctx *gin.Context) {
	var q struct {
		Query string `form:"q"`
		Max   int    `form:"max"`
		Flat  bool   `form:"flat"`
	}
	if err := ctx.ShouldBindQuery(&q); err != nil {
		ginx.WriteResponse(ctx, errors.WithCode(code.ErrBind, err.Error()), nil)
		return
	}
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		ginx.WriteResponse(ctx, errors.WithCode(code.ErrValidation, "query parameter q is required"), nil)
		return
	}
	if q.Max <= 0 {
		q.Max = defaultSearchMax
	}
	if q.Max > maxSearchMax {
		q.Max = maxSearchMax
	}
	results := h.aggregator.SearchAll(ctx.Request.Context(), q.Query, q.Max)
	if q.Flat {
		ginx.WriteResponse(ctx, nil, h.aggregator.Flatten(results))
		return
	}
	ginx.WriteResponse(ctx, nil, results)
}

func (h *SearchHandler) FindGaps(ctx *gin.Context) {
	var req struct {
		ResearchGaps string   `json:"research_gaps" binding:"required"`
		KeyConcepts  []string `json:"key_concepts"`
		Title        string   `json:"title"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ginx.WriteResponse(ctx, errors.WithCode(code.ErrBind, err.Error()), nil)
		return
	}
	res := h.gapSvc.FindPapersForGaps(ctx.Request.Context(), req.ResearchGaps, req.KeyConcepts, req.Title)
	ginx.WriteResponse(ctx, nil, res)
}

type fetchReq struct {
	URL string `json:"url" binding:"required"`
}

func (h *SearchHandler) Fetch(ctx *gin.Context) {
	var req fetchReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ginx.WriteResponse(ctx, errors.WithCode(code.ErrBind, err.Error()), nil)
		return
	}
	d, err := h.gapSvc.FetchAndAnalyzePaper(ctx.Request.Context(), req.URL)
	if err != nil {
		ginx.WriteResponse(ctx, errors.WrapC(err, code.ErrUpstream, "failed to fetch paper"), nil)
		return
	}
	ginx.WriteResponse(ctx, nil, d)
}

func (h *SearchHandler) ProxyFetch(ctx *gin.Context) {
	var req fetchReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ginx.WriteResponse(ctx, errors.WithCode(code.ErrBind, err.Error()), nil)
		return
	}
	res, err := h.proxy.Fetch(ctx.Request.Context(), req.URL)
	switch {
	case err == nil:
		ginx.WriteResponse(ctx, nil, gin.H{
			"url":     res.URL,
			"is_pdf":  res.IsPDF,
			"size":    res.Size,
			"content": proxyPreview(res),
		})
	case stderrors.Is(err, ezproxy.ErrNotConfigured):
		ginx.WriteResponse(ctx, errors.WrapC(err, code.ErrIntegrationDisabled, "EZProxy not configured"), nil)
	default:
		ginx.WriteResponse(ctx, errors.WrapC(err, code.ErrUpstream, "EZProxy authentication failed"), nil)
	}
}

// proxyPreview returns page HTML; PDF bodies are not echoed.
func proxyPreview(r ezproxy.Result) string {
	if r.IsPDF {
		return ""
	}
	return string(r.Content)
}
