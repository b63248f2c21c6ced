package web

import (
	stderrors "errors"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lvow2022/research-assistant/internal/domain"
	"github.com/lvow2022/research-assistant/internal/pkg/code"
	"github.com/lvow2022/research-assistant/internal/repository"
	"github.com/lvow2022/research-assistant/internal/repository/dao"
	"github.com/lvow2022/research-assistant/internal/repository/storage"
	"github.com/lvow2022/research-assistant/internal/service"
	"github.com/lvow2022/research-assistant/pkg/ginx"
	"github.com/lvow2022/research-assistant/pkg/ginx/errors"
	"github.com/lvow2022/research-assistant/pkg/log"
)

type PaperHandler struct {
	uploadSvc service.UploadService
	paperSvc  service.PaperService
	gapSvc    service.GapAgentService
	repo      repository.PaperRepository
	store     storage.UploadStore
	maxBytes  int64
}

func NewPaperHandler(uploadSvc service.UploadService, paperSvc service.PaperService, gapSvc service.GapAgentService,
	repo repository.PaperRepository, store storage.UploadStore, maxBytes int64) *PaperHandler {
	return &PaperHandler{
		uploadSvc: uploadSvc,
		paperSvc:  paperSvc,
		gapSvc:    gapSvc,
		repo:      repo,
		store:     store,
		maxBytes:  maxBytes,
	}
}

func (h *PaperHandler) RegisterRoutes(server *gin.Engine) {
	server.POST("/upload", h.Upload)
	server.GET("/uploads/:name", h.ServeUpload)

	g := server.Group("/api")
	g.GET("/uploads", h.ListUploads)
	g.GET("/papers", h.List)
	g.GET("/papers/:id", h.Get)
	g.GET("/papers/:id/document", h.Document)
	g.PUT("/papers/:id/status", h.UpdateStatus)
	g.POST("/papers/:id/fill-gaps", h.FillGaps)
	g.GET("/stats", h.Stats)
}

// Upload answers in the {success, analysis, services_used} / {error} shape
// the upload page expects.
func (h *PaperHandler) Upload(ctx *gin.Context) {
	fh, err := ctx.FormFile("file")
	if err != nil {
		uploadError(ctx, errors.WithCode(code.ErrNoFile, "No file uploaded"))
		return
	}
	if h.maxBytes > 0 && fh.Size > h.maxBytes {
		uploadError(ctx, errors.WithCode(code.ErrFileTooLarge, "File too large"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		uploadError(ctx, errors.WrapC(err, code.ErrUploadFailed, "Processing failed"))
		return
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		uploadError(ctx, errors.WrapC(err, code.ErrUploadFailed, "Processing failed"))
		return
	}

	res, err := h.uploadSvc.Process(ctx.Request.Context(), service.UploadRequest{
		Filename: fh.Filename,
		Content:  content,
		Theme:    ctx.PostForm("theme"),
		Notes:    ctx.PostForm("notes"),
	})
	switch {
	case err == nil:
		ctx.JSON(http.StatusOK, gin.H{
			"success":       true,
			"paper_id":      res.PaperID,
			"analysis":      res.Analysis,
			"services_used": res.ServicesUsed,
		})
	case stderrors.Is(err, service.ErrNoFileSelected):
		uploadError(ctx, errors.WithCode(code.ErrNoFile, "No file selected"))
	case stderrors.Is(err, service.ErrNotPDF):
		uploadError(ctx, errors.WithCode(code.ErrNotPDF, "Please upload a PDF file"))
	case stderrors.Is(err, service.ErrEmptyFile):
		uploadError(ctx, errors.WithCode(code.ErrNoFile, "Uploaded file is empty"))
	case stderrors.Is(err, service.ErrFileTooLarge):
		uploadError(ctx, errors.WithCode(code.ErrFileTooLarge, "File too large"))
	default:
		log.WithError(err).WithField("file", fh.Filename).Error("upload processing error")
		uploadError(ctx, errors.WithCode(code.ErrUploadFailed, "Processing failed: %v", err))
	}
}

func uploadError(ctx *gin.Context, err error) {
	ctx.JSON(errors.ParseCoder(err).HTTPStatus(), gin.H{"error": errors.Message(err)})
}

func (h *PaperHandler) ServeUpload(ctx *gin.Context) {
	name := ctx.Param("name")
	info, err := h.store.Stat(name)
	if err != nil {
		ginx.WriteResponse(ctx, errors.WithCode(code.ErrNotFound, "file not found"), nil)
		return
	}
	f, err := h.store.Open(name)
	if err != nil {
		ginx.WriteResponse(ctx, errors.WithCode(code.ErrNotFound, "file not found"), nil)
		return
	}
	defer f.Close()
	ctype := mime.TypeByExtension(filepath.Ext(name))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	ctx.Header("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": name}))
	ctx.DataFromReader(http.StatusOK, info.Size(), ctype, f, nil)
}

type uploadVO struct {
	Name  string `json:"name"`
	Size  int64  `json:"size"`
	URL   string `json:"url"`
	Mtime string `json:"mtime"`
}

// ListUploads lists the stored PDFs, newest first.
func (h *PaperHandler) ListUploads(ctx *gin.Context) {
	infos, err := h.store.List()
	if err != nil {
		ginx.WriteResponse(ctx, err, nil)
		return
	}
	views := make([]uploadVO, 0, len(infos))
	for _, fi := range infos {
		views = append(views, uploadVO{
			Name:  fi.Name(),
			Size:  fi.Size(),
			URL:   service.PDFRoute + fi.Name(),
			Mtime: fi.ModTime().UTC().Format(time.RFC3339),
		})
	}
	ginx.WriteResponse(ctx, nil, views)
}

func (h *PaperHandler) List(ctx *gin.Context) {
	var q struct {
		Theme  string `form:"theme"`
		Status string `form:"status"`
		Limit  int    `form:"limit"`
		Offset int    `form:"offset"`
	}
	if err := ctx.ShouldBindQuery(&q); err != nil {
		ginx.WriteResponse(ctx, errors.WithCode(code.ErrBind, err.Error()), nil)
		return
	}
	papers, err := h.repo.List(ctx.Request.Context(), dao.ListQuery{
		Theme:  q.Theme,
		Status: q.Status,
		Limit:  q.Limit,
		Offset: q.Offset,
	})
	if err != nil {
		ginx.WriteResponse(ctx, err, nil)
		return
	}
	views := make([]PaperVO, 0, len(papers))
	for _, p := range papers {
		views = append(views, toPaperVO(p))
	}
	ginx.WriteResponse(ctx, nil, views)
}

func (h *PaperHandler) Get(ctx *gin.Context) {
	id, ok := paperID(ctx)
	if !ok {
		return
	}
	p, err := h.repo.FindById(ctx.Request.Context(), id)
	if err != nil {
		ginx.WriteResponse(ctx, paperErr(err), nil)
		return
	}
	ginx.WriteResponse(ctx, nil, toPaperVO(p))
}

// Document reports metadata and section excerpts of an uploaded PDF.
func (h *PaperHandler) Document(ctx *gin.Context) {
	id, ok := paperID(ctx)
	if !ok {
		return
	}
	p, err := h.repo.FindById(ctx.Request.Context(), id)
	if err != nil {
		ginx.WriteResponse(ctx, paperErr(err), nil)
		return
	}
	if p.Source != domain.SourceUpload {
		ginx.WriteResponse(ctx, errors.WithCode(code.ErrValidation, "paper has no stored PDF"), nil)
		return
	}
	info, err := h.uploadSvc.Inspect(ctx.Request.Context(), p.Filename)
	switch {
	case err == nil:
		ginx.WriteResponse(ctx, nil, info)
	case stderrors.Is(err, fs.ErrNotExist):
		ginx.WriteResponse(ctx, errors.WrapC(err, code.ErrNotFound, "file not found"), nil)
	default:
		ginx.WriteResponse(ctx, errors.WrapC(err, code.ErrUploadFailed, "could not read pdf"), nil)
	}
}

func (h *PaperHandler) UpdateStatus(ctx *gin.Context) {
	id, ok := paperID(ctx)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ginx.WriteResponse(ctx, errors.WithCode(code.ErrBind, err.Error()), nil)
		return
	}
	synced, err := h.paperSvc.UpdateStatus(ctx.Request.Context(), id, req.Status)
	switch {
	case err == nil:
		ginx.WriteResponse(ctx, nil, gin.H{"id": id, "status": req.Status, "notion_synced": synced})
	case stderrors.Is(err, service.ErrInvalidStatus):
		ginx.WriteResponse(ctx, errors.WithCode(code.ErrValidation, "status must be one of %v", domain.Statuses), nil)
	default:
		ginx.WriteResponse(ctx, paperErr(err), nil)
	}
}

func (h *PaperHandler) FillGaps(ctx *gin.Context) {
	id, ok := paperID(ctx)
	if !ok {
		return
	}
	res, err := h.gapSvc.FillGaps(ctx.Request.Context(), id)
	switch {
	case err == nil:
		ginx.WriteResponse(ctx, nil, res)
	case stderrors.Is(err, service.ErrNoGaps):
		ginx.WriteResponse(ctx, errors.WithCode(code.ErrValidation, err.Error()), nil)
	default:
		ginx.WriteResponse(ctx, paperErr(err), nil)
	}
}

func (h *PaperHandler) Stats(ctx *gin.Context) {
	st, err := h.repo.Stats(ctx.Request.Context())
	if err != nil {
		ginx.WriteResponse(ctx, err, nil)
		return
	}
	ginx.WriteResponse(ctx, nil, st)
}

func paperID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		ginx.WriteResponse(ctx, errors.WithCode(code.ErrBind, "invalid paper id %q", ctx.Param("id")), nil)
		return 0, false
	}
	return id, true
}

func paperErr(err error) error {
	if repository.IsNotFound(err) {
		return errors.WrapC(err, code.ErrPaperNotFound, "paper not found")
	}
	return err
}
