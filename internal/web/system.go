package web

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lvow2022/research-assistant/internal/config"
	"github.com/lvow2022/research-assistant/internal/domain"
	"github.com/lvow2022/research-assistant/internal/pkg/code"
	"github.com/lvow2022/research-assistant/internal/service"
	"github.com/lvow2022/research-assistant/internal/service/task"
	"github.com/lvow2022/research-assistant/pkg/ginx"
	"github.com/lvow2022/research-assistant/pkg/ginx/errors"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the embedded HTML pages.
func Templates() *template.Template {
	return template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))
}

type SystemHandler struct {
	health    service.HealthCheckService
	scheduler service.SchedulerService
	tasks     task.Center
	state     *config.State
	started   time.Time
}

func NewSystemHandler(health service.HealthCheckService, scheduler service.SchedulerService,
	tasks task.Center, state *config.State) *SystemHandler {
	return &SystemHandler{
		health:    health,
		scheduler: scheduler,
		tasks:     tasks,
		state:     state,
		started:   time.Now(),
	}
}

func (h *SystemHandler) RegisterRoutes(server *gin.Engine) {
	server.SetHTMLTemplate(Templates())
	server.GET("/", h.page("index.html"))
	server.GET("/dashboard", h.page("dashboard.html"))
	server.GET("/upload", h.page("upload.html"))
	server.GET("/health", h.Health)
	server.GET("/status", h.Status)

	g := server.Group("/api")
	g.GET("/schedule", h.Schedule)
	g.PUT("/schedule", h.UpdateSchedule)
	g.POST("/schedule/run", h.RunSchedule)
	g.GET("/tasks/:id", h.Task)
	g.GET("/check", h.Check)
}

func (h *SystemHandler) page(name string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.HTML(http.StatusOK, name, gin.H{
			"Themes":   domain.Themes,
			"Statuses": domain.Statuses,
			"Services": h.health.Services(),
			"Version":  service.Version,
		})
	}
}

func (h *SystemHandler) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *SystemHandler) Status(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status":         "running",
		"message":        "PhD Research Assistant is active",
		"version":        service.Version,
		"uptime":         time.Since(h.started).Round(time.Second).String(),
		"services":       h.health.Services(),
		"schedule_hours": h.scheduler.Frequency(),
	})
}

type scheduleVO struct {
	Hours   int    `json:"hours"`
	NextRun string `json:"next_run,omitempty"`
}

func (h *SystemHandler) scheduleView() scheduleVO {
	vo := scheduleVO{Hours: h.scheduler.Frequency()}
	if next := h.scheduler.NextRun(); !next.IsZero() {
		vo.NextRun = next.Format(time.RFC3339)
	}
	return vo
}

func (h *SystemHandler) Schedule(ctx *gin.Context) {
	ginx.WriteResponse(ctx, nil, h.scheduleView())
}

func (h *SystemHandler) UpdateSchedule(ctx *gin.Context) {
	var req struct {
		Hours int `json:"hours"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ginx.WriteResponse(ctx, errors.WithCode(code.ErrBind, err.Error()), nil)
		return
	}
	if err := h.scheduler.UpdateFrequency(req.Hours); err != nil {
		ginx.WriteResponse(ctx, errors.WrapC(err, code.ErrSchedule, "%s", err.Error()), nil)
		return
	}
	ginx.WriteResponse(ctx, nil, h.scheduleView())
}

// RunSchedule sends the research digest now, in the background.
func (h *SystemHandler) RunSchedule(ctx *gin.Context) {
	id, err := h.tasks.Gen(task.ResearchUpdate, func(c context.Context) (any, error) {
		return h.scheduler.SendResearchUpdate(c)
	})
	if err != nil {
		ginx.WriteResponse(ctx, err, nil)
		return
	}
	ginx.WriteResponse(ctx, nil, gin.H{"task_id": id})
}

func (h *SystemHandler) Task(ctx *gin.Context) {
	t, err := h.tasks.Get(ctx.Param("id"))
	if err != nil {
		ginx.WriteResponse(ctx, errors.WrapC(err, code.ErrNotFound, "task not found"), nil)
		return
	}
	ginx.WriteResponse(ctx, nil, t)
}

func (h *SystemHandler) Check(ctx *gin.Context) {
	report := h.health.Run(ctx.Request.Context(), service.CredentialsFrom(h.state.Current()))
	ginx.WriteResponse(ctx, nil, gin.H{"ok": report.OK(), "report": report})
}
