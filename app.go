package main

import (
	"github.com/gin-gonic/gin"

	"github.com/lvow2022/research-assistant/internal/config"
	"github.com/lvow2022/research-assistant/internal/integration/discord"
	"github.com/lvow2022/research-assistant/internal/service"
	"github.com/lvow2022/research-assistant/internal/service/task"
)

// App is everything main needs to run and stop the service.
type App struct {
	Server    *gin.Engine
	Scheduler service.SchedulerService
	Tasks     task.Center
	State     *config.State
	Discord   discord.Notifier
}
