package web

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lvow2022/research-assistant/internal/config"
	"github.com/lvow2022/research-assistant/internal/domain"
	"github.com/lvow2022/research-assistant/internal/pkg/code"
	"github.com/lvow2022/research-assistant/internal/service"
	"github.com/lvow2022/research-assistant/internal/service/task"
)

func newSystemFixture(t *testing.T) (*gin.Engine, *fakeScheduler, task.Center) {
	t.Helper()
	sched := &fakeScheduler{
		hours:  48,
		update: domain.ResearchUpdate{PapersUpdated: []string{"Attention"}},
	}
	tasks := task.NewCenter(time.Minute, time.Hour)
	server := gin.New()
	h := NewSystemHandler(&fakeHealth{}, sched, tasks, config.NewState(config.Default()))
	h.RegisterRoutes(server)
	return server, sched, tasks
}

func TestHealthAndStatus(t *testing.T) {
	server, _, _ := newSystemFixture(t)

	rec := doJSON(t, server, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"healthy"`) {
		t.Fatalf("health = %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, server, http.MethodGet, "/status", nil)
	var st struct {
		Status        string          `json:"status"`
		Version       string          `json:"version"`
		Services      map[string]bool `json:"services"`
		ScheduleHours int             `json:"schedule_hours"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if st.Status != "running" || st.Version != service.Version || st.ScheduleHours != 48 {
		t.Fatalf("status = %+v", st)
	}
	if !st.Services[service.IntegrationDiscord] || st.Services[service.IntegrationNotion] {
		t.Fatalf("services = %+v", st.Services)
	}
}

func TestPagesRender(t *testing.T) {
	server, _, _ := newSystemFixture(t)
	for _, path := range []string{"/", "/dashboard", "/upload"} {
		rec := doJSON(t, server, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<html") {
			t.Fatalf("%s = %d", path, rec.Code)
		}
	}
	rec := doJSON(t, server, http.MethodGet, "/upload", nil)
	if !strings.Contains(rec.Body.String(), domain.ThemeHallucination) {
		t.Fatalf("upload page lacks themes")
	}
}

func TestUpdateSchedule(t *testing.T) {
	server, sched, _ := newSystemFixture(t)

	var vo scheduleVO
	rec := doJSON(t, server, http.MethodPut, "/api/schedule", gin.H{"hours": 12})
	decode(t, rec, &vo)
	if rec.Code != http.StatusOK || vo.Hours != 12 || sched.hours != 12 {
		t.Fatalf("update = %d %+v", rec.Code, vo)
	}

	rec = doJSON(t, server, http.MethodPut, "/api/schedule", gin.H{"hours": 0})
	if resp := decode(t, rec, nil); rec.Code != http.StatusBadRequest || resp.Code != code.ErrSchedule {
		t.Fatalf("invalid hours = %d %+v", rec.Code, resp)
	}
}

func TestRunScheduleIsPollable(t *testing.T) {
	server, _, tasks := newSystemFixture(t)

	var started struct {
		TaskID string `json:"task_id"`
	}
	decode(t, doJSON(t, server, http.MethodPost, "/api/schedule/run", nil), &started)
	if started.TaskID == "" {
		t.Fatalf("no task id")
	}
	tasks.Wait()

	var got struct {
		Status string                `json:"status"`
		Result domain.ResearchUpdate `json:"result"`
	}
	decode(t, doJSON(t, server, http.MethodGet, "/api/tasks/"+started.TaskID, nil), &got)
	if got.Status != "completed" || len(got.Result.PapersUpdated) != 1 {
		t.Fatalf("task = %+v", got)
	}

	rec := doJSON(t, server, http.MethodGet, "/api/tasks/unknown", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown task = %d", rec.Code)
	}
}
