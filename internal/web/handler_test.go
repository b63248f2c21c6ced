package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lvow2022/research-assistant/internal/domain"
	"github.com/lvow2022/research-assistant/internal/repository"
	"github.com/lvow2022/research-assistant/internal/repository/dao"
	"github.com/lvow2022/research-assistant/internal/repository/storage"
	"github.com/lvow2022/research-assistant/internal/service"
	"github.com/lvow2022/research-assistant/pkg/ginx"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRepo(t *testing.T) repository.PaperRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "papers.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := dao.InitTables(db); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}
	return repository.NewPaperRepository(dao.NewPaperDAO(db))
}

type fakeUpload struct {
	res  service.UploadResult
	err  error
	reqs []service.UploadRequest
	info service.DocumentInfo
}

func (f *fakeUpload) Process(_ context.Context, req service.UploadRequest) (service.UploadResult, error) {
	f.reqs = append(f.reqs, req)
	return f.res, f.err
}

func (f *fakeUpload) Inspect(context.Context, string) (service.DocumentInfo, error) {
	return f.info, f.err
}

type fakeGapAgent struct {
	gaps   domain.GapResult
	detail domain.PaperDetail
	fill   service.FillResult
	err    error
}

func (f *fakeGapAgent) FindPapersForGaps(context.Context, string, []string, string) domain.GapResult {
	return f.gaps
}

func (f *fakeGapAgent) FetchAndAnalyzePaper(context.Context, string) (domain.PaperDetail, error) {
	return f.detail, f.err
}

func (f *fakeGapAgent) AddPaper(context.Context, domain.PaperDetail, string, string, string) (int64, string, error) {
	return 0, "", f.err
}

func (f *fakeGapAgent) NotifyPaperAdded(context.Context, string, domain.SearchPaper, string) bool {
	return false
}

func (f *fakeGapAgent) FillGaps(context.Context, int64) (service.FillResult, error) {
	return f.fill, f.err
}

type fakeScheduler struct {
	hours  int
	update domain.ResearchUpdate
	err    error
}

func (f *fakeScheduler) Start() error { return nil }

func (f *fakeScheduler) UpdateFrequency(hours int) error {
	if hours < 1 {
		return service.ErrInvalidFrequency
	}
	f.hours = hours
	return nil
}

func (f *fakeScheduler) Frequency() int             { return f.hours }
func (f *fakeScheduler) NextRun() time.Time         { return time.Time{} }
func (f *fakeScheduler) Stop(context.Context) error { return nil }

func (f *fakeScheduler) SendResearchUpdate(context.Context) (domain.ResearchUpdate, error) {
	return f.update, f.err
}

type fakeHealth struct {
	report service.CheckReport
}

func (f *fakeHealth) Services() map[string]bool {
	return map[string]bool{service.IntegrationNotion: false, service.IntegrationDiscord: true, service.IntegrationClaude: false}
}

func (f *fakeHealth) Run(context.Context, []service.Credential) service.CheckReport { return f.report }

func newMemStore() storage.UploadStore {
	return storage.NewUploadStoreFs(afero.NewMemMapFs())
}

func doJSON(t *testing.T, server *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

// decode unwraps the ginx envelope into data.
func decode(t *testing.T, rec *httptest.ResponseRecorder, data any) ginx.Response {
	t.Helper()
	var resp struct {
		ginx.Response
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	if data != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return resp.Response
}
