package ioc

import (
	"strings"
	"time"

	"github.com/lvow2022/research-assistant/internal/config"
	"github.com/lvow2022/research-assistant/internal/integration/discord"
	"github.com/lvow2022/research-assistant/internal/integration/ezproxy"
	"github.com/lvow2022/research-assistant/internal/integration/notion"
	"github.com/lvow2022/research-assistant/internal/integration/scholar"
	"github.com/lvow2022/research-assistant/internal/pkg/llm"
	"github.com/lvow2022/research-assistant/internal/repository"
	"github.com/lvow2022/research-assistant/internal/repository/storage"
	"github.com/lvow2022/research-assistant/internal/service"
	"github.com/lvow2022/research-assistant/internal/service/task"
	ijwt "github.com/lvow2022/research-assistant/internal/web/jwt"
	"github.com/lvow2022/research-assistant/pkg/log"
)

func InitState(cfg *config.Config) *config.State {
	return config.NewState(cfg)
}

// InitLLM builds the client named by llm.provider. Only anthropic is
// implemented; any other name disables analysis.
func InitLLM(cfg *config.Config) llm.Client {
	if !cfg.LLMEnabled() {
		log.Warn("ANTHROPIC_API_KEY not set, paper analysis disabled")
		return llm.Disabled{}
	}
	switch strings.ToLower(strings.TrimSpace(cfg.LLM.Provider)) {
	case "", llm.ProviderAnthropic:
		return llm.NewAnthropic(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.Timeout)
	default:
		log.WithField("provider", cfg.LLM.Provider).Error("unknown llm provider, paper analysis disabled")
		return llm.Disabled{}
	}
}

func InitAnalyzer(cfg *config.Config, client llm.Client) service.AnalyzerService {
	return service.NewAnalyzerService(client, service.WithAnalysisParams(service.AnalysisParams{
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	}))
}

// InitNotion returns a disabled tracker unless both the key and the
// database id are real values.
func InitNotion(cfg *config.Config) notion.Tracker {
	if !cfg.NotionEnabled() {
		log.Warn("Notion not configured, papers are tracked locally only")
		return notion.New("", "", cfg.Notion.BaseURL, cfg.Notion.Version)
	}
	return notion.New(cfg.Notion.APIKey, cfg.Notion.DatabaseID, cfg.Notion.BaseURL, cfg.Notion.Version)
}

func InitDiscord(cfg *config.Config) discord.Notifier {
	if !cfg.DiscordEnabled() {
		log.Warn("DISCORD_WEBHOOK_URL not set, notifications disabled")
		return discord.NewWebhook("", cfg.Discord.Username)
	}
	return discord.NewWebhook(cfg.Discord.WebhookURL, cfg.Discord.Username)
}

func InitArxiv(cfg *config.Config) *scholar.Arxiv {
	return scholar.NewArxiv(cfg.Databases.Arxiv.BaseURL)
}

// InitAggregator queries the enabled databases. The gap agent always uses
// arXiv, so disabling it here only hides it from /api/search.
func InitAggregator(cfg *config.Config, arxiv *scholar.Arxiv) *scholar.Aggregator {
	var sources []scholar.Source
	dbs := cfg.Databases
	if dbs.SemanticScholar.Enabled {
		sources = append(sources, scholar.NewSemanticScholar(dbs.SemanticScholar.BaseURL, dbs.SemanticScholar.APIKey))
	}
	if dbs.Arxiv.Enabled {
		sources = append(sources, arxiv)
	}
	if dbs.IEEE.Enabled {
		sources = append(sources, scholar.NewIEEE(dbs.IEEE.BaseURL, dbs.IEEE.APIKey))
	}
	agg := scholar.NewAggregator(sources...)
	log.WithField("sources", agg.Sources()).Info("academic search ready")
	return agg
}

func InitEZProxy(cfg *config.Config) *ezproxy.Proxy {
	if !cfg.EZProxyEnabled() {
		return ezproxy.New("", "", "")
	}
	return ezproxy.New(cfg.EZProxy.BaseURL, cfg.EZProxy.Username, cfg.EZProxy.Password)
}

func InitUploadStore(cfg *config.Config) storage.UploadStore {
	store, err := storage.NewUploadStore(cfg.Server.UploadDir)
	if err != nil {
		panic(err)
	}
	return store
}

func InitUploadOptions(cfg *config.Config) service.UploadOptions {
	return service.UploadOptions{
		Accept:   cfg.Uploads.Accept,
		MaxBytes: cfg.MaxUploadBytes(),
	}
}

func InitScheduler(cfg *config.Config, repo repository.PaperRepository, tracker notion.Tracker,
	notifier discord.Notifier, analyzer service.AnalyzerService) service.SchedulerService {
	return service.NewSchedulerService(repo, tracker, notifier, analyzer, cfg.Discord.FrequencyHours)
}

func InitTaskCenter() task.Center {
	return task.NewCenter(10*time.Minute, 24*time.Hour)
}

// InitJWTHandler signs sessions with the configured secret. Without one the
// login middleware is not installed and the handler only backs /auth.
func InitJWTHandler(cfg *config.Config) ijwt.Handler {
	return ijwt.NewLocalJWTHandler(cfg.Auth.Secret)
}
