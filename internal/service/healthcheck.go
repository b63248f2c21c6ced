package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lvow2022/research-assistant/internal/config"
	"github.com/lvow2022/research-assistant/internal/integration/discord"
	"github.com/lvow2022/research-assistant/internal/integration/notion"
	"github.com/lvow2022/research-assistant/internal/pkg/llm"
)

// Version is reported by the status endpoints and the Discord test message.
const Version = "1.0.0"

// Integration names used in status reports.
const (
	IntegrationNotion  = "notion"
	IntegrationDiscord = "discord"
	IntegrationClaude  = "claude"
)

var errKeyMissing = errors.New("key is missing or has placeholder")

// Credential describes one configured secret by its length only.
type Credential struct {
	Name   string `json:"name"`
	Set    bool   `json:"set"`
	Length int    `json:"length"`
}

// Check is the outcome of probing one integration.
type Check struct {
	Name      string `json:"name"`
	Enabled   bool   `json:"enabled"`
	Reachable bool   `json:"reachable"`
	Error     string `json:"error,omitempty"`
	Latency   string `json:"latency,omitempty"`
}

type CheckReport struct {
	Credentials []Credential `json:"credentials"`
	Checks      []Check      `json:"checks"`
}

// OK reports whether every credential is set and every integration
// answered.
func (r CheckReport) OK() bool {
	for _, c := range r.Credentials {
		if !c.Set {
			return false
		}
	}
	for _, c := range r.Checks {
		if !c.Reachable {
			return false
		}
	}
	return true
}

type HealthCheckService interface {
	// Services reports which integrations are configured, without calling them.
	Services() map[string]bool
	Run(ctx context.Context, creds []Credential) CheckReport
}

type healthCheckService struct {
	llm     llm.Client
	notion  notion.Tracker
	discord discord.Notifier
}

func NewHealthCheckService(client llm.Client, tracker notion.Tracker, notifier discord.Notifier) HealthCheckService {
	return &healthCheckService{llm: client, notion: tracker, discord: notifier}
}

func (svc *healthCheckService) Services() map[string]bool {
	return map[string]bool{
		IntegrationNotion:  svc.notion != nil && svc.notion.Enabled(),
		IntegrationDiscord: svc.discord != nil && svc.discord.Enabled(),
		IntegrationClaude:  llm.Enabled(svc.llm),
	}
}

// Run probes the integrations concurrently. Discord gets a visible status
// message, Notion a database retrieve and the model a one-token request.
func (svc *healthCheckService) Run(ctx context.Context, creds []Credential) CheckReport {
	enabled := svc.Services()
	probes := []struct {
		name string
		fn   func(context.Context) error
	}{
		{IntegrationDiscord, func(ctx context.Context) error {
			return svc.discord.SendEmbeds(ctx, discord.StatusEmbed(Version))
		}},
		{IntegrationNotion, func(ctx context.Context) error { return svc.notion.RetrieveDatabase(ctx) }},
		{IntegrationClaude, func(ctx context.Context) error { return svc.llm.Ping(ctx) }},
	}

	checks := make([]Check, len(probes))
	var wg sync.WaitGroup
	for i, p := range probes {
		checks[i] = Check{Name: p.name, Enabled: enabled[p.name]}
		if !checks[i].Enabled {
			checks[i].Error = errKeyMissing.Error()
			continue
		}
		wg.Add(1)
		go func(c *Check, fn func(context.Context) error) {
			defer wg.Done()
			start := time.Now()
			err := fn(ctx)
			c.Latency = time.Since(start).Round(time.Millisecond).String()
			if err != nil {
				c.Error = err.Error()
				return
			}
			c.Reachable = true
		}(&checks[i], p.fn)
	}
	wg.Wait()
	if creds == nil {
		creds = []Credential{}
	}
	return CheckReport{Credentials: creds, Checks: checks}
}

// NewCredential describes value without exposing it.
func NewCredential(name, value string) Credential {
	return Credential{Name: name, Set: config.IsSet(value), Length: len(value)}
}

// CredentialsFrom lists the secrets the integrations depend on.
func CredentialsFrom(c *config.Config) []Credential {
	return []Credential{
		NewCredential("NOTION_API_KEY", c.Notion.APIKey),
		NewCredential("NOTION_DATABASE_ID", c.Notion.DatabaseID),
		NewCredential("DISCORD_WEBHOOK_URL", c.Discord.WebhookURL),
		NewCredential("ANTHROPIC_API_KEY", c.LLM.APIKey),
	}
}
