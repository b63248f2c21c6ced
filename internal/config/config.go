package config

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/lvow2022/research-assistant/pkg/log"
)

// placeholderMarker flags template values copied from an example env file.
const placeholderMarker = "YOUR_"

type Server struct {
	Addr        string `yaml:"addr"`
	UploadDir   string `yaml:"upload_dir"`
	CacheDir    string `yaml:"cache_dir"`
	LogDir      string `yaml:"log_dir"`
	MaxUploadMB int64  `yaml:"max_upload_mb"`
}

type Log struct {
	Level string `yaml:"level"`
}

type Database struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type LLM struct {
	Provider    string        `yaml:"provider"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

type Notion struct {
	APIKey     string `yaml:"api_key"`
	DatabaseID string `yaml:"database_id"`
	BaseURL    string `yaml:"base_url"`
	Version    string `yaml:"version"`
}

type Discord struct {
	WebhookURL     string `yaml:"webhook_url"`
	Username       string `yaml:"username"`
	FrequencyHours int    `yaml:"frequency_hours"`
}

type Source struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

type Databases struct {
	SemanticScholar Source `yaml:"semantic_scholar"`
	Arxiv           Source `yaml:"arxiv"`
	IEEE            Source `yaml:"ieee"`
}

type EZProxy struct {
	BaseURL  string `yaml:"base_url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type Auth struct {
	Secret   string `yaml:"secret"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type Uploads struct {
	Accept []string `yaml:"accept"`
}

type Config struct {
	Server    Server    `yaml:"server"`
	Log       Log       `yaml:"log"`
	Database  Database  `yaml:"database"`
	LLM       LLM       `yaml:"llm"`
	Notion    Notion    `yaml:"notion"`
	Discord   Discord   `yaml:"discord"`
	Databases Databases `yaml:"databases"`
	EZProxy   EZProxy   `yaml:"ezproxy"`
	Auth      Auth      `yaml:"auth"`
	Uploads   Uploads   `yaml:"uploads"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{}
	c.Server = Server{
		Addr:        ":5000",
		UploadDir:   "data/uploads",
		CacheDir:    "data/cache",
		LogDir:      "data/logs",
		MaxUploadMB: 50,
	}
	c.Log.Level = "info"
	c.Database = Database{Driver: "sqlite", DSN: "data/research.db"}
	c.LLM = LLM{
		Provider:    "anthropic",
		BaseURL:     "https://api.anthropic.com",
		Model:       "claude-3-opus-20240229",
		MaxTokens:   1000,
		Temperature: 0.7,
		Timeout:     60 * time.Second,
	}
	c.Notion = Notion{BaseURL: "https://api.notion.com", Version: "2022-06-28"}
	c.Discord = Discord{Username: "Research Assistant", FrequencyHours: 48}
	c.Databases = Databases{
		SemanticScholar: Source{Enabled: true, BaseURL: "https://api.semanticscholar.org/graph/v1"},
		Arxiv:           Source{Enabled: true, BaseURL: "http://export.arxiv.org/api"},
		IEEE:            Source{Enabled: false, BaseURL: "https://ieeexploreapi.ieee.org/api/v1"},
	}
	c.Uploads.Accept = []string{"*.pdf"}
	return c
}

// Load reads path over the defaults and applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, c); err != nil {
				return nil, err
			}
		case !os.IsNotExist(err):
			return nil, err
		}
	}
	c.applyEnv()
	return c, nil
}

func (c *Config) applyEnv() {
	// Prefer HTTP_ADDR if provided, otherwise build it from PORT.
	if addr := getEnv("HTTP_ADDR", ""); addr != "" {
		c.Server.Addr = addr
	} else if port := getEnv("PORT", ""); port != "" {
		c.Server.Addr = ":" + port
	}
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DB_DSN", c.Database.DSN)

	c.LLM.APIKey = getEnv("ANTHROPIC_API_KEY", c.LLM.APIKey)
	c.LLM.Model = getEnv("LLM_MODEL", c.LLM.Model)
	c.Notion.APIKey = getEnv("NOTION_API_KEY", c.Notion.APIKey)
	c.Notion.DatabaseID = getEnv("NOTION_DATABASE_ID", c.Notion.DatabaseID)
	c.Discord.WebhookURL = getEnv("DISCORD_WEBHOOK_URL", c.Discord.WebhookURL)
	c.Discord.FrequencyHours = getEnvInt("DISCORD_FREQUENCY_HOURS", c.Discord.FrequencyHours)

	c.Databases.SemanticScholar.APIKey = getEnv("SEMANTIC_SCHOLAR_API_KEY", c.Databases.SemanticScholar.APIKey)
	c.Databases.IEEE.APIKey = getEnv("IEEE_API_KEY", c.Databases.IEEE.APIKey)
	c.Databases.IEEE.Enabled = getEnvBool("IEEE_ENABLED", c.Databases.IEEE.Enabled)

	c.EZProxy.BaseURL = getEnv("EZPROXY_URL", c.EZProxy.BaseURL)
	c.EZProxy.Username = getEnv("EZPROXY_USERNAME", c.EZProxy.Username)
	c.EZProxy.Password = getEnv("EZPROXY_PASSWORD", c.EZProxy.Password)

	c.Auth.Secret = getEnv("AUTH_SECRET", c.Auth.Secret)
	c.Auth.Username = getEnv("AUTH_USERNAME", c.Auth.Username)
	c.Auth.Password = getEnv("AUTH_PASSWORD", c.Auth.Password)
}

// IsSet reports whether a credential holds a real value rather than a blank
// or a copied placeholder.
func IsSet(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.Contains(v, placeholderMarker)
}

func (c *Config) LLMEnabled() bool     { return IsSet(c.LLM.APIKey) }
func (c *Config) NotionEnabled() bool  { return IsSet(c.Notion.APIKey) && IsSet(c.Notion.DatabaseID) }
func (c *Config) DiscordEnabled() bool { return IsSet(c.Discord.WebhookURL) }
func (c *Config) EZProxyEnabled() bool { return IsSet(c.EZProxy.BaseURL) && IsSet(c.EZProxy.Username) }
func (c *Config) AuthEnabled() bool    { return IsSet(c.Auth.Secret) }

// MaxUploadBytes is the upload size limit, 0 meaning unlimited.
func (c *Config) MaxUploadBytes() int64 {
	if c.Server.MaxUploadMB <= 0 {
		return 0
	}
	return c.Server.MaxUploadMB << 20
}

// State holds the live configuration for readers that must observe reloads.
type State struct {
	cfg atomic.Value // *Config
}

func NewState(c *Config) *State {
	s := &State{}
	s.cfg.Store(c)
	return s
}

func (s *State) Current() *Config { return s.cfg.Load().(*Config) }

func (s *State) ApplyNewConfig(c *Config) { s.cfg.Store(c) }

// WatchFile reloads path whenever it changes and hands the result to onChange.
// Invalid reloads are logged and skipped.
func WatchFile(ctx context.Context, path string, onChange func(*Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return err
	}

	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != filepath.Base(path) {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				// editors write in several steps
				time.Sleep(200 * time.Millisecond)
				cfg, err := Load(path)
				if err != nil {
					log.WithError(err).WithField("path", path).Warn("config reload failed")
					continue
				}
				log.WithField("path", path).Info("config reloaded")
				onChange(cfg)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("config watch error")
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
