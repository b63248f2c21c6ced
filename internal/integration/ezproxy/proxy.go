package ezproxy

import (
	"context"
	"errors"
	"fmt"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

var ErrNotConfigured = errors.New("ezproxy: not configured")

// Result is the page reached after logging in through the proxy.
type Result struct {
	Content []byte `json:"-"`
	URL     string `json:"url"`
	IsPDF   bool   `json:"is_pdf"`
	Size    int    `json:"size"`
}

// Proxy fetches paywalled content through an institutional EZProxy login.
type Proxy struct {
	baseURL  string
	username string
	password string
	timeout  time.Duration
}

func New(baseURL, username, password string) *Proxy {
	return &Proxy{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		timeout:  60 * time.Second,
	}
}

func (p *Proxy) Enabled() bool { return p != nil && p.baseURL != "" && p.username != "" }

// Fetch logs in with the form fields "user" and "pass" and follows the
// redirects to target. Every call gets its own cookie jar.
func (p *Proxy) Fetch(ctx context.Context, target string) (Result, error) {
	if !p.Enabled() {
		return Result{}, ErrNotConfigured
	}
	if target == "" {
		return Result{}, errors.New("ezproxy: empty target url")
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return Result{}, err
	}
	c := resty.New().SetTimeout(p.timeout).SetCookieJar(jar)

	r, err := c.R().SetContext(ctx).
		SetQueryParam("url", target).
		SetFormData(map[string]string{
			"user": p.username,
			"pass": p.password,
		}).
		Post(p.baseURL + "/login")
	if err != nil {
		return Result{}, fmt.Errorf("ezproxy login: %w", err)
	}
	if r.IsError() {
		return Result{}, fmt.Errorf("ezproxy login: %s", r.Status())
	}

	final := target
	if r.RawResponse != nil && r.RawResponse.Request != nil {
		final = r.RawResponse.Request.URL.String()
	}
	return Result{
		Content: r.Body(),
		URL:     final,
		IsPDF:   looksLikePDF(final, r.Header().Get("Content-Type")),
		Size:    len(r.Body()),
	}, nil
}

func looksLikePDF(url, contentType string) bool {
	return strings.Contains(strings.ToLower(url), "pdf") || strings.HasPrefix(contentType, "application/pdf")
}
