package service

import (
	"context"
	"errors"
	"testing"
)

func TestHealthCheckRun(t *testing.T) {
	notifier := &fakeDiscord{enabled: true}
	tracker := &fakeNotion{enabled: true, err: errors.New("401 unauthorized")}
	svc := NewHealthCheckService(&fakeLLM{}, tracker, notifier)

	services := svc.Services()
	if !services[IntegrationClaude] || !services[IntegrationNotion] || !services[IntegrationDiscord] {
		t.Fatalf("services = %v", services)
	}

	report := svc.Run(context.Background(), []Credential{NewCredential("ANTHROPIC_API_KEY", "sk-ant-123")})
	byName := map[string]Check{}
	for _, c := range report.Checks {
		byName[c.Name] = c
	}
	if !byName[IntegrationDiscord].Reachable || !byName[IntegrationClaude].Reachable {
		t.Fatalf("checks = %+v", report.Checks)
	}
	if byName[IntegrationNotion].Reachable || byName[IntegrationNotion].Error == "" {
		t.Fatalf("notion should fail: %+v", byName[IntegrationNotion])
	}
	if report.OK() {
		t.Fatalf("report with a failing check is not OK")
	}
	if len(notifier.embeds) != 1 || notifier.embeds[0].Title != "System Status" {
		t.Fatalf("status message not sent: %+v", notifier.embeds)
	}
}

func TestHealthCheckDisabled(t *testing.T) {
	svc := NewHealthCheckService(nil, &fakeNotion{}, &fakeDiscord{})
	report := svc.Run(context.Background(), nil)
	for _, c := range report.Checks {
		if c.Enabled || c.Reachable {
			t.Fatalf("check = %+v", c)
		}
	}
	if report.OK() {
		t.Fatalf("nothing configured is not OK")
	}
}

func TestNewCredential(t *testing.T) {
	c := NewCredential("NOTION_API_KEY", "YOUR_NOTION_KEY")
	if c.Set || c.Length != len("YOUR_NOTION_KEY") {
		t.Fatalf("credential = %+v", c)
	}
}
