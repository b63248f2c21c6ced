package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lvow2022/research-assistant/internal/config"
)

func TestRunCheckWithoutCredentials(t *testing.T) {
	var out bytes.Buffer
	if code := runCheck(config.Default(), &out); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	for _, want := range []string{"❌ NOTION_API_KEY", "❌ ANTHROPIC_API_KEY", "❌ discord", "Some checks failed."} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("output lacks %q:\n%s", want, out.String())
		}
	}
}
