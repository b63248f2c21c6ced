package llm

import (
	"encoding/json"
	"strings"

	"github.com/dlclark/regexp2"
)

// jsonObjectRE spans from the first "{" to the last "}" across lines.
var jsonObjectRE = regexp2.MustCompile(`\{.*\}`, regexp2.Singleline)

// ExtractJSON finds the JSON object embedded in a model reply. Fenced code
// blocks are unwrapped first.
func ExtractJSON(text string) (string, bool) {
	s := strings.TrimSpace(text)
	if idx := strings.Index(s, "```"); idx >= 0 {
		rest := strings.TrimPrefix(s[idx+3:], "json")
		if j := strings.Index(rest, "```"); j >= 0 {
			s = strings.TrimSpace(rest[:j])
		}
	}
	m, err := jsonObjectRE.FindStringMatch(s)
	if err != nil || m == nil {
		return "", false
	}
	return m.String(), true
}

// DecodeJSON extracts and unmarshals the embedded object into v.
func DecodeJSON(text string, v any) bool {
	raw, ok := ExtractJSON(text)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(raw), v) == nil
}

// Lines returns the trimmed non-empty lines of a reply, at most limit.
// List markers such as "1." or "-" are stripped.
func Lines(text string, limit int) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(l)
		l = strings.TrimLeft(l, "-*• ")
		if len(l) > 2 && l[0] >= '0' && l[0] <= '9' && (l[1] == '.' || l[1] == ')') {
			l = strings.TrimSpace(l[2:])
		}
		l = strings.Trim(l, `"`)
		if l == "" {
			continue
		}
		out = append(out, l)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
