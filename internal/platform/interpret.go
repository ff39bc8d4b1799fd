package platform

import (
	"fmt"
	"strings"
)

// DuplicateTitlePhrase is the error text 博客园 returns when a draft with the
// same title already exists. Matching it is best-effort; the platform can
// reword it at any time.
const DuplicateTitlePhrase = "相同标题的博文已存在"

// CheckErrors inspects a parsed response body for a structured errors list.
// Any non-empty list means the attempt failed regardless of HTTP status.
// duplicate is set when an entry matches the known duplicate-title phrase.
func CheckErrors(body any) (messages []string, duplicate bool) {
	obj, ok := body.(map[string]any)
	if !ok {
		return nil, false
	}
	list, ok := obj["errors"].([]any)
	if !ok || len(list) == 0 {
		return nil, false
	}

	for _, entry := range list {
		msg := fmt.Sprintf("%v", entry)
		if strings.Contains(msg, DuplicateTitlePhrase) {
			duplicate = true
		}
		messages = append(messages, msg)
	}
	return messages, duplicate
}

// FailureMessage extracts a human-readable reason from a non-2xx response
// body, preferring the platform's own message fields.
func FailureMessage(body any, statusCode int) string {
	switch v := body.(type) {
	case map[string]any:
		if msg, ok := v["message"].(string); ok && msg != "" {
			return msg
		}
		if msg, ok := v["error_msg"].(string); ok && msg != "" {
			return msg
		}
	case string:
		if trimmed := strings.TrimSpace(v); trimmed != "" && len(trimmed) <= 200 {
			return trimmed
		}
	}
	return fmt.Sprintf("HTTP %d", statusCode)
}

// Number reads v as a JSON number.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// NumberIs reports whether obj[key] is a JSON number equal to want.
func NumberIs(obj map[string]any, key string, want float64) bool {
	n, ok := Number(obj[key])
	return ok && n == want
}
