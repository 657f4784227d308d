package serving

import (
	"regexp"
	"strings"
)

var thinkAnswerPattern = regexp.MustCompile(`(?s)^\s*<think>.*</think>.*<answer>.*</answer>\s*$`)

// FormatReasoning merges a model's reasoning trace into its answer.
// Content already in <think>/<answer> form is returned unchanged. Otherwise
// non-empty reasoning produces "<think>R</think>\n<answer>C</answer>" and
// empty reasoning leaves content as is.
func FormatReasoning(content, reasoning string) string {
	if thinkAnswerPattern.MatchString(content) {
		return content
	}
	if strings.TrimSpace(reasoning) == "" {
		return content
	}
	return "<think>" + reasoning + "</think>\n<answer>" + content + "</answer>"
}

// Values converts generation results into table cells, keeping nil for
// failed rows.
func Values(results []*string) []any {
	values := make([]any, len(results))
	for i, r := range results {
		if r != nil {
			values[i] = *r
		}
	}
	return values
}

// String returns the generation or "" when it failed.
func String(result *string) string {
	if result == nil {
		return ""
	}
	return *result
}
