// internal/llmutil/parser.go
package llmutil

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	json "github.com/json-iterator/go"
)

var (
	// Regex definitions use \x60 (hex representation) for backticks because Go raw strings cannot contain backticks.

	// fencedBlockRegex captures the body of the first markdown code fence, with or without a language tag.
	fencedBlockRegex = regexp.MustCompile("(?s)\x60\x60\x60[a-zA-Z]*\\s*(.*?)\\s*\x60\x60\x60")
)

// ErrNoJSONObject is returned when a response contains no brace-delimited object.
var ErrNoJSONObject = errors.New("no JSON object found in response")

// DecodeStrict unmarshals the whole trimmed response into T. Any prose or
// markdown around the document makes it fail.
func DecodeStrict[T any](response string) (*T, error) {
	var result T
	if err := json.Unmarshal([]byte(strings.TrimSpace(response)), &result); err != nil {
		return nil, fmt.Errorf("strict decode failed: %w", err)
	}
	return &result, nil
}

// DecodeLenient extracts the most plausible JSON object from a model response
// and unmarshals it into T.
func DecodeLenient[T any](response string) (*T, error) {
	candidate, err := ExtractJSONObject(response)
	if err != nil {
		return nil, err
	}
	var result T
	if err := json.Unmarshal([]byte(candidate), &result); err != nil {
		return nil, fmt.Errorf("lenient decode failed: %w. Extracted JSON (truncated): %s", err, Truncate(candidate, 500))
	}
	return &result, nil
}

// ExtractJSONObject strips markdown fences and returns the span from the first
// '{' to the last '}'.
func ExtractJSONObject(response string) (string, error) {
	text := StripFences(response)
	first := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if first == -1 || last == -1 || last < first {
		return "", ErrNoJSONObject
	}
	return text[first : last+1], nil
}

// StripFences returns the body of the first markdown code block, or the
// trimmed input when there is none.
func StripFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.Contains(content, "```") {
		return content
	}
	if matches := fencedBlockRegex.FindStringSubmatch(content); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	// Unterminated fence: drop the opening marker and its language tag.
	idx := strings.Index(content, "```")
	rest := content[idx+3:]
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		rest = rest[nl+1:]
	}
	return strings.TrimSpace(rest)
}

// Truncate shortens s to maxLen bytes for log output.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	// Simple truncation; does not account for rune boundaries but sufficient for logging.
	return s[:maxLen] + "..."
}
