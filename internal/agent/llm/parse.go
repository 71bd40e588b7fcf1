package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// basic safety limits to avoid pathological model output
const (
	maxContentLen = 128 * 1024 // 128KB
	maxErrSnippet = 200
)

// ParseError reports model output that could not be decoded into the
// requested structure. It is never retried.
type ParseError struct {
	Reason  string
	Snippet string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("parse llm response: %s", e.Reason)
	}
	return fmt.Sprintf("parse llm response: %s: %v", e.Reason, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxErrSnippet {
		return s[:maxErrSnippet]
	}
	return s
}

// ExtractJSON pulls the first JSON object out of model text (models often
// wrap JSON in prose or a markdown fence) and returns the raw object.
func ExtractJSON(content string) (string, error) {
	if len(content) > maxContentLen {
		content = content[:maxContentLen]
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return "", &ParseError{Reason: "no JSON object found", Snippet: safeSnippet(content)}
	}
	return content[start : end+1], nil
}

// DecodeJSON extracts and unmarshals the first JSON object in content into out.
func DecodeJSON(content string, out any) error {
	raw, err := ExtractJSON(content)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return &ParseError{Reason: "invalid JSON object", Snippet: safeSnippet(raw), Err: err}
	}
	return nil
}

var codeFence = regexp.MustCompile("(?s)```(?:python)?\\s*\\n(.*?)```")

// ExtractCodeBlock returns the first fenced code block in content, or the
// trimmed content itself when the model answered with bare code.
func ExtractCodeBlock(content string) string {
	if m := codeFence.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(content)
}
