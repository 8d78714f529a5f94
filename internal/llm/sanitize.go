package llm

import (
	"errors"
	"strings"
)

// ErrNoJSONObject is returned by ExtractJSONObject when s holds no object.
var ErrNoJSONObject = errors.New("no JSON object in model output")

// StripThinkingTags removes <think>...</think> blocks from model output.
// A closing tag with no opening tag before it is left in place.
func StripThinkingTags(s string) string {
	for {
		start := strings.Index(s, "<think>")
		if start == -1 {
			break
		}
		end := strings.Index(s[start:], "</think>")
		if end == -1 {
			s = strings.TrimSpace(s[:start])
			break
		}
		s = s[:start] + s[start+end+len("</think>"):]
	}
	return strings.TrimSpace(s)
}

// StripMarkdownFences removes thinking tags and the outermost ``` fence pair.
func StripMarkdownFences(s string) string {
	s = StripThinkingTags(s)
	lines := strings.Split(s, "\n")

	start := 0
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			start = i + 1
			break
		}
	}
	end := len(lines)
	for i := len(lines) - 1; i >= start; i-- {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "```") {
			end = i
			break
		}
	}
	if start == 0 && end == len(lines) {
		return s
	}
	return strings.TrimSpace(strings.Join(lines[start:end], "\n"))
}

// ExtractJSONObject returns the first balanced {...} span of s after fence
// stripping. String literals are honoured so braces inside them do not count.
func ExtractJSONObject(s string) (string, error) {
	s = StripMarkdownFences(s)
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return "", ErrNoJSONObject
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", ErrNoJSONObject
}
