package schema

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// maxCandidates bounds how many balanced objects are tried before giving up.
const maxCandidates = 32

// ExtractJSON returns the JSON document contained in a model reply, or ""
// when there is none.  A reply that is already valid JSON is returned as is;
// otherwise the first fenced block and then the first balanced object are
// tried.  Scanning stops at the first unclosed brace since no later brace
// can close either.
func ExtractJSON(reply string) string {
	s := strings.TrimSpace(reply)
	if s == "" {
		return ""
	}
	if json.Valid([]byte(s)) {
		return s
	}

	if strings.Contains(s, "```") {
		if m := fencePattern.FindStringSubmatch(s); len(m) > 1 {
			candidate := strings.TrimSpace(m[1])
			if json.Valid([]byte(candidate)) {
				return candidate
			}
		}
	}

	for start, tried := strings.IndexByte(s, '{'), 0; start >= 0 && tried < maxCandidates; tried++ {
		end := matchBrace(s, start)
		if end < 0 {
			break
		}
		if candidate := s[start : end+1]; json.Valid([]byte(candidate)) {
			return candidate
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return ""
}

// matchBrace returns the index of the brace closing the one at start, or -1.
// Braces inside string literals are ignored.
func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case c == '{' && !inString:
			depth++
		case c == '}' && !inString:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
