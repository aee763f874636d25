// Package jsonx pulls JSON documents out of model output.
package jsonx

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when the text holds no decodable JSON value.
var ErrNoJSON = errors.New("no valid JSON object found in response")

// fencePattern matches markdown code fences with an optional language tag.
var fencePattern = regexp.MustCompile("(?s)```(\\w*)\\s*\\n(.+?)\\n```")

// Extract returns the first JSON object or array in s.
// Fenced blocks tagged json (or untagged) win over raw JSON in prose.
func Extract(s string) (string, error) {
	for _, m := range fencePattern.FindAllStringSubmatch(s, -1) {
		lang := strings.ToLower(m[1])
		body := strings.TrimSpace(m[2])
		if lang != "" && lang != "json" {
			continue
		}
		if (strings.HasPrefix(body, "{") || strings.HasPrefix(body, "[")) && json.Valid([]byte(body)) {
			return body, nil
		}
	}

	if raw, ok := extractRaw(s); ok {
		return raw, nil
	}
	return "", ErrNoJSON
}

// Decode extracts JSON from s and unmarshals it into target.
func Decode(s string, target any) error {
	raw, err := Extract(s)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return nil
}

func extractRaw(s string) (string, bool) {
	startObj := strings.IndexByte(s, '{')
	startArr := strings.IndexByte(s, '[')

	start, closeChar := -1, byte('}')
	switch {
	case startObj >= 0 && (startArr < 0 || startObj < startArr):
		start = startObj
	case startArr >= 0:
		start, closeChar = startArr, ']'
	}
	if start < 0 {
		return "", false
	}

	candidate := matchBracket(s[start:], closeChar)
	if candidate != "" && json.Valid([]byte(candidate)) {
		return candidate, true
	}
	return "", false
}

// matchBracket returns the prefix of s up to the bracket closing s[0],
// skipping brackets inside strings.
func matchBracket(s string, closeChar byte) string {
	open := s[0]
	depth := 0
	inString, escaped := false, false

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == closeChar:
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}
