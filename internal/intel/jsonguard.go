package intel

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var errEmptyResponse = errors.New("empty response")

// ParseObject strictly parses model text as a JSON object after
// unwrapping an optional code fence (with or without a language tag).
func ParseObject(text string) (map[string]interface{}, error) {
	if text == "" {
		return nil, errEmptyResponse
	}

	stripped := strings.TrimSpace(text)
	if strings.HasPrefix(stripped, "```") {
		stripped = strings.Trim(stripped, "`")
		stripped = dropFenceTag(stripped)
	}

	var v interface{}
	if err := json.Unmarshal([]byte(stripped), &v); err != nil {
		return nil, fmt.Errorf("invalid json: %v", err)
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid json: expected an object, got %T", v)
	}
	return obj, nil
}

// dropFenceTag removes the language tag line that follows an opening fence,
// whatever its case or line ending.
func dropFenceTag(body string) string {
	nl := strings.IndexByte(body, '\n')
	if nl < 0 {
		return body
	}
	tag := strings.TrimSpace(body[:nl])
	if tag == "" || strings.ContainsAny(tag, "{[") {
		return body
	}
	return body[nl+1:]
}
