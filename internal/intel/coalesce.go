package intel

import (
	"fmt"
	"strconv"
	"strings"

	"meeting-intel/internal/models"
)

const bulletChars = "-*• "

// coalesceStr turns nil and blank strings into "unknown". Scalars are
// formatted; objects and arrays are returned unchanged so schema
// validation rejects them.
func coalesceStr(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return models.Unknown
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return s
		}
		return models.Unknown
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return v
	}
}

// CoalesceList coerces model output into a list of non-empty strings.
// Strings are split on lines (bullets stripped), then ";", then "." when
// there are several sentences. Other types yield an empty list.
func CoalesceList(v interface{}) []string {
	switch t := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, x := range t {
			if x == nil {
				continue
			}
			if s := strings.TrimSpace(stringify(x)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		return splitListString(t)
	default:
		return []string{}
	}
}

func splitListString(raw string) []string {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, models.Unknown) {
		return []string{}
	}

	var parts []string
	for _, chunk := range strings.Split(strings.ReplaceAll(s, "\r", ""), "\n") {
		chunk = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(chunk), bulletChars))
		if chunk != "" {
			parts = append(parts, chunk)
		}
	}
	if len(parts) > 1 {
		return parts
	}
	if strings.Contains(s, ";") {
		return splitNonEmpty(s, ";")
	}
	if strings.Count(s, ".") >= 2 {
		return splitNonEmpty(s, ".")
	}
	return []string{s}
}

func splitNonEmpty(s, sep string) []string {
	out := []string{}
	for _, p := range strings.Split(s, sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// coalesceDict returns v when it is a JSON object, else an empty one.
func coalesceDict(v interface{}) map[string]interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

// falsy mirrors loose truthiness over decoded JSON values.
func falsy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return t == 0
	case []interface{}:
		return len(t) == 0
	case map[string]interface{}:
		return len(t) == 0
	default:
		return false
	}
}

// firstTruthy returns the first non-falsy value of keys in m.
func firstTruthy(m map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v := m[k]; !falsy(v) {
			return v
		}
	}
	return nil
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
