package catalog

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Validators are referenced by name from the catalog file, since YAML cannot
// carry functions. A validator returns the canonical value to persist, or an
// error when the raw model response does not match the expected shape. A
// validation error is a normal low-confidence outcome, never a pipeline fault.

var (
	datePattern    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	integerPattern = regexp.MustCompile(`^-?\d+$`)
	numberPattern  = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
)

// The models are instructed to answer "-" when they cannot find a value;
// that answer is a valid (empty) result, not a miss.
const noAnswer = "-"

func resolveValidator(spec string) (func(string) (string, error), error) {
	name, arg, _ := strings.Cut(spec, ":")
	switch strings.TrimSpace(name) {
	case "date":
		return validatePattern(datePattern, "YYYY-MM-DD date"), nil
	case "integer":
		return validatePattern(integerPattern, "integer"), nil
	case "number":
		return validatePattern(numberPattern, "number"), nil
	case "nonempty":
		return validateNonEmpty, nil
	case "json_keys":
		keys := splitArgs(arg)
		if len(keys) == 0 {
			return nil, fmt.Errorf("validator json_keys requires at least one key")
		}
		return validateJSONKeys(keys), nil
	default:
		return nil, fmt.Errorf("unknown validator %q", spec)
	}
}

func validatePattern(pattern *regexp.Regexp, want string) func(string) (string, error) {
	return func(raw string) (string, error) {
		value := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"`))
		if value == noAnswer {
			return value, nil
		}
		if !pattern.MatchString(value) {
			return "", fmt.Errorf("expected %s, got %q", want, raw)
		}
		return value, nil
	}
}

func validateNonEmpty(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", fmt.Errorf("empty answer")
	}
	return value, nil
}

// validateJSONKeys accepts a JSON object containing every required key and
// re-marshals it so the persisted result is canonical regardless of any
// prose the model wrapped around it.
func validateJSONKeys(keys []string) func(string) (string, error) {
	return func(raw string) (string, error) {
		var payload map[string]any
		if err := json.Unmarshal([]byte(extractJSONObject(raw)), &payload); err != nil {
			return "", fmt.Errorf("parse json answer: %w", err)
		}
		for _, key := range keys {
			if _, ok := payload[key]; !ok {
				return "", fmt.Errorf("json answer missing key %q", key)
			}
		}
		canonical, err := json.Marshal(payload)
		if err != nil {
			return "", fmt.Errorf("re-marshal json answer: %w", err)
		}
		return string(canonical), nil
	}
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func splitArgs(arg string) []string {
	parts := strings.Split(arg, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
