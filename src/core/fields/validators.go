package fields

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"metadirectory/src/core/domain"
)

const (
	maxShortText = 1024
	maxLongText  = 4096
	maxListItems = 64
	maxPort      = 65535
)

// validate checks single values against validator tags. It is safe for
// concurrent use and caches parsed tags.
var validate = validator.New()

const (
	tagHost = "hostname_rfc1123|ip"
	tagURL  = "http_url"
)

func valid(v any, tag string) bool {
	return validate.Var(v, tag) == nil
}

func invalid(msg string) error {
	return &domain.DomainError{Base: domain.ErrInvalidValue, Message: msg}
}

func parseText(limit int) func(json.RawMessage) (any, error) {
	tag := fmt.Sprintf("max=%d", limit)
	return func(raw json.RawMessage) (any, error) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, invalid("must be a string")
		}
		s = strings.TrimSpace(s)
		if !valid(s, tag) {
			return nil, invalid("too long")
		}
		return s, nil
	}
}

// parseInt accepts a JSON number with no fractional part or a numeric
// string, bounded to [lo, hi].
func parseInt(lo, hi int) func(json.RawMessage) (any, error) {
	tag := fmt.Sprintf("min=%d,max=%d", lo, hi)
	return func(raw json.RawMessage) (any, error) {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, invalid("must be an integer")
		}
		var n int
		switch t := v.(type) {
		case float64:
			if t != math.Trunc(t) || t < math.MinInt32 || t > math.MaxInt32 {
				return nil, invalid("must be an integer")
			}
			n = int(t)
		case string:
			parsed, err := strconv.Atoi(strings.TrimSpace(t))
			if err != nil {
				return nil, invalid("must be an integer")
			}
			n = parsed
		default:
			return nil, invalid("must be an integer")
		}
		if !valid(n, tag) {
			return nil, invalid("out of range")
		}
		return n, nil
	}
}

func parseBool(raw json.RawMessage) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, invalid("must be a boolean")
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return nil, invalid("must be a boolean")
		}
		return b, nil
	}
	return nil, invalid("must be a boolean")
}

func parseEnum[T ~string](valid func(T) bool) func(json.RawMessage) (any, error) {
	return func(raw json.RawMessage) (any, error) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, invalid("must be a string")
		}
		v := T(strings.ToLower(strings.TrimSpace(s)))
		if !valid(v) {
			return nil, invalid("unknown value")
		}
		return v, nil
	}
}

func parseHost(raw json.RawMessage) (any, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, invalid("must be a string")
	}
	s = strings.TrimSpace(s)
	if len(s) > 253 || !valid(s, tagHost) {
		return nil, invalid("not a host name or address")
	}
	return s, nil
}

// parseList accepts a JSON array of strings or a comma-separated string.
// Entries are trimmed, empty entries dropped, and duplicates removed keeping
// the first occurrence.
func parseList(fold bool, check func(string) bool) func(json.RawMessage) (any, error) {
	return func(raw json.RawMessage) (any, error) {
		var items []string
		if err := json.Unmarshal(raw, &items); err != nil {
			var joined string
			if err := json.Unmarshal(raw, &joined); err != nil {
				return nil, invalid("must be a list of strings")
			}
			items = strings.Split(joined, ",")
		}
		out := make([]string, 0, len(items))
		seen := make(map[string]struct{}, len(items))
		for _, item := range items {
			item = strings.TrimSpace(item)
			if fold {
				item = strings.ToLower(item)
			}
			if item == "" {
				continue
			}
			if check != nil && !check(item) {
				return nil, invalid("invalid list entry")
			}
			if _, dup := seen[item]; dup {
				continue
			}
			seen[item] = struct{}{}
			out = append(out, item)
		}
		if len(out) > maxListItems {
			return nil, invalid("too many entries")
		}
		return out, nil
	}
}

func isHTTPURL(s string) bool {
	return valid(s, tagURL)
}

func parseThumbnail(raw json.RawMessage) (any, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, invalid("must be a string")
	}
	s = strings.TrimSpace(s)
	if s != "" && !isHTTPURL(s) {
		return nil, invalid("must be an http(s) URL")
	}
	return s, nil
}
