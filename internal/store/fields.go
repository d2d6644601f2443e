package store

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

type sentinel int

const (
	sentinelDelete sentinel = iota + 1
	sentinelServerTimestamp
)

// MarshalJSON refuses to encode a sentinel that was not resolved.
func (s sentinel) MarshalJSON() ([]byte, error) {
	return nil, fmt.Errorf("unresolved field sentinel %d", s)
}

// DeleteField, used as a value in Update or a merging Set, removes exactly
// that field path from the document and leaves its siblings untouched.
var DeleteField any = sentinelDelete

// ServerTimestamp is replaced by the commit time of the write it appears in.
var ServerTimestamp any = sentinelServerTimestamp

// resolve replaces ServerTimestamp with ts and strips DeleteField entries,
// recursing into nested maps. The input is not modified.
func resolve(data map[string]any, ts time.Time) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		switch v := v.(type) {
		case sentinel:
			if v == sentinelServerTimestamp {
				out[k] = ts
			}
		case map[string]any:
			out[k] = resolve(v, ts)
		default:
			out[k] = v
		}
	}
	return out
}

// normalize converts arbitrary Go values into their JSON data model
// (map[string]any, []any, string, float64, bool, nil). Stored documents and
// query values are always compared in this form; timestamps become
// RFC 3339 strings.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, ErrInvalidArgument.WithCause(err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, ErrInvalidArgument.WithCause(err)
	}
	return out, nil
}

func normalizeMap(data map[string]any) (map[string]any, error) {
	if data == nil {
		return map[string]any{}, nil
	}
	n, err := normalize(data)
	if err != nil {
		return nil, err
	}
	m, _ := n.(map[string]any)
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// splitField splits a dotted field path, rejecting empty segments.
func splitField(path string) ([]string, error) {
	parts := strings.Split(path, ".")
	for _, p := range parts {
		if p == "" {
			return nil, ErrInvalidArgument.WithMessage(fmt.Sprintf("invalid field path %q", path))
		}
	}
	return parts, nil
}

// lookup reads a dotted field path from a normalized document.
func lookup(data map[string]any, path string) (any, bool) {
	cur := any(data)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// applyFieldUpdates applies dotted-path updates to data in place. Intermediate
// maps are created as needed; a non-map intermediate is replaced by a map.
// Paths are applied in sorted order so overlapping paths behave the same on
// every run.
func applyFieldUpdates(data map[string]any, fields map[string]any, ts time.Time) error {
	for _, path := range slices.Sorted(maps.Keys(fields)) {
		parts, err := splitField(path)
		if err != nil {
			return err
		}
		value := fields[path]

		parent := data
		for _, part := range parts[:len(parts)-1] {
			next, ok := parent[part].(map[string]any)
			if !ok {
				if value == DeleteField {
					parent = nil
					break
				}
				next = map[string]any{}
				parent[part] = next
			}
			parent = next
		}
		if parent == nil {
			continue
		}

		leaf := parts[len(parts)-1]
		switch value {
		case DeleteField:
			delete(parent, leaf)
			continue
		case ServerTimestamp:
			value = ts
		}
		if m, ok := value.(map[string]any); ok {
			value = resolve(m, ts)
		}
		nv, err := normalize(value)
		if err != nil {
			return err
		}
		parent[leaf] = nv
	}
	return nil
}

// mergeInto deep-merges src into dst: nested maps merge key by key, every
// other value replaces what was there, DeleteField removes the key.
func mergeInto(dst, src map[string]any, ts time.Time) error {
	for k, v := range src {
		switch v {
		case DeleteField:
			delete(dst, k)
			continue
		case ServerTimestamp:
			v = ts
		}
		if sm, ok := v.(map[string]any); ok {
			dm, ok := dst[k].(map[string]any)
			if !ok {
				dm = map[string]any{}
				dst[k] = dm
			}
			if err := mergeInto(dm, sm, ts); err != nil {
				return err
			}
			continue
		}
		nv, err := normalize(v)
		if err != nil {
			return err
		}
		dst[k] = nv
	}
	return nil
}
