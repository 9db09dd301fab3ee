package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// ListingRefs is the ordered list of upstream listing references stored as a JSON array.
type ListingRefs []string

func (r *ListingRefs) Scan(src any) error {
	if src == nil {
		*r = ListingRefs{}
		return nil
	}

	switch v := src.(type) {
	case string:
		return r.parse([]byte(v))
	case []byte:
		return r.parse(v)
	default:
		return fmt.Errorf("ListingRefs: unsupported Scan type %T", src)
	}
}

func (r ListingRefs) Value() (driver.Value, error) {
	if len(r) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal([]string(r))
	if err != nil {
		return nil, fmt.Errorf("ListingRefs: marshal: %w", err)
	}
	return string(raw), nil
}

func (r *ListingRefs) parse(raw []byte) error {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		*r = ListingRefs{}
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(trimmed), &out); err != nil {
		return fmt.Errorf("ListingRefs: parse %q: %w", trimmed, err)
	}
	*r = ListingRefs(out)
	return nil
}

// Equal compares two reference lists in order.
func (r ListingRefs) Equal(other ListingRefs) bool {
	if len(r) != len(other) {
		return false
	}
	for i := range r {
		if r[i] != other[i] {
			return false
		}
	}
	return true
}

// Clean drops blanks and duplicates while keeping first-seen order.
func (r ListingRefs) Clean() ListingRefs {
	out := make(ListingRefs, 0, len(r))
	seen := make(map[string]struct{}, len(r))
	for _, ref := range r {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return out
}
