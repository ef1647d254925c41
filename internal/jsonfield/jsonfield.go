// Package jsonfield normalizes JSON-column values on the way into the
// database and denormalizes them on the way out, so GORM models always hold
// already-validated Go values instead of sprinkling validation across ORM
// tags. Grounded on the original implementation's json_validators.py, which
// did this normalization via SQLAlchemy @validates hooks.
package jsonfield

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringArray is a JSON column that holds a list of strings. It accepts a
// Go []string, a JSON array, or a JSON-encoded string of one, normalizing
// all three to a list on write (per spec.md §3 "JSON normalization").
type StringArray []string

func (a *StringArray) Scan(value any) error {
	if value == nil {
		*a = nil
		return nil
	}
	raw, err := asBytes(value)
	if err != nil {
		return err
	}
	if len(raw) == 0 || string(raw) == "null" {
		*a = nil
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("jsonfield: StringArray must be a JSON array: %w", err)
	}
	*a = out
	return nil
}

func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	return json.Marshal([]string(a))
}

// Object is a JSON column holding an arbitrary object. The literal string
// "null" collapses to a nil map, matching ensure_json_object's handling of
// stringly-typed nulls left over from earlier schema versions.
type Object map[string]any

func (o *Object) Scan(value any) error {
	if value == nil {
		*o = nil
		return nil
	}
	raw, err := asBytes(value)
	if err != nil {
		return err
	}
	if len(raw) == 0 || string(raw) == "null" {
		*o = nil
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("jsonfield: Object must be a JSON object: %w", err)
	}
	*o = out
	return nil
}

func (o Object) Value() (driver.Value, error) {
	if o == nil {
		return "{}", nil
	}
	return json.Marshal(map[string]any(o))
}

// FormatRef is {agent_url, id} as used by product.format_ids and
// creative.format_id (spec.md §3).
type FormatRef struct {
	AgentURL string `json:"agent_url"`
	ID       string `json:"id"`
}

// FormatRefList is product.format_ids: an ORDERED LIST of FormatRef. The
// original implementation had a bug where updates only touched element 0;
// modeling this as a real slice (not a map keyed by index) makes that bug
// structurally impossible to reintroduce.
type FormatRefList []FormatRef

func (l *FormatRefList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	raw, err := asBytes(value)
	if err != nil {
		return err
	}
	if len(raw) == 0 || string(raw) == "null" {
		*l = nil
		return nil
	}
	var out []FormatRef
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("jsonfield: FormatRefList must be a JSON array of {agent_url,id}: %w", err)
	}
	*l = out
	return nil
}

func (l FormatRefList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal([]FormatRef(l))
}

// Comment is one entry of workflow_steps.comments.
type Comment struct {
	User      string `json:"user"`
	Timestamp string `json:"timestamp"`
	Text      string `json:"text"`
}

// CommentList validates that every element is a well-formed {user,timestamp,text}
// object, never a partial update touching only one element.
type CommentList []Comment

func (c *CommentList) Scan(value any) error {
	if value == nil {
		*c = nil
		return nil
	}
	raw, err := asBytes(value)
	if err != nil {
		return err
	}
	if len(raw) == 0 || string(raw) == "null" {
		*c = nil
		return nil
	}
	var out []Comment
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("jsonfield: CommentList must be a JSON array of comments: %w", err)
	}
	for i, comment := range out {
		if comment.User == "" || comment.Text == "" {
			return fmt.Errorf("jsonfield: comment %d missing user or text", i)
		}
	}
	*c = out
	return nil
}

func (c CommentList) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	return json.Marshal([]Comment(c))
}

// PlatformMappings is principal.platform_mappings: adapter name -> adapter
// specific identifiers. Must hold at least one platform on write.
type PlatformMappings map[string]map[string]any

func (p *PlatformMappings) Scan(value any) error {
	if value == nil {
		return fmt.Errorf("jsonfield: platform_mappings cannot be null")
	}
	raw, err := asBytes(value)
	if err != nil {
		return err
	}
	var out map[string]map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("jsonfield: platform_mappings must be a JSON object: %w", err)
	}
	*p = out
	return nil
}

func (p PlatformMappings) Value() (driver.Value, error) {
	if len(p) == 0 {
		return nil, fmt.Errorf("jsonfield: platform_mappings requires at least one platform")
	}
	return json.Marshal(map[string]map[string]any(p))
}

// Validate enforces the "at least one platform" invariant independent of
// the DB round trip, so handlers can reject bad input before ever writing.
func (p PlatformMappings) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("platform_mappings: at least one platform mapping is required")
	}
	return nil
}

func asBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("jsonfield: unsupported scan source type %T", value)
	}
}

// EnsureArray normalizes a value that may already be a []any, a JSON array
// string, or nil into a []any, mirroring ensure_json_array.
func EnsureArray(value any) ([]any, error) {
	switch v := value.(type) {
	case nil:
		return []any{}, nil
	case []any:
		return v, nil
	case string:
		var out []any
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, fmt.Errorf("jsonfield: invalid JSON array string: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("jsonfield: value must be a list, got %T", value)
	}
}

// EnsureObject normalizes a value that may already be a map[string]any, a
// JSON object string, the literal "null" string, or nil into a map.
func EnsureObject(value any) (map[string]any, error) {
	switch v := value.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	case string:
		if v == "null" || v == "" {
			return nil, nil
		}
		var out map[string]any
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, fmt.Errorf("jsonfield: invalid JSON object string: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("jsonfield: value must be an object, got %T", value)
	}
}
