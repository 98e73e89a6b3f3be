package forms

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Variant selects how a field is rendered and how many slots it contributes
// to completion.
type Variant string

const (
	VariantText       Variant = "text"
	VariantCheckboxes Variant = "checkboxes"
	VariantGrid       Variant = "grid"
)

// FieldMap is the flat draft payload: field keys (or composite grid keys)
// to string values. Multi-select values are comma-joined.
type FieldMap map[string]string

type Field struct {
	Key         string   `json:"key"`
	Label       string   `json:"label"`
	Variant     Variant  `json:"variant"`
	Placeholder string   `json:"placeholder,omitempty"`
	Options     []string `json:"options,omitempty"`
	Rows        []string `json:"rows,omitempty"`
	Columns     []string `json:"columns,omitempty"`
}

type Step struct {
	Key    string  `json:"key"`
	Title  string  `json:"title"`
	Prompt string  `json:"prompt,omitempty"`
	Fields []Field `json:"fields"`
}

type Schema struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Steps       []Step `json:"steps"`
}

var ErrUnknownForm = errors.New("unknown form")

// UnknownKeysError lists payload keys that no field of the schema derives.
type UnknownKeysError struct {
	Form string
	Keys []string
}

func (e *UnknownKeysError) Error() string {
	return fmt.Sprintf("form %s: unknown field keys %s", e.Form, strings.Join(e.Keys, ", "))
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases a label and collapses each run of non-alphanumeric
// characters into a single underscore. Leading and trailing runs are kept.
func Slug(label string) string {
	return nonAlphanumeric.ReplaceAllString(strings.ToLower(label), "_")
}

// GridKey is the only place composite keys are built.
func GridKey(fieldKey, row, column string) string {
	return fieldKey + "_" + Slug(row) + "_" + Slug(column)
}

// SlotKeys returns the keys this field may write. Grid fields own one key
// per row and column pair; every other variant owns its own key.
func (f Field) SlotKeys() []string {
	if f.Variant != VariantGrid {
		return []string{f.Key}
	}
	keys := make([]string, 0, len(f.Rows)*len(f.Columns))
	for _, row := range f.Rows {
		for _, col := range f.Columns {
			keys = append(keys, GridKey(f.Key, row, col))
		}
	}
	return keys
}

// Fields returns every field in step order.
func (s Schema) Fields() []Field {
	var out []Field
	for _, step := range s.Steps {
		out = append(out, step.Fields...)
	}
	return out
}

// Keys returns the full key universe of the schema in render order.
func Keys(s Schema) []string {
	var keys []string
	for _, field := range s.Fields() {
		keys = append(keys, field.SlotKeys()...)
	}
	return keys
}

// Validate rejects payloads that contain keys outside the schema's universe.
// Values are not inspected.
func Validate(s Schema, fields FieldMap) error {
	allowed := make(map[string]struct{})
	for _, key := range Keys(s) {
		allowed[key] = struct{}{}
	}
	var unknown []string
	for key := range fields {
		if _, ok := allowed[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return &UnknownKeysError{Form: s.Key, Keys: unknown}
}

// SplitOptions decodes a comma-joined multi-select value.
func SplitOptions(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func JoinOptions(options []string) string {
	cleaned := make([]string, 0, len(options))
	for _, option := range options {
		option = strings.TrimSpace(option)
		if option != "" {
			cleaned = append(cleaned, option)
		}
	}
	return strings.Join(cleaned, ",")
}
