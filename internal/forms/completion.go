package forms

import (
	"math"
	"strings"
)

// CompletionPercent counts one slot per simple field and rows x columns
// slots per grid field. A slot is filled when its trimmed value is
// non-empty. Keys outside the schema never count.
func CompletionPercent(s Schema, fields FieldMap) int {
	total, filled := 0, 0
	for _, field := range s.Fields() {
		for _, key := range field.SlotKeys() {
			total++
			if strings.TrimSpace(fields[key]) != "" {
				filled++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(filled) / float64(total) * 100))
}

// StepComplete reports whether every slot of the step is filled.
func StepComplete(step Step, fields FieldMap) bool {
	for _, field := range step.Fields {
		for _, key := range field.SlotKeys() {
			if strings.TrimSpace(fields[key]) == "" {
				return false
			}
		}
	}
	return true
}
