package domain

import (
	"fmt"
	"strings"
)

// ApprovalField is the front matter field that gates processing of a note.
const ApprovalField = "ready_for_processing"

// CheckApproval evaluates an approval gate in document metadata.
//
// Only boolean true, the strings "true", "yes" and "y" (any case) and the number 1 open the
// gate. Everything else, including a missing field, keeps it closed and the returned reason
// says why.
func CheckApproval(meta map[string]any, field string) (bool, string) {
	v, ok := meta[field]
	if !ok {
		return false, field + " field missing"
	}

	switch val := v.(type) {
	case nil:
		return false, field + " field has no value"
	case bool:
		if val {
			return true, "approved"
		}
		return false, field + " explicitly set to false"
	case string:
		s := strings.ToLower(strings.TrimSpace(val))
		switch s {
		case "true", "yes", "y":
			return true, "approved"
		case "false", "no", "n":
			return false, field + " explicitly set to false"
		}
		return false, fmt.Sprintf("%s has unsupported string value %q", field, val)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		n := fmt.Sprint(val)
		switch n {
		case "1":
			return true, "approved"
		case "0":
			return false, field + " explicitly set to false"
		}
		return false, fmt.Sprintf("%s has unsupported numeric value %s", field, n)
	default:
		return false, fmt.Sprintf("%s has unsupported value type %T", field, val)
	}
}
