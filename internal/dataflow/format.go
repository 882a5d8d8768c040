package dataflow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tacpass/tacpass/internal/ir"
)

// Format renders a dataflow value for debugging: a set
// renders as comma-separated sorted members (∅ if empty), a mapping
// renders as "key: value" pairs sorted by key (∅ if empty), and
// anything else falls back to default stringification.
func Format(v any) string {
	switch val := v.(type) {
	case VarSet:
		return formatSet(setKeys(val))
	case RDSet:
		keys := make([]string, 0, len(val))
		for rd := range val {
			keys = append(keys, rd.Var+"@"+rd.Block)
		}
		return formatSet(keys)
	case ConstMap:
		if len(val) == 0 {
			return "∅"
		}
		names := make([]string, 0, len(val))
		for k := range val {
			names = append(names, k)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, name := range names {
			parts[i] = fmt.Sprintf("%s: %s", name, formatLiteral(val[name]))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(v)
	}
}

func setKeys(s VarSet) []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	return keys
}

func formatSet(keys []string) string {
	if len(keys) == 0 {
		return "∅"
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

func formatLiteral(v any) string {
	if v == nil {
		return "∅"
	}
	if ir.IsTop(v) {
		return "⊤"
	}
	return fmt.Sprint(v)
}
