package attr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arloliu/davisgo/set"
	"github.com/arloliu/davisgo/units"
)

const unitSuffix = ".Unit"

// Collect merges buffer- and frame-level raw attributes into typed
// attributes keyed by attribute name. Frame attributes shadow buffer
// attributes of the same key. DevData device traces are folded, ".Unit"
// companion keys are consumed as units of their base attribute, and nil
// input maps are treated as empty.
func Collect(buffer, frame set.Attributes, reg *units.Registry) map[string]Attribute {
	type rawEntry struct {
		value any
		level Level
	}

	raw := make(map[string]rawEntry)
	for k, v := range Normalize(buffer) {
		raw[k] = rawEntry{value: v, level: LevelBuffer}
	}
	for k, v := range Normalize(frame) {
		raw[k] = rawEntry{value: v, level: LevelFrame}
	}

	result := make(map[string]Attribute, len(raw))

	// Device-data traces: one logical quantity spread over DevDataTrace{k},
	// DevDataScaleI{k}, DevDataName{k}, DevDataAlias{k} and friends.
	if src, ok := raw["DevDataSources"]; ok {
		n := traceCount(src.value)
		for k := range n {
			trace, ok := raw[fmt.Sprintf("DevDataTrace%d", k)]
			if !ok {
				continue
			}

			name := stringAt(raw[fmt.Sprintf("DevDataName%d", k)].value)
			alias := stringAt(raw[fmt.Sprintf("DevDataAlias%d", k)].value)

			scale := set.IdentityScale
			if s := stringAt(raw[fmt.Sprintf("DevDataScaleI%d", k)].value); s != "" {
				if parsed, err := set.ParseScale(s); err == nil {
					scale = parsed
				}
			}

			key := alias
			if key == "" {
				key = name
			}
			if key == "" {
				key = fmt.Sprintf("DevDataTrace%d", k)
			}

			values, ok := traceValues(trace.value)
			if !ok {
				continue
			}

			result[key] = Attribute{
				Key:   key,
				Level: trace.level,
				Kind:  KindTrace,
				Unit:  reg.Resolve(scale.Unit),
				Name:  name,
				Alias: alias,
				value: scale.ApplyAll(values),
			}
		}
	}

	for key, entry := range raw {
		if strings.HasPrefix(key, "DevData") {
			continue
		}
		if base, ok := strings.CutSuffix(key, unitSuffix); ok {
			if _, exists := raw[base]; exists {
				continue // consumed as the base attribute's unit below
			}
		}

		unit := ""
		if u, ok := raw[key+unitSuffix]; ok {
			unit = stringAt(u.value)
		}

		result[key] = Infer(key, entry.level, entry.value, unit, reg)
	}

	return result
}

func traceCount(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}

func stringAt(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return ""
	}
}

func traceValues(v any) ([]float64, bool) {
	switch t := v.(type) {
	case []float64:
		out := make([]float64, len(t))
		copy(out, t)
		return out, true
	case float64:
		return []float64{t}, true
	case int64:
		return []float64{float64(t)}, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil, false
		}
		return []float64{f}, true
	default:
		return nil, false
	}
}
