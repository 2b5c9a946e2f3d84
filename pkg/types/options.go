package types

import (
	"encoding/json"
	"sort"
	"strings"
)

// ItemOptions holds the modifier selections for a cart line (size, extras,
// removals). Stored as jsonb; the canonical form participates in the
// line-item merge key so identical selections collapse into one line.
type ItemOptions map[string]any

// Canonical renders the options as deterministic JSON: keys sorted, no
// insignificant whitespace. Two semantically equal payloads produce the same
// string regardless of the order the client sent them in.
func (o ItemOptions) Canonical() string {
	if len(o) == 0 {
		return ""
	}
	var b strings.Builder
	writeCanonical(&b, map[string]any(o))
	return b.String()
}

func writeCanonical(b *strings.Builder, value any) {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			encoded, _ := json.Marshal(k)
			b.Write(encoded)
			b.WriteByte(':')
			writeCanonical(b, v[k])
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, item)
		}
		b.WriteByte(']')
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			b.WriteString("null")
			return
		}
		b.Write(encoded)
	}
}
