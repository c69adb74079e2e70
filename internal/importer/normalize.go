package importer

import "strings"

// NormalizeRow converts a raw sheet row into its canonical form: keys are
// lower-cased, trimmed and snake_cased; string values are trimmed; any other
// value passes through unchanged. Normalizing an already-normalized row is a
// no-op.
func NormalizeRow(raw map[string]any) Row {
	out := make(Row, len(raw))
	for key, value := range raw {
		k := normalizeKey(key)
		if k == "" {
			continue
		}
		if s, ok := value.(string); ok {
			out[k] = strings.TrimSpace(s)
		} else {
			out[k] = value
		}
	}
	return out
}

func normalizeKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	var b strings.Builder
	b.Grow(len(k))
	lastUnderscore := false
	for _, r := range k {
		switch {
		case r == ' ' || r == '\t' || r == '-' || r == '_':
			if b.Len() > 0 && !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastUnderscore = false
		default:
			// Drop punctuation such as the parentheses in "Floor (level)".
		}
	}
	return strings.TrimRight(b.String(), "_")
}
