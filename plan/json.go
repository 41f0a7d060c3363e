package plan

import "strings"

// coerceJSON isolates a JSON object from a raw model completion. Models asked
// for strict JSON still wrap answers in Markdown code fences or prose often
// enough that this has to be tolerated: fences are stripped first, then, if
// the payload does not already start with '{', the first balanced {...}
// region is extracted. The result is not guaranteed to parse; the caller owns
// the unmarshal error.
func coerceJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}

	if strings.HasPrefix(s, "{") {
		return s
	}
	if region, ok := firstBalancedObject(s); ok {
		return region
	}
	return s
}

// firstBalancedObject scans for the first '{' and returns the substring up to
// its matching '}', tracking JSON string literals so braces inside strings do
// not affect the depth count.
func firstBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
