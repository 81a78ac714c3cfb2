package value

import "strings"

// ParsePath parses a slash-separated path ("/a/b/0") into segments.
// Escapes follow RFC 6901: "~1" is "/", "~0" is "~". "" and "/" denote the root.
func ParsePath(s string) []string {
	s = strings.TrimPrefix(s, "/")
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, "/")
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(strings.ReplaceAll(p, "~1", "/"), "~0", "~")
	}
	return parts
}

// FormatPath is the inverse of ParsePath. The root formats as "/".
func FormatPath(path []string) string {
	if len(path) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, p := range path {
		b.WriteByte('/')
		b.WriteString(strings.ReplaceAll(strings.ReplaceAll(p, "~", "~0"), "/", "~1"))
	}
	return b.String()
}
