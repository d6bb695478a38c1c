package assets

import (
	"fmt"
	"strings"
)

// SanitizeName reduces a client supplied file name to ASCII letters, digits, '.', '-' and '_'.
// Whitespace becomes '_' and leading dots or underscores are dropped.
func SanitizeName(name string) string {
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)

	var b strings.Builder
	for _, r := range strings.Join(strings.Fields(name), "_") {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return strings.TrimLeft(b.String(), "._")
}

// HumanBytes formats n with binary units, e.g. "512 B" or "1.50 MB".
func HumanBytes(n int64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	s := float64(n)
	for i, u := range units {
		if s < 1024 || i == len(units)-1 {
			if u == "B" {
				return fmt.Sprintf("%d B", int64(s))
			}
			return fmt.Sprintf("%.2f %s", s, u)
		}
		s /= 1024
	}
	return ""
}
