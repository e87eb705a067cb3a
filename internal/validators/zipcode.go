package validators

import "strings"

// NormalizeZipcode trims a postal code and strips a ZIP+4 suffix. ok is false
// unless exactly five digits remain.
func NormalizeZipcode(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if i := strings.IndexByte(s, '-'); i == 5 {
		s = s[:5]
	}
	if len(s) != 5 {
		return "", false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return "", false
		}
	}
	return s, true
}
