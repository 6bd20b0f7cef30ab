package identity

import "strings"

// NormalizePhone converts an Ecuadorian mobile number to E.164 (+593...).
// Accepted inputs: "0999090660", "999090660", "593999090660" and
// "+593999090660", with spaces, dashes or parentheses tolerated. Returns ""
// when the value cannot be normalized.
func NormalizePhone(phone string) string {
	var digits strings.Builder
	plus := false
	for i, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '+' && i == 0:
			plus = true
		case r == ' ' || r == '-' || r == '(' || r == ')':
			// separators are ignored
		default:
			return ""
		}
	}
	s := digits.String()

	if plus && strings.HasPrefix(s, "593") && len(s) == 12 {
		return "+" + s
	}
	// Strip international prefixes written as 00.
	s = strings.TrimPrefix(s, "00")

	switch {
	case strings.HasPrefix(s, "593") && len(s) == 12:
		return "+" + s
	case len(s) == 10 && s[0] == '0' && s[1] == '9':
		return "+593" + s[1:]
	case len(s) == 9 && s[0] == '9':
		return "+593" + s
	}
	return ""
}
