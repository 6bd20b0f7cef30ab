package identity

import "testing"

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0999090660", "+593999090660"},
		{"999090660", "+593999090660"},
		{"593999090660", "+593999090660"},
		{"+593999090660", "+593999090660"},
		{"00593999090660", "+593999090660"},
		{"099 909 0660", "+593999090660"},
		{"099-909-0660", "+593999090660"},
		{"(09) 9909 0660", "+593999090660"},
		{"", ""},
		{"12345", ""},
		{"0899090660", ""},     // landline prefix, not mobile
		{"+15551234567", ""},   // wrong country
		{"09990906601", ""},    // too long
		{"09990a0660", ""},     // letters
	}
	for _, tc := range cases {
		if got := NormalizePhone(tc.in); got != tc.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
