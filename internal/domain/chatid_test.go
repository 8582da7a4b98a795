package domain

import "testing"

func TestChatIDSymmetric(t *testing.T) {
	cases := []struct {
		a, b string
		want string
	}{
		{"user_1", "user_2", "user_1_user_2"},
		{"user_2", "user_1", "user_1_user_2"},
		{"b", "a", "a_b"},
		{"same", "same", "same_same"},
	}
	for _, tc := range cases {
		if got := ChatID(tc.a, tc.b); got != tc.want {
			t.Errorf("ChatID(%q, %q) = %q, want %q", tc.a, tc.b, got, tc.want)
		}
		if ChatID(tc.a, tc.b) != ChatID(tc.b, tc.a) {
			t.Errorf("ChatID(%q, %q) not symmetric", tc.a, tc.b)
		}
	}
}
