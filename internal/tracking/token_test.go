package tracking

import "testing"

func TestTokenRoundTrip(t *testing.T) {
	tok := NewToken("s3cret", "b1", "ORD-000001")
	if !Verify("s3cret", tok, "b1", "ORD-000001") {
		t.Fatalf("expected token to verify")
	}

	cases := []struct {
		name     string
		secret   string
		token    string
		business string
		order    string
	}{
		{"wrong secret", "other", tok, "b1", "ORD-000001"},
		{"other order", "s3cret", tok, "b1", "ORD-000002"},
		{"other business", "s3cret", tok, "b2", "ORD-000001"},
		{"garbage", "s3cret", "not-a-token", "b1", "ORD-000001"},
		{"bad signature", "s3cret", tok + "x", "b1", "ORD-000001"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if Verify(tc.secret, tc.token, tc.business, tc.order) {
				t.Fatalf("expected verification to fail")
			}
		})
	}
}
