package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"national US format", "(212) 555-0123", "+12125550123", true},
		{"already E.164", "+31612345678", "+31612345678", true},
		{"surrounding whitespace", "  +31612345678  ", "+31612345678", true},
		{"empty", "", "", false},
		{"blank", "   ", "", false},
		{"not a number", "not a phone", "", false},
		{"too short to be valid", "+1 23", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeE164(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("NormalizeE164(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Fatalf("NormalizeE164(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
