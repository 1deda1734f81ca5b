package chains

import "testing"

func TestKnown(t *testing.T) {
	known := Known()
	if len(known) == 0 {
		t.Fatal("Known() returned no chains")
	}

	seen := make(map[string]bool)
	for _, code := range known {
		if seen[code] {
			t.Errorf("duplicate chain code %q", code)
		}
		seen[code] = true
	}
}

func TestIsKnown(t *testing.T) {
	tests := []struct {
		code     string
		expected bool
	}{
		{"konzum", true},
		{"lidl", true},
		{"trgovina-krk", true},
		{"walmart", false},
		{"KONZUM", false}, // codes are lowercase
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := IsKnown(tt.code); got != tt.expected {
				t.Errorf("IsKnown(%q) = %v, want %v", tt.code, got, tt.expected)
			}
		})
	}
}
