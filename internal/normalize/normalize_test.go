package normalize

import "testing"

func TestFoldWidth(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"RJ012345", "RJ012345"},
		{"ＲＪ０１２３４５", "RJ012345"},
		{"ｶﾀｶﾅ", "カタカナ"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := FoldWidth(tt.input); got != tt.expected {
				t.Errorf("FoldWidth(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSearchKey(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  Slow   Burn ", "slow burn"},
		{"ＡＳＭＲ", "asmr"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := SearchKey(tt.input); got != tt.expected {
				t.Errorf("SearchKey(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestContains(t *testing.T) {
	if !Contains("Ｆａｎｔａｓｙ Adventure", "fantasy") {
		t.Error("expected width and case folded match")
	}
	if !Contains("anything", "") {
		t.Error("empty needle should match")
	}
	if Contains("romance", "horror") {
		t.Error("unexpected match")
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("  My   favourite\tlist "); got != "My favourite list" {
		t.Errorf("DisplayName() = %q", got)
	}
}
