package section

import (
	"testing"

	"github.com/coolbeans/sc2patches/pkg/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		header string
		want   types.Category
	}{
		{"Bug Fixes", types.CategoryBugFix},
		{"Balance Bug Fixes", types.CategoryBugFix},
		{"Fixed Issues", types.CategoryBugFix},
		{"Co-op Missions", types.CategoryCoOp},
		{"COOP COMMANDERS", types.CategoryCoOp},
		{"Versus", types.CategoryVersusBalance},
		{"Balance Update", types.CategoryVersusBalance},
		{"General", types.CategoryGeneral},
		{"General Balance", types.CategoryVersusBalance},
		{"Patch 5.0.11", types.CategoryUnknown},
		{"", types.CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got := Classify(tt.header)
			if got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.header, got, tt.want)
			}
			if again := Classify(tt.header); again != got {
				t.Errorf("Classify(%q) not stable: %v then %v", tt.header, got, again)
			}
		})
	}
}

func TestIsSectionHeader(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Bug Fixes", true},
		{"Quality of Life", true},
		{"Maps", true},
		{"Balance Update", true},
		{"Marine", false},
		{"Widow Mine", false},
		{"Zerg", false},
	}

	for _, tt := range tests {
		if got := IsSectionHeader(tt.text); got != tt.want {
			t.Errorf("IsSectionHeader(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
