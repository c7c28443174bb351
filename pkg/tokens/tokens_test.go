package tokens

import "testing"

func TestEstimate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 0},
		{name: "whitespace", text: "   \n\t", want: 0},
		{name: "single char", text: "x", want: 1},
		{name: "short sentence", text: "hello there world", want: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Estimate(tt.text); got != tt.want {
				t.Errorf("Estimate(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestCountNonNegative(t *testing.T) {
	for _, text := range []string{"", "hi", "a longer sentence with several words in it"} {
		if got := Count(text); got < 0 {
			t.Errorf("Count(%q) = %d, want >= 0", text, got)
		}
	}
}
