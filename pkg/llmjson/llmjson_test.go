package llmjson

import "testing"

type verdict struct {
	Complexity int    `json:"complexity"`
	Category   string `json:"category"`
}

func TestUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
		want    verdict
	}{
		{
			name:    "plain json",
			content: `{"complexity": 7, "category": "code"}`,
			want:    verdict{Complexity: 7, Category: "code"},
		},
		{
			name:    "fenced json",
			content: "```json\n{\"complexity\": 3, \"category\": \"general\"}\n```",
			want:    verdict{Complexity: 3, Category: "general"},
		},
		{
			name:    "trailing comma repaired",
			content: `{"complexity": 5, "category": "research",}`,
			want:    verdict{Complexity: 5, Category: "research"},
		},
		{
			name:    "empty",
			content: "   ",
			wantErr: true,
		},
		{
			name:    "prose only",
			content: "I think this is a complex question.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got verdict
			err := Unmarshal(tt.content, &got)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
