package insight

import "testing"

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			name:     "bare object",
			response: `{"pricing": "$49/mo"}`,
			want:     `{"pricing": "$49/mo"}`,
		},
		{
			name:     "json code fence",
			response: "```json\n{\"pricing\": \"$49/mo\"}\n```",
			want:     `{"pricing": "$49/mo"}`,
		},
		{
			name:     "plain code fence",
			response: "```\n{\"products\": []}\n```",
			want:     `{"products": []}`,
		},
		{
			name:     "prose around the object",
			response: "Here is the analysis:\n{\"pricing\": \"none listed\"}\nHope that helps!",
			want:     `{"pricing": "none listed"}`,
		},
		{
			name:     "nested braces survive",
			response: `{"a": {"b": 1}}`,
			want:     `{"a": {"b": 1}}`,
		},
		{
			name:     "no object at all",
			response: "I could not analyze this website.",
			want:     "",
		},
		{
			name:     "empty response",
			response: "",
			want:     "",
		},
		{
			name:     "closing brace before opening",
			response: "} nonsense {",
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractJSONObject(tt.response)
			if got != tt.want {
				t.Errorf("extractJSONObject() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPreview(t *testing.T) {
	if got := preview("short", 10); got != "short" {
		t.Errorf("preview() = %q, want %q", got, "short")
	}
	if got := preview("abcdefghij", 4); got != "abcd..." {
		t.Errorf("preview() = %q, want %q", got, "abcd...")
	}
}
