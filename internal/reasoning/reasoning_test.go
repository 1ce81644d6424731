package reasoning

import "testing"

func TestExtract(t *testing.T) {
	tests := []struct {
		name          string
		in            string
		wantReasoning string
		wantContent   string
	}{
		{
			name:          "summary stripped",
			in:            "<details><summary>X</summary>REASON</details>BODY",
			wantReasoning: "REASON",
			wantContent:   "BODY",
		},
		{
			name:        "no markers",
			in:          "hello",
			wantContent: "hello",
		},
		{
			name:        "no markers keeps whitespace",
			in:          "  hello\n",
			wantContent: "  hello\n",
		},
		{
			name:          "attributes and newlines",
			in:            "<details open type=\"reasoning\">\n<summary>Thinking\n...</summary>\nstep one\nstep two\n</details>\n\nThe answer is 4.\n",
			wantReasoning: "step one\nstep two",
			wantContent:   "The answer is 4.",
		},
		{
			name:          "text before block is dropped",
			in:            "preamble <details>why</details> answer",
			wantReasoning: "why",
			wantContent:   "answer",
		},
		{
			name:          "empty content after block",
			in:            "<details>only thinking</details>",
			wantReasoning: "only thinking",
		},
		{
			name:          "second block stays in content",
			in:            "<details>a</details>mid<details>b</details>end",
			wantReasoning: "a",
			wantContent:   "mid<details>b</details>end",
		},
		{
			name:        "unclosed block",
			in:          "<details>never closed",
			wantContent: "<details>never closed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, c := Extract(tt.in)
			if r != tt.wantReasoning {
				t.Errorf("reasoning = %q, want %q", r, tt.wantReasoning)
			}
			if c != tt.wantContent {
				t.Errorf("content = %q, want %q", c, tt.wantContent)
			}
		})
	}
}
