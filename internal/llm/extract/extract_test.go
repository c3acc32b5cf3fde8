package extract

import (
	"testing"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain json untouched",
			input: `{"a":1}`,
			want:  `{"a":1}`,
		},
		{
			name:  "fenced with json tag",
			input: "```json\n{\"a\":1}\n```",
			want:  `{"a":1}`,
		},
		{
			name:  "fenced without tag",
			input: "```\n{\"a\":1}\n```",
			want:  `{"a":1}`,
		},
		{
			name:  "surrounding whitespace",
			input: "  \n```json\n{\"a\":1}\n```\n  ",
			want:  `{"a":1}`,
		},
		{
			name:  "opening fence only is untouched",
			input: "```json\n{\"a\":1}",
			want:  "```json\n{\"a\":1}",
		},
		{
			name:  "closing fence only is untouched",
			input: "{\"a\":1}\n```",
			want:  "{\"a\":1}\n```",
		},
		{
			name:  "prose untouched",
			input: "Here are your options.",
			want:  "Here are your options.",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
		{
			name:  "bare fence pair",
			input: "``````",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StripFences(tt.input)
			if got != tt.want {
				t.Errorf("StripFences(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStripFencesIdempotent(t *testing.T) {
	inputs := []string{
		"```json\n{\"a\":1}\n```",
		"plain text",
		"```\n[1,2,3]\n```",
		"",
	}
	for _, in := range inputs {
		once := StripFences(in)
		twice := StripFences(once)
		if once != twice {
			t.Errorf("StripFences not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

type testPayload struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Tags  []string `json:"tags"`
}

func TestDecode(t *testing.T) {
	defaults := testPayload{Name: "fallback", Count: 3, Tags: []string{"a"}}

	t.Run("valid json replaces defaults", func(t *testing.T) {
		got := Decode(`{"name":"real","count":7,"tags":["x","y"]}`, defaults)
		if got.Name != "real" || got.Count != 7 || len(got.Tags) != 2 {
			t.Errorf("unexpected result: %+v", got)
		}
	})

	t.Run("fenced json decodes", func(t *testing.T) {
		got := Decode("```json\n{\"name\":\"fenced\"}\n```", defaults)
		if got.Name != "fenced" {
			t.Errorf("expected fenced, got %q", got.Name)
		}
	})

	t.Run("omitted fields keep defaults", func(t *testing.T) {
		got := Decode(`{"name":"partial"}`, defaults)
		if got.Name != "partial" {
			t.Errorf("expected partial, got %q", got.Name)
		}
		if got.Count != 3 {
			t.Errorf("expected default count 3, got %d", got.Count)
		}
		if len(got.Tags) != 1 || got.Tags[0] != "a" {
			t.Errorf("expected default tags, got %v", got.Tags)
		}
	})

	t.Run("prose returns defaults", func(t *testing.T) {
		got := Decode("I could not produce JSON, sorry.", defaults)
		if got.Name != "fallback" || got.Count != 3 {
			t.Errorf("expected defaults, got %+v", got)
		}
	})

	t.Run("truncated json returns defaults", func(t *testing.T) {
		got := Decode(`{"name":"cut off`, defaults)
		if got.Name != "fallback" {
			t.Errorf("expected defaults, got %+v", got)
		}
	})

	t.Run("empty returns defaults", func(t *testing.T) {
		got := Decode("", defaults)
		if got.Name != "fallback" {
			t.Errorf("expected defaults, got %+v", got)
		}
	})
}

func TestDecodeOr(t *testing.T) {
	type reply struct {
		Message string `json:"message"`
	}
	defaults := reply{}
	fallback := func(text string) reply { return reply{Message: text} }

	t.Run("json wins", func(t *testing.T) {
		got := DecodeOr(`{"message":"structured"}`, defaults, fallback)
		if got.Message != "structured" {
			t.Errorf("expected structured, got %q", got.Message)
		}
	})

	t.Run("prose goes through fallback", func(t *testing.T) {
		got := DecodeOr("Just a plain sentence.", defaults, fallback)
		if got.Message != "Just a plain sentence." {
			t.Errorf("expected raw text, got %q", got.Message)
		}
	})

	t.Run("fallback sees unfenced text", func(t *testing.T) {
		got := DecodeOr("```\nnot json at all\n```", defaults, fallback)
		if got.Message != "not json at all" {
			t.Errorf("expected stripped text, got %q", got.Message)
		}
	})
}
