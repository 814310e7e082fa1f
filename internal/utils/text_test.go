// internal/utils/text_test.go
package utils

import (
	"strings"
	"testing"
)

func TestSimplify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Ação", "acao"},
		{"NÃO NARRAR", "nao narrar"},
		{"já narrado", "ja narrado"},
		{"plain text", "plain text"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Simplify(tc.in); got != tc.want {
			t.Errorf("Simplify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestChunkTextShortInput(t *testing.T) {
	chunks := ChunkText("hello", 100)
	if len(chunks) != 1 || chunks[0] != "hello" {
		t.Fatalf("expected single chunk, got %v", chunks)
	}
}

func TestChunkTextReconstruction(t *testing.T) {
	text := strings.Repeat("linha de narração com acentuação\n", 200)
	chunks := ChunkText(text, 500)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := len([]rune(c)); n > 500 {
			t.Errorf("chunk %d has %d runes, limit 500", i, n)
		}
	}
	if joined := strings.Join(chunks, ""); joined != text {
		t.Error("concatenated chunks do not reproduce the input")
	}
}

func TestChunkTextPrefersNewlineBreaks(t *testing.T) {
	text := strings.Repeat("a", 90) + "\n" + strings.Repeat("b", 90)
	chunks := ChunkText(text, 100)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], "\n") {
		t.Error("first chunk should break after the newline")
	}
}

func TestChunkTextNoNewline(t *testing.T) {
	text := strings.Repeat("x", 250)
	chunks := ChunkText(text, 100)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if strings.Join(chunks, "") != text {
		t.Error("concatenated chunks do not reproduce the input")
	}
}

func TestSplitDiffFence(t *testing.T) {
	main, diff := SplitDiffFence("narração antes\n```diff\n+ ganhou\n- perdeu\n```")
	if main != "narração antes\n" {
		t.Errorf("unexpected main part: %q", main)
	}
	if !strings.HasPrefix(diff, "```diff") {
		t.Errorf("diff part should start at the fence, got %q", diff)
	}

	main, diff = SplitDiffFence("sem bloco diff")
	if main != "sem bloco diff" || diff != "" {
		t.Errorf("text without fence should pass through, got %q / %q", main, diff)
	}
}
