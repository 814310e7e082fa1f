// internal/prompt/template_test.go
package prompt

import (
	"strings"
	"testing"
)

func TestParseRejectsUnknownPlaceholder(t *testing.T) {
	_, err := Parse("test", "Narre a ação de {palyer}")
	if err == nil {
		t.Fatal("expected error for unknown placeholder")
	}
	if !strings.Contains(err.Error(), "palyer") {
		t.Errorf("error should name the placeholder, got %v", err)
	}
}

func TestParseRejectsEmptyTemplate(t *testing.T) {
	if _, err := Parse("test", "   \n"); err == nil {
		t.Fatal("expected error for empty template")
	}
}

func TestRenderSubstitution(t *testing.T) {
	tmpl, err := Parse("test",
		"Jogador: {player}\nServidor: {guild}\nData: {date}\nAção: {action}")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	got := tmpl.Render(Fields{
		Player:    "Lucas",
		GuildName: "Mundo RP",
		Date:      "Janeiro de 1939",
		Action:    "invade a Polônia",
	})
	want := "Jogador: Lucas\nServidor: Mundo RP\nData: Janeiro de 1939\nAção: invade a Polônia"
	if got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}
}

func TestRenderMissingFieldsRenderEmpty(t *testing.T) {
	tmpl := MustParse("test", "Guerras: {wars}|Contexto: {context}")
	if got := tmpl.Render(Fields{}); got != "Guerras: |Contexto: " {
		t.Errorf("unexpected render: %q", got)
	}
}

func TestRenderLeavesLiteralBracesAlone(t *testing.T) {
	tmpl := MustParse("test", `Responda em JSON: {"valido": true, "narracao": "{action}"}`)
	got := tmpl.Render(Fields{Action: "teste"})
	if !strings.Contains(got, `"valido": true`) {
		t.Errorf("JSON scaffold should survive, got %q", got)
	}
	if !strings.Contains(got, `"teste"`) {
		t.Errorf("placeholder should substitute, got %q", got)
	}
}
