// internal/services/directive_test.go
package services

import (
	"testing"

	apperrors "github.com/salazarbot/salazar/internal/errors"
)

func TestExtractJSONObject(t *testing.T) {
	obj, err := ExtractJSONObject("Claro! Aqui está: {\"valido\": true} espero que ajude")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obj != `{"valido": true}` {
		t.Errorf("unexpected object: %q", obj)
	}
}

func TestExtractJSONObjectMissing(t *testing.T) {
	if _, err := ExtractJSONObject("nenhum objeto aqui"); !apperrors.IsParseMalformed(err) {
		t.Errorf("expected malformed error, got %v", err)
	}
	if _, err := ExtractJSONObject("aberto { sem fim"); !apperrors.IsParseMalformed(err) {
		t.Errorf("expected malformed error for unterminated object, got %v", err)
	}
}

func TestParseNarrationDirectiveValid(t *testing.T) {
	raw := `Segue o resultado:
{"valido": true, "motivo": "", "narracao": "As tropas avançam.", "contexto": "Avanço militar registrado."}`

	d, err := ParseNarrationDirective(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.IsValid() {
		t.Error("directive should be valid")
	}
	if d.Narration != "As tropas avançam." {
		t.Errorf("unexpected narration: %q", d.Narration)
	}
	if d.ContextUpdate != "Avanço militar registrado." {
		t.Errorf("unexpected context update: %q", d.ContextUpdate)
	}
}

func TestParseNarrationDirectiveInvalidOutcome(t *testing.T) {
	d, err := ParseNarrationDirective(`{"valido": false, "motivo": "ação sem sentido"}`)
	if err != nil {
		t.Fatalf("a declined narration is not an error: %v", err)
	}
	if d.IsValid() {
		t.Error("directive should carry the declined verdict")
	}
	if d.Reason != "ação sem sentido" {
		t.Errorf("unexpected reason: %q", d.Reason)
	}
}

func TestParseNarrationDirectiveValidRequiresBothFields(t *testing.T) {
	cases := []struct {
		raw   string
		field string
	}{
		{`{"valido": true, "contexto": "c"}`, "narracao"},
		{`{"valido": true, "narracao": "n"}`, "contexto"},
	}
	for _, tc := range cases {
		_, err := ParseNarrationDirective(tc.raw)
		if !apperrors.IsSchemaViolation(err) {
			t.Fatalf("expected schema violation for %q, got %v", tc.raw, err)
		}
		if field := apperrors.ViolatedField(err); field != tc.field {
			t.Errorf("violation should name %s, got %q", tc.field, field)
		}
	}
}

func TestParseNarrationDirectiveMissingVerdict(t *testing.T) {
	_, err := ParseNarrationDirective(`{"narracao": "algo"}`)
	if !apperrors.IsSchemaViolation(err) {
		t.Fatalf("expected schema violation, got %v", err)
	}
	if field := apperrors.ViolatedField(err); field != "valido" {
		t.Errorf("violation should name valido, got %q", field)
	}
}

func TestParseNarrationDirectiveMalformed(t *testing.T) {
	if _, err := ParseNarrationDirective(`{"valido": tru`); !apperrors.IsParseMalformed(err) {
		t.Errorf("expected malformed error, got %v", err)
	}
}

func TestParseDiplomacyDirectiveKinds(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		kind DiplomacyKind
	}{
		{"not actionable", `{"tipo": 0, "motivo": "conversa casual"}`, DiplomacyNotActionable},
		{"npc response", `{"tipo": 1, "pais": "Suécia", "resposta": "Aceitamos os termos.", "contexto": "Suécia aceitou o acordo."}`, DiplomacyNPCResponse},
		{"war declared", `{"tipo": 2, "pais": "Alemanha", "narracao": "A guerra começou.", "contexto": "Guerra declarada.", "guerra": "Segunda Guerra", "sinopse": "Conflito global."}`, DiplomacyWarDeclared},
		{"war updated", `{"tipo": 3, "pais": "Alemanha", "narracao": "A frente avança.", "contexto": "Frente oriental.", "id": 7, "sinopse": "Sinopse nova."}`, DiplomacyWarUpdated},
		{"notable", `{"tipo": 4, "narracao": "Tratado assinado.", "contexto": "Tratado de paz."}`, DiplomacyNotable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := ParseDiplomacyDirective(tc.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if *d.Kind != tc.kind {
				t.Errorf("kind = %d, want %d", *d.Kind, tc.kind)
			}
		})
	}
}

func TestParseDiplomacyDirectiveMissingField(t *testing.T) {
	// kind 2 without a synopsis must be rejected wholesale.
	raw := `{"tipo": 2, "pais": "Alemanha", "narracao": "x", "contexto": "y", "guerra": "Guerra"}`
	_, err := ParseDiplomacyDirective(raw)
	if !apperrors.IsSchemaViolation(err) {
		t.Fatalf("expected schema violation, got %v", err)
	}
	if field := apperrors.ViolatedField(err); field != "sinopse" {
		t.Errorf("violation should name sinopse, got %q", field)
	}
}

func TestParseDiplomacyDirectiveUnknownKind(t *testing.T) {
	_, err := ParseDiplomacyDirective(`{"tipo": 9, "motivo": "x"}`)
	if !apperrors.IsSchemaViolation(err) {
		t.Fatalf("expected schema violation, got %v", err)
	}
}

func TestParseDiplomacyDirectiveMissingKind(t *testing.T) {
	_, err := ParseDiplomacyDirective(`{"motivo": "sem tipo"}`)
	if !apperrors.IsSchemaViolation(err) {
		t.Fatalf("expected schema violation, got %v", err)
	}
	if field := apperrors.ViolatedField(err); field != "tipo" {
		t.Errorf("violation should name tipo, got %q", field)
	}
}
