// internal/services/directive.go
package services

import (
	"encoding/json"
	"strings"

	apperrors "github.com/salazarbot/salazar/internal/errors"
)

// NarrationDirective is the JSON object a narration or event reply must
// carry. Wire keys follow the prompt contract the models are instructed
// with, which is Portuguese.
type NarrationDirective struct {
	Valid         *bool  `json:"valido"`
	Reason        string `json:"motivo"`
	Narration     string `json:"narracao"`
	ContextUpdate string `json:"contexto"`
}

// IsValid reports the model's verdict; a missing field counts as invalid.
func (d *NarrationDirective) IsValid() bool {
	return d.Valid != nil && *d.Valid
}

// DiplomacyKind discriminates the diplomacy directive shapes.
type DiplomacyKind int

const (
	DiplomacyNotActionable DiplomacyKind = 0
	DiplomacyNPCResponse   DiplomacyKind = 1
	DiplomacyWarDeclared   DiplomacyKind = 2
	DiplomacyWarUpdated    DiplomacyKind = 3
	DiplomacyNotable       DiplomacyKind = 4
)

// DiplomacyDirective is the JSON object a diplomacy reply must carry.
// Required fields depend on Kind; see Validate.
type DiplomacyDirective struct {
	Kind          *DiplomacyKind `json:"tipo"`
	Reason        string         `json:"motivo"`
	Country       string         `json:"pais"`
	NPCReply      string         `json:"resposta"`
	ContextUpdate string         `json:"contexto"`
	Narration     string         `json:"narracao"`
	WarTitle      string         `json:"guerra"`
	WarSynopsis   string         `json:"sinopse"`
	WarID         *int64         `json:"id"`
}

// ExtractJSONObject pulls the first {...} region out of free text: from
// the first '{' to the next '}'. The models are told to emit one flat
// object, possibly wrapped in commentary; a full brace scan is
// deliberately not attempted.
func ExtractJSONObject(raw string) (string, error) {
	start := strings.Index(raw, "{")
	if start < 0 {
		return "", apperrors.NewParseMalformedError("no JSON object found in reply", nil)
	}
	end := strings.Index(raw[start:], "}")
	if end < 0 {
		return "", apperrors.NewParseMalformedError("unterminated JSON object in reply", nil)
	}
	return raw[start : start+end+1], nil
}

// ParseNarrationDirective extracts and validates a narration directive
// out of a raw model reply.
func ParseNarrationDirective(raw string) (*NarrationDirective, error) {
	obj, err := ExtractJSONObject(raw)
	if err != nil {
		return nil, err
	}

	var d NarrationDirective
	if err := json.Unmarshal([]byte(obj), &d); err != nil {
		return nil, apperrors.NewParseMalformedError("reply JSON does not parse", err)
	}

	if d.Valid == nil {
		return nil, apperrors.NewSchemaViolationError("valido")
	}
	if d.IsValid() {
		if d.Narration == "" {
			return nil, apperrors.NewSchemaViolationError("narracao")
		}
		if d.ContextUpdate == "" {
			return nil, apperrors.NewSchemaViolationError("contexto")
		}
	} else if d.Reason == "" {
		return nil, apperrors.NewSchemaViolationError("motivo")
	}
	return &d, nil
}

// diplomacyRequired maps each kind to its required field set. A missing
// field rejects the whole reply; no partial effects are ever applied.
var diplomacyRequired = map[DiplomacyKind][]string{
	DiplomacyNotActionable: {"motivo"},
	DiplomacyNPCResponse:   {"pais", "resposta", "contexto"},
	DiplomacyWarDeclared:   {"pais", "narracao", "contexto", "guerra", "sinopse"},
	DiplomacyWarUpdated:    {"pais", "narracao", "contexto", "id", "sinopse"},
	DiplomacyNotable:       {"narracao", "contexto"},
}

// ParseDiplomacyDirective extracts and validates a diplomacy directive
// out of a raw model reply.
func ParseDiplomacyDirective(raw string) (*DiplomacyDirective, error) {
	obj, err := ExtractJSONObject(raw)
	if err != nil {
		return nil, err
	}

	var d DiplomacyDirective
	if err := json.Unmarshal([]byte(obj), &d); err != nil {
		return nil, apperrors.NewParseMalformedError("reply JSON does not parse", err)
	}

	if d.Kind == nil {
		return nil, apperrors.NewSchemaViolationError("tipo")
	}
	required, known := diplomacyRequired[*d.Kind]
	if !known {
		return nil, apperrors.NewSchemaViolationError("tipo")
	}

	for _, field := range required {
		if !d.hasField(field) {
			return nil, apperrors.NewSchemaViolationError(field)
		}
	}
	return &d, nil
}

func (d *DiplomacyDirective) hasField(field string) bool {
	switch field {
	case "motivo":
		return d.Reason != ""
	case "pais":
		return d.Country != ""
	case "resposta":
		return d.NPCReply != ""
	case "contexto":
		return d.ContextUpdate != ""
	case "narracao":
		return d.Narration != ""
	case "guerra":
		return d.WarTitle != ""
	case "sinopse":
		return d.WarSynopsis != ""
	case "id":
		return d.WarID != nil
	default:
		return false
	}
}
