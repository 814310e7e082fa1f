// internal/prompt/template.go
package prompt

import (
	"fmt"
	"regexp"
	"strings"
)

// Fields carries every value a prompt template may interpolate. Templates
// reference them as {player}, {action}, and so on.
type Fields struct {
	Player    string // display name of the acting player
	GuildName string // guild (server) name
	Action    string // accumulated action / event / question text
	Date      string // current roleplay date
	Countries string // player/country roster
	Wars      string // active wars summary
	Context   string // free-form world context log
	Extra     string // per-guild extra prompt instructions
	History   string // recent channel history (Q&A path only)
}

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_]+)\}`)

var recognizedPlaceholders = map[string]func(Fields) string{
	"player":    func(f Fields) string { return f.Player },
	"guild":     func(f Fields) string { return f.GuildName },
	"action":    func(f Fields) string { return f.Action },
	"date":      func(f Fields) string { return f.Date },
	"countries": func(f Fields) string { return f.Countries },
	"wars":      func(f Fields) string { return f.Wars },
	"context":   func(f Fields) string { return f.Context },
	"extra":     func(f Fields) string { return f.Extra },
	"history":   func(f Fields) string { return f.History },
}

// Template is a validated prompt template. Substitution is plain text
// interpolation of recognized placeholders; nothing is ever evaluated.
type Template struct {
	name string
	raw  string
}

// Parse validates a template string, rejecting unknown placeholders so a
// typo in an env-provided template fails at startup instead of leaking
// "{palyer}" into a model prompt.
func Parse(name, raw string) (*Template, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("prompt template %q is empty", name)
	}

	for _, match := range placeholderPattern.FindAllStringSubmatch(raw, -1) {
		if _, ok := recognizedPlaceholders[match[1]]; !ok {
			return nil, fmt.Errorf("prompt template %q references unknown placeholder {%s}", name, match[1])
		}
	}

	return &Template{name: name, raw: raw}, nil
}

// MustParse is Parse for templates known at compile time.
func MustParse(name, raw string) *Template {
	tmpl, err := Parse(name, raw)
	if err != nil {
		panic(err)
	}
	return tmpl
}

// Name returns the template's name.
func (t *Template) Name() string {
	return t.name
}

// Render substitutes the fields into the template.
func (t *Template) Render(fields Fields) string {
	return placeholderPattern.ReplaceAllStringFunc(t.raw, func(match string) string {
		key := match[1 : len(match)-1]
		return recognizedPlaceholders[key](fields)
	})
}
