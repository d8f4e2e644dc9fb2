package source

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Canonical columns a social form answer can fill.
const (
	targetName          = "name"
	targetMobile        = "mobile"
	targetEmail         = "email"
	targetCity          = "city"
	targetService       = "service"
	targetIndustry      = "industry"
	targetContact       = "contact"
	targetPreferredDate = "preferred_date"
	targetPreferredTime = "preferred_time"
)

var knownTargets = map[string]bool{
	targetName: true, targetMobile: true, targetEmail: true, targetCity: true,
	targetService: true, targetIndustry: true, targetContact: true,
	targetPreferredDate: true, targetPreferredTime: true,
}

//go:embed forms.yaml
var defaultForms []byte

type fieldRule struct {
	Target string `yaml:"target"`
	Label  string `yaml:"label"`
}

// Dialect maps a form's question keys to canonical fields.
type Dialect struct {
	Name   string
	fields map[string]fieldRule
}

// FormRegistry maps form ids to dialects.
type FormRegistry struct {
	fallback string
	dialects map[string]Dialect
	forms    map[string]string
}

type formsDoc struct {
	DefaultDialect string                          `yaml:"default_dialect"`
	Dialects       map[string]map[string]fieldRule `yaml:"dialects"`
	Forms          map[string]string               `yaml:"forms"`
}

// DefaultForms returns the registry built from the embedded forms.yaml.
func DefaultForms() (*FormRegistry, error) {
	return LoadForms(defaultForms)
}

// LoadForms parses a form registry and checks every reference.
func LoadForms(data []byte) (*FormRegistry, error) {
	var doc formsDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse forms: %w", err)
	}

	reg := &FormRegistry{
		fallback: doc.DefaultDialect,
		dialects: make(map[string]Dialect, len(doc.Dialects)),
		forms:    doc.Forms,
	}
	for name, fields := range doc.Dialects {
		for key, rule := range fields {
			if rule.Target == "" && rule.Label == "" {
				return nil, fmt.Errorf("forms: dialect %q field %q has neither target nor label", name, key)
			}
			if rule.Target != "" && !knownTargets[rule.Target] {
				return nil, fmt.Errorf("forms: dialect %q field %q has unknown target %q", name, key, rule.Target)
			}
		}
		reg.dialects[name] = Dialect{Name: name, fields: fields}
	}

	if _, ok := reg.dialects[reg.fallback]; !ok {
		return nil, fmt.Errorf("forms: default dialect %q is not defined", reg.fallback)
	}
	for formID, name := range reg.forms {
		if _, ok := reg.dialects[name]; !ok {
			return nil, fmt.Errorf("forms: form %s uses undefined dialect %q", formID, name)
		}
	}
	return reg, nil
}

// Lookup returns the dialect registered for formID.
func (r *FormRegistry) Lookup(formID string) (Dialect, bool) {
	name, ok := r.forms[formID]
	if !ok {
		return Dialect{}, false
	}
	return r.dialects[name], true
}

// Resolve returns the form's dialect, or the default dialect for unknown or empty ids.
func (r *FormRegistry) Resolve(formID string) Dialect {
	if d, ok := r.Lookup(formID); ok {
		return d
	}
	return r.dialects[r.fallback]
}
