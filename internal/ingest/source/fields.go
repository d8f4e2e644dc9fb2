package source

import (
	"strings"

	"sales_leads_backend/platform/logger"
	"sales_leads_backend/platform/phone"
	"sales_leads_backend/platform/sanitize"
	"sales_leads_backend/platform/validator"
)

// fieldNormalizer applies the per-field validators shared by all adapters.
// Invalid values are logged and replaced by "" so the lead is still produced.
type fieldNormalizer struct {
	source string
	val    *validator.Validator
	log    *logger.Logger
}

func (n fieldNormalizer) phone(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	normalized, err := phone.Normalize(raw)
	if err != nil {
		n.log.FieldDropped(n.source, "mobile", raw, err.Error())
		return ""
	}
	return normalized
}

func (n fieldNormalizer) email(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}
	if !n.val.IsEmail(trimmed) {
		n.log.FieldDropped(n.source, "email", raw, "invalid email address")
		return ""
	}
	return trimmed
}

func text(raw string) string {
	return sanitize.Text(raw)
}

// transliterations corrects mixed-script values known to arrive from the
// staged website forms.
var transliterations = map[string]string{
	"मुंबई":    "Mumbai",
	"प्रल्हाद": "Pralhad",
	"सीताराम":  "Sitaram",
}

func transliterate(value string) string {
	if fixed, ok := transliterations[strings.TrimSpace(value)]; ok {
		return fixed
	}
	return value
}

// requirementLines collects "Label: value" answers that have no category column.
// Values are kept verbatim apart from surrounding whitespace; consumers escape on output.
type requirementLines []string

const notMentioned = "Not mentioned"

func (r *requirementLines) add(label, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		value = notMentioned
	}
	*r = append(*r, label+": "+value)
}

func (r *requirementLines) addRaw(value string) {
	if value = strings.TrimSpace(value); value != "" {
		*r = append(*r, value)
	}
}

func (r requirementLines) String() string {
	return strings.Join(r, ", ")
}
