// Package source turns raw payloads from each external lead source into a
// canonical domain.Draft. Every adapter owns its own key dialect; field-level
// problems drop the field, only missing structure fails the payload.
package source

import (
	"context"
	"errors"
	"fmt"

	"sales_leads_backend/internal/categories"
	"sales_leads_backend/internal/leads/domain"
	"sales_leads_backend/platform/apperr"
	"sales_leads_backend/platform/logger"
	"sales_leads_backend/platform/validator"
)

// Adapter parses one source's payload into a draft.
type Adapter interface {
	// Name identifies the source in logs.
	Name() string
	// Parse fails with a validation error only when required structure is absent.
	Parse(ctx context.Context, raw []byte) (domain.Draft, error)
}

// ErrMissingStructure marks payloads lacking their required keys.
var ErrMissingStructure = errors.New("payload is missing required keys")

func structureError(source, detail string) error {
	return apperr.Wrap(apperr.KindValidation, fmt.Sprintf("invalid %s payload: %s", source, detail), ErrMissingStructure)
}

// Deps are the collaborators every adapter needs.
type Deps struct {
	Registry  *categories.Registry
	Validator *validator.Validator
	Log       *logger.Logger
}

func (d Deps) fields(source string) fieldNormalizer {
	return fieldNormalizer{source: source, val: d.Validator, log: d.Log}
}
