package service

import (
	"context"
	"errors"

	"sales_leads_backend/internal/categories/repository"
	"sales_leads_backend/platform/apperr"
	"sales_leads_backend/platform/logger"
)

// Service serves category option lists, reading through an optional cache.
type Service struct {
	repo  repository.Reader
	cache Cache
	log   *logger.Logger
}

// New creates a new options service. cache may be nil.
func New(repo repository.Reader, cache Cache, log *logger.Logger) *Service {
	return &Service{repo: repo, cache: cache, log: log}
}

// List returns the options of one category table.
// Cache failures are logged and fall through to the store.
func (s *Service) List(ctx context.Context, kind repository.Kind) ([]repository.Option, error) {
	if !repository.ValidKind(kind) {
		return nil, apperr.NotFound("unknown option list")
	}

	if s.cache != nil {
		items, err := s.cache.Get(ctx, kind)
		if err == nil {
			return items, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.log.Warn("options cache read failed", "kind", kind, "error", err)
		}
	}

	items, err := s.repo.List(ctx, kind)
	if err != nil {
		return nil, apperr.Transient("categories.List", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, kind, items); err != nil {
			s.log.Warn("options cache write failed", "kind", kind, "error", err)
		}
	}
	return items, nil
}
