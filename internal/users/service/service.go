// Package service holds the user administration rules.
package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"sales_leads_backend/internal/auth/password"
	"sales_leads_backend/internal/events"
	"sales_leads_backend/internal/users/repository"
	"sales_leads_backend/internal/users/transport"
	"sales_leads_backend/platform/apperr"
	"sales_leads_backend/platform/logger"
)

type Service struct {
	repo     repository.UserRepository
	eventBus events.Bus
	log      *logger.Logger
}

func New(repo repository.UserRepository, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, eventBus: eventBus, log: log}
}

func (s *Service) Create(ctx context.Context, req transport.CreateUserRequest) (transport.UserResponse, error) {
	hash, err := password.Hash(req.Password)
	if err != nil {
		return transport.UserResponse{}, apperr.Wrap(apperr.KindInternal, "could not hash password", err)
	}
	user, err := s.repo.Create(ctx, repository.UserFields{
		Username:     strings.TrimSpace(req.Username),
		Email:        normalizeEmail(req.Email),
		PasswordHash: hash,
		RoleID:       req.RoleID,
		ServiceIDs:   serviceSet(req.AssignedServiceIDs),
	})
	if err != nil {
		return transport.UserResponse{}, translate("users.create", err)
	}
	s.log.WithContext(ctx).Info("user created", "userId", user.ID, "roleId", user.RoleID)
	return toResponse(user), nil
}

// Update replaces the user's fields and its whole service set.
func (s *Service) Update(ctx context.Context, id int64, req transport.UpdateUserRequest) (transport.UserResponse, error) {
	var hash string
	if req.Password != "" {
		var err error
		if hash, err = password.Hash(req.Password); err != nil {
			return transport.UserResponse{}, apperr.Wrap(apperr.KindInternal, "could not hash password", err)
		}
	}
	user, err := s.repo.Update(ctx, id, repository.UserFields{
		Username:     strings.TrimSpace(req.Username),
		Email:        normalizeEmail(req.Email),
		PasswordHash: hash,
		RoleID:       req.RoleID,
		ServiceIDs:   serviceSet(req.AssignedServiceIDs),
	})
	if err != nil {
		return transport.UserResponse{}, translate("users.update", err)
	}
	return toResponse(user), nil
}

// Deactivate soft-deletes a user. Admins cannot deactivate themselves.
func (s *Service) Deactivate(ctx context.Context, actorID, id int64) error {
	if actorID == id {
		return apperr.Validation("cannot deactivate your own account")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return translate("users.deactivate", err)
	}
	s.eventBus.Publish(ctx, events.UserDeactivated{
		BaseEvent: events.NewBaseEvent(),
		UserID:    id,
		ByID:      actorID,
	})
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (transport.UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.UserResponse{}, translate("users.get", err)
	}
	return toResponse(user), nil
}

func (s *Service) List(ctx context.Context) ([]transport.UserResponse, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, translate("users.list", err)
	}
	out := make([]transport.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toResponse(u))
	}
	return out, nil
}

func (s *Service) Permissions(ctx context.Context, id int64) (transport.PermissionsResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.PermissionsResponse{}, translate("users.permissions", err)
	}
	perms, err := s.repo.Permissions(ctx, id)
	if err != nil {
		return transport.PermissionsResponse{}, translate("users.permissions", err)
	}
	resp := transport.PermissionsResponse{
		UserID:      user.ID,
		RoleID:      user.RoleID,
		Permissions: make([]transport.PermissionResponse, 0, len(perms)),
	}
	for _, p := range perms {
		resp.Permissions = append(resp.Permissions, transport.PermissionResponse{ID: p.ID, Name: p.Name})
	}
	return resp, nil
}

// Me returns the caller. A caller deactivated after its token was issued is unauthorized.
func (s *Service) Me(ctx context.Context, id int64) (transport.UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !user.Active) {
		return transport.UserResponse{}, apperr.Unauthorized("account is not active")
	}
	if err != nil {
		return transport.UserResponse{}, translate("users.me", err)
	}
	return toResponse(user), nil
}

func translate(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("user not found").WithOp(op)
	case errors.Is(err, repository.ErrEmailTaken):
		return apperr.Conflict("email already in use").WithOp(op)
	case errors.Is(err, repository.ErrInvalidReference):
		return apperr.Wrap(apperr.KindValidation, "referenced record does not exist", err).WithOp(op)
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Transient(op, err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// serviceSet sorts and de-duplicates ids.
func serviceSet(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func toResponse(u repository.User) transport.UserResponse {
	return transport.UserResponse{
		ID:                 u.ID,
		Username:           u.Username,
		Email:              u.Email,
		RoleID:             u.RoleID,
		Active:             u.Active,
		AssignedServiceIDs: u.ServiceIDs,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}
