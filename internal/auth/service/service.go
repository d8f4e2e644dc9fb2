package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"sales_leads_backend/internal/auth/password"
	"sales_leads_backend/internal/users/repository"
	"sales_leads_backend/platform/apperr"
	"sales_leads_backend/platform/clock"
	"sales_leads_backend/platform/config"
	"sales_leads_backend/platform/httpkit"
	"sales_leads_backend/platform/logger"

	"github.com/golang-jwt/jwt/v5"
)

const msgInvalidCredentials = "invalid credentials"

// UserLookup finds an active user by username or email.
type UserLookup interface {
	GetByLogin(ctx context.Context, login string) (repository.User, error)
}

type Service struct {
	users UserLookup
	cfg   config.AuthServiceConfig
	clock clock.Clock
	log   *logger.Logger
}

func New(users UserLookup, cfg config.AuthServiceConfig, clk clock.Clock, log *logger.Logger) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{users: users, cfg: cfg, clock: clk, log: log}
}

// Session is the result of a successful login.
type Session struct {
	AccessToken string
	ExpiresAt   time.Time
	UserID      int64
	RoleID      int64
}

// Login checks the password of an active user found by username or email.
// Unknown logins, inactive users and wrong passwords fail alike.
func (s *Service) Login(ctx context.Context, login, plainPassword string) (Session, error) {
	login = strings.TrimSpace(login)
	user, err := s.users.GetByLogin(ctx, login)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.AuthEvent("login", login, false, "unknown login")
		return Session{}, apperr.Unauthorized(msgInvalidCredentials)
	}
	if err != nil {
		return Session{}, apperr.Transient("auth.login", err)
	}

	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		s.log.AuthEvent("login", login, false, "password mismatch")
		return Session{}, apperr.Unauthorized(msgInvalidCredentials)
	}

	session, err := s.issue(user)
	if err != nil {
		return Session{}, apperr.Wrap(apperr.KindInternal, "could not sign token", err)
	}
	s.log.AuthEvent("login", login, true, "")
	return session, nil
}

func (s *Service) issue(user repository.User) (Session, error) {
	now := s.clock.Now()
	expiresAt := now.Add(s.cfg.GetAccessTokenTTL())
	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(user.ID, 10),
		"role": user.RoleID,
		"type": httpkit.TokenTypeAccess,
		"exp":  expiresAt.Unix(),
		"iat":  now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.GetJWTAccessSecret()))
	if err != nil {
		return Session{}, err
	}
	return Session{AccessToken: signed, ExpiresAt: expiresAt, UserID: user.ID, RoleID: user.RoleID}, nil
}
