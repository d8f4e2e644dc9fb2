package repository

import "context"

// UserRepository is the store behind the users service and the login flow.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (User, error)
	GetByLogin(ctx context.Context, login string) (User, error)
	List(ctx context.Context) ([]User, error)
	Create(ctx context.Context, f UserFields) (User, error)
	Update(ctx context.Context, id int64, f UserFields) (User, error)
	Deactivate(ctx context.Context, id int64) error
	SetPassword(ctx context.Context, id int64, passwordHash string) error
	Permissions(ctx context.Context, userID int64) ([]Permission, error)
}

var _ UserRepository = (*Repository)(nil)
