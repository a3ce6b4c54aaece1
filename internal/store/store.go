// Package store wraps the user database behind a small capability interface
// so handlers never talk to gorm for credential operations directly.
package store

import (
	"context"
	"errors"

	"github.com/Skotchmaster/workout_journal/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailExists        = errors.New("email already exists")
	ErrNotFound           = errors.New("not found")
)

type CredentialStore interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error)
	VerifyCredentials(ctx context.Context, email, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateName(ctx context.Context, id uint, name string) error
	UpdateEmail(ctx context.Context, id uint, email string) error
	UpdatePassword(ctx context.Context, id uint, passwordHash string) error
}
