package store

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/workout_journal/internal/hash"
	"github.com/Skotchmaster/workout_journal/internal/models"
)

type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error) {
	user := models.User{
		Name:         name,
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
	}
	tx := s.DB.WithContext(ctx).Where("email = ?", user.Email).FirstOrCreate(&user)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, ErrEmailExists
	}
	return &user, nil
}

func (s *GormStore) VerifyCredentials(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

func (s *GormStore) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) UpdateName(ctx context.Context, id uint, name string) error {
	return s.updateColumn(ctx, id, "name", name)
}

func (s *GormStore) UpdateEmail(ctx context.Context, id uint, email string) error {
	return s.updateColumn(ctx, id, "email", NormalizeEmail(email))
}

func (s *GormStore) UpdatePassword(ctx context.Context, id uint, passwordHash string) error {
	return s.updateColumn(ctx, id, "password_hash", passwordHash)
}

func (s *GormStore) updateColumn(ctx context.Context, id uint, column, value string) error {
	tx := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update(column, value)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
