package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"parking-reservation-backend/internal/model"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("record not found")

// AccountStore is the durable credential mapping used by the token issuer and
// verifier.
type AccountStore interface {
	ByUsername(ctx context.Context, username string) (*model.Account, error)
	ByID(ctx context.Context, id int64) (*model.Account, error)
	List(ctx context.Context) ([]model.Account, error)
	Create(ctx context.Context, a *model.Account) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	UpdateRole(ctx context.Context, id int64, role model.Role) error
}

type gormAccounts struct {
	db *gorm.DB
}

// NewAccountStore creates a GORM-backed account store.
func NewAccountStore(db *gorm.DB) AccountStore {
	return &gormAccounts{db: db}
}

func (s *gormAccounts) ByUsername(ctx context.Context, username string) (*model.Account, error) {
	var a model.Account
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("account lookup by username: %w", err)
	}
	return &a, nil
}

func (s *gormAccounts) ByID(ctx context.Context, id int64) (*model.Account, error) {
	var a model.Account
	err := s.db.WithContext(ctx).First(&a, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("account lookup by id: %w", err)
	}
	return &a, nil
}

func (s *gormAccounts) List(ctx context.Context) ([]model.Account, error) {
	var accounts []model.Account
	if err := s.db.WithContext(ctx).Order("id").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("account list: %w", err)
	}
	return accounts, nil
}

func (s *gormAccounts) Create(ctx context.Context, a *model.Account) error {
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("account create: %w", err)
	}
	return nil
}

func (s *gormAccounts) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	res := s.db.WithContext(ctx).Model(&model.Account{}).Where("id = ?", id).
		Update("password_hash", hash)
	if res.Error != nil {
		return fmt.Errorf("account password update: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormAccounts) UpdateRole(ctx context.Context, id int64, role model.Role) error {
	res := s.db.WithContext(ctx).Model(&model.Account{}).Where("id = ?", id).
		Update("role", role)
	if res.Error != nil {
		return fmt.Errorf("account role update: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
