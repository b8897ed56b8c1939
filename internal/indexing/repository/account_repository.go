package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"mailscope-backend/internal/indexing/domain"
)

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) FindByUserID(ctx context.Context, userID string) (*domain.ConnectedAccount, error) {
	var account domain.ConnectedAccount
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}
