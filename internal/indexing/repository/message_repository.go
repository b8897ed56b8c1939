package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mailscope-backend/internal/indexing/domain"
)

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Upsert writes the message keyed by provider message id. Re-ingesting the
// same provider id updates the existing row in place; the stored row (with
// its stable id) is returned either way.
func (r *messageRepository) Upsert(ctx context.Context, msg *domain.EmailMessage) (*domain.EmailMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "provider_message_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"thread_id", "from_address", "to_address", "subject",
				"date", "snippet", "cleaned_text", "content_hash", "updated_at",
			}),
		}).
		Omit("Tags").
		Create(msg).Error
	if err != nil {
		return nil, err
	}

	// The conflict path keeps the original id; read the row back
	var stored domain.EmailMessage
	err = r.db.WithContext(ctx).
		Where("provider_message_id = ?", msg.ProviderMessageID).
		First(&stored).Error
	if err != nil {
		return nil, err
	}
	return &stored, nil
}
