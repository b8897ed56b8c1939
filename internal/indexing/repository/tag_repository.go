package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"mailscope-backend/internal/indexing/domain"
)

// SeedTagNames are created at boot so the UI always has its base categories.
var SeedTagNames = []string{"Primary", "Updates", "Promotions"}

type tagRepository struct {
	db *gorm.DB
}

func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

// EnsureTag looks the tag up by name and creates it on first use. Lookups go
// to the store every time; a cross-process in-memory cache would go stale
// when multiple workers run.
func (r *tagRepository) EnsureTag(ctx context.Context, name string) (*domain.EmailTag, error) {
	var tag domain.EmailTag
	err := r.db.WithContext(ctx).
		Where(domain.EmailTag{Name: name}).
		Attrs(domain.EmailTag{ID: uuid.New().String()}).
		FirstOrCreate(&tag).Error
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// ReplaceMessageTags deletes the message's current tag rows and inserts the
// new set as one logical unit.
func (r *tagRepository) ReplaceMessageTags(ctx context.Context, emailMessageID string, tagIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email_message_id = ?", emailMessageID).
			Delete(&domain.EmailMessageTag{}).Error
		if err != nil {
			return err
		}
		if len(tagIDs) == 0 {
			return nil
		}

		rows := make([]domain.EmailMessageTag, 0, len(tagIDs))
		for _, tagID := range tagIDs {
			rows = append(rows, domain.EmailMessageTag{
				EmailMessageID: emailMessageID,
				EmailTagID:     tagID,
			})
		}
		return tx.Create(&rows).Error
	})
}

func (r *tagRepository) SeedDefaults(ctx context.Context) error {
	for _, name := range SeedTagNames {
		if _, err := r.EnsureTag(ctx, name); err != nil {
			return err
		}
	}
	return nil
}
