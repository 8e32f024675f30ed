package progression

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/Joshykins/stupid-neko-sub001/internal/domain"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

type ContentLabelRepo interface {
	Get(ctx context.Context, tx *gorm.DB, contentKey string) (*types.ContentLabel, error)
	Upsert(ctx context.Context, tx *gorm.DB, label *types.ContentLabel) error
}

type contentLabelRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentLabelRepo(db *gorm.DB, baseLog *logger.Logger) ContentLabelRepo {
	return &contentLabelRepo{db: db, log: baseLog.With("repo", "ContentLabelRepo")}
}

func (r *contentLabelRepo) Get(ctx context.Context, tx *gorm.DB, contentKey string) (*types.ContentLabel, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	return firstOrNil[types.ContentLabel](t.WithContext(ctx).
		Where("content_key = ?", strings.TrimSpace(contentKey)))
}

func (r *contentLabelRepo) Upsert(ctx context.Context, tx *gorm.DB, label *types.ContentLabel) error {
	t := tx
	if t == nil {
		t = r.db
	}
	label.ContentKey = strings.TrimSpace(label.ContentKey)
	label.LanguageCode = strings.ToLower(strings.TrimSpace(label.LanguageCode))
	label.UpdatedAt = time.Now().UTC()
	return t.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "content_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"stage", "language_code", "media_type", "title", "updated_at"}),
		}).
		Create(label).Error
}
