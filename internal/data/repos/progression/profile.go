package progression

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/Joshykins/stupid-neko-sub001/internal/domain"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

type TargetLanguageProfileRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.TargetLanguageProfile, error)
	GetByUserAndLanguage(ctx context.Context, tx *gorm.DB, userID uuid.UUID, languageCode string) (*types.TargetLanguageProfile, error)
	GetOrCreate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, languageCode string) (*types.TargetLanguageProfile, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.TargetLanguageProfile, error)
	AddDuration(ctx context.Context, tx *gorm.DB, id uuid.UUID, deltaMs int64) error
}

type targetLanguageProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTargetLanguageProfileRepo(db *gorm.DB, baseLog *logger.Logger) TargetLanguageProfileRepo {
	return &targetLanguageProfileRepo{db: db, log: baseLog.With("repo", "TargetLanguageProfileRepo")}
}

func normalizeLanguage(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func (r *targetLanguageProfileRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.TargetLanguageProfile, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	return firstOrNil[types.TargetLanguageProfile](t.WithContext(ctx).Where("id = ?", id))
}

func (r *targetLanguageProfileRepo) GetByUserAndLanguage(ctx context.Context, tx *gorm.DB, userID uuid.UUID, languageCode string) (*types.TargetLanguageProfile, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	return firstOrNil[types.TargetLanguageProfile](t.WithContext(ctx).
		Where("user_id = ? AND language_code = ?", userID, normalizeLanguage(languageCode)))
}

// GetOrCreate inserts the (user, language) profile if missing and returns the stored row.
func (r *targetLanguageProfileRepo) GetOrCreate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, languageCode string) (*types.TargetLanguageProfile, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	lang := normalizeLanguage(languageCode)
	now := time.Now().UTC()
	row := &types.TargetLanguageProfile{
		ID:           uuid.New(),
		UserID:       userID,
		LanguageCode: lang,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := t.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "language_code"}},
			DoNothing: true,
		}).
		Create(row).Error; err != nil {
		return nil, err
	}
	return r.GetByUserAndLanguage(ctx, t, userID, lang)
}

func (r *targetLanguageProfileRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.TargetLanguageProfile, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.TargetLanguageProfile
	if err := t.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("language_code ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *targetLanguageProfileRepo) AddDuration(ctx context.Context, tx *gorm.DB, id uuid.UUID, deltaMs int64) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if deltaMs == 0 {
		return nil
	}
	return t.WithContext(ctx).Model(&types.TargetLanguageProfile{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"total_duration_learning_ms": gorm.Expr("CASE WHEN total_duration_learning_ms + ? < 0 THEN 0 ELSE total_duration_learning_ms + ? END", deltaMs, deltaMs),
			"updated_at":                 time.Now().UTC(),
		}).Error
}
