package progression

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/Joshykins/stupid-neko-sub001/internal/domain"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

type UserRepo interface {
	Create(ctx context.Context, tx *gorm.DB, u *types.User) (*types.User, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.User, error)
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.User, error)
	SetCurrentProfile(ctx context.Context, tx *gorm.DB, userID, profileID uuid.UUID) error
	UpdateStreak(ctx context.Context, tx *gorm.DB, userID uuid.UUID, current, longest int, creditedAt time.Time) error
	AddTotalExperience(ctx context.Context, tx *gorm.DB, userID uuid.UUID, delta int64) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (r *userRepo) Create(ctx context.Context, tx *gorm.DB, u *types.User) (*types.User, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if err := t.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// GetByID returns nil, nil when the user does not exist.
func (r *userRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.User, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	return firstOrNil[types.User](t.WithContext(ctx).Where("id = ?", id))
}

func (r *userRepo) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.User, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	return firstOrNil[types.User](t.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id))
}

func (r *userRepo) SetCurrentProfile(ctx context.Context, tx *gorm.DB, userID, profileID uuid.UUID) error {
	t := tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(ctx).Model(&types.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"current_target_language_profile_id": profileID,
			"updated_at":                         time.Now().UTC(),
		}).Error
}

func (r *userRepo) UpdateStreak(ctx context.Context, tx *gorm.DB, userID uuid.UUID, current, longest int, creditedAt time.Time) error {
	t := tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(ctx).Model(&types.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"current_streak":        current,
			"longest_streak":        longest,
			"last_streak_credit_at": creditedAt.UTC(),
			"updated_at":            time.Now().UTC(),
		}).Error
}

func (r *userRepo) AddTotalExperience(ctx context.Context, tx *gorm.DB, userID uuid.UUID, delta int64) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if delta == 0 {
		return nil
	}
	return t.WithContext(ctx).Model(&types.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"total_experience": gorm.Expr("total_experience + ?", delta),
			"updated_at":       time.Now().UTC(),
		}).Error
}
