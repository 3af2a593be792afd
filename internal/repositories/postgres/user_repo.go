package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/educlove/educlove-backend/internal/models"
	"github.com/educlove/educlove-backend/internal/utils"
	"gorm.io/gorm"
)

type UserRepository interface {
	// UpsertFromIdentity mirrors the external identity into the users
	// table on every successful authentication. Existing users receive a
	// restricted update that never touches email_verified or
	// profile_completed; new users get the insert defaults.
	UpsertFromIdentity(ctx context.Context, id models.Identity) (*models.User, error)
	GetBySub(ctx context.Context, sub string) (*models.User, error)
	GetByID(ctx context.Context, userID string) (*models.User, error)
	GetByProfileID(ctx context.Context, profileID string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// LinkProfile attaches a profile and marks the profile completed.
	LinkProfile(ctx context.Context, userID, profileID string) error
	SetEmailVerified(ctx context.Context, userID string, verified bool) error
}

type userRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) UpsertFromIdentity(ctx context.Context, id models.Identity) (*models.User, error) {
	var out *models.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		err := tx.Where("sub = ?", id.Sub).Take(&u).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			now := time.Now().UTC()
			u = models.User{
				ID:               uuid.NewString(),
				Sub:              id.Sub,
				Email:            id.Email,
				Name:             id.Name,
				Picture:          id.Picture,
				Provider:         id.Provider,
				EmailVerified:    id.EmailVerified,
				ProfileCompleted: false,
				CreatedAt:        now,
				LastLogin:        now,
			}
			if err := tx.Create(&u).Error; err != nil {
				return err
			}

		case err != nil:
			return err

		default:
			// The update subset is the explicit contract: identity fields
			// and last_login only.
			updates := map[string]any{
				"email":      id.Email,
				"name":       id.Name,
				"picture":    id.Picture,
				"provider":   id.Provider,
				"last_login": time.Now().UTC(),
			}
			if err := tx.Model(&u).Updates(updates).Error; err != nil {
				return err
			}
		}

		out = &u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userRepo) GetBySub(ctx context.Context, sub string) (*models.User, error) {
	return r.getOne(ctx, "sub = ?", sub)
}

func (r *userRepo) GetByID(ctx context.Context, userID string) (*models.User, error) {
	return r.getOne(ctx, "id = ?", userID)
}

func (r *userRepo) GetByProfileID(ctx context.Context, profileID string) (*models.User, error) {
	return r.getOne(ctx, "profile_id = ?", profileID)
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "lower(email) = lower(?)", email)
}

func (r *userRepo) getOne(ctx context.Context, cond string, arg any) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Where(cond, arg).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) LinkProfile(ctx context.Context, userID, profileID string) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"profile_id":        profileID,
			"profile_completed": true,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *userRepo) SetEmailVerified(ctx context.Context, userID string, verified bool) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("email_verified", verified)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}
