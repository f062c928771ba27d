package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/koichi-mofmof/kokoiko-sub002/model"
	"gorm.io/gorm"
)

var (
	// ErrDuplicatePlace means the (list, place) pair is already registered.
	ErrDuplicatePlace = errors.New("place already registered in this list")

	// ErrPlaceLimitReached means the insert would push the user past the
	// limit passed to RegisterWithinLimit.
	ErrPlaceLimitReached = errors.New("place limit reached")
)

type PlaceRepository interface {
	FindByID(ctx context.Context, id string) (*model.ListPlace, error)
	FindByList(ctx context.Context, listID string) ([]model.ListPlace, error)
	FindByListAndPlace(ctx context.Context, listID, placeID string) (*model.ListPlace, error)
	CountByUser(ctx context.Context, userID uint) (int, error)
	RegisterWithinLimit(ctx context.Context, place *model.ListPlace, limit int) error
	UpdateDisplayOrder(ctx context.Context, id string, displayOrder int) error
	Delete(ctx context.Context, id string) error
}

type placeRepository struct {
	db *gorm.DB
}

func NewPlaceRepository(db *gorm.DB) PlaceRepository {
	return &placeRepository{db: db}
}

func (r *placeRepository) FindByID(ctx context.Context, id string) (*model.ListPlace, error) {
	var place model.ListPlace
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&place).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &place, nil
}

func (r *placeRepository) FindByList(ctx context.Context, listID string) ([]model.ListPlace, error) {
	var places []model.ListPlace
	err := r.db.WithContext(ctx).
		Where("list_id = ?", listID).
		Order("display_order ASC, created_at ASC").
		Find(&places).Error
	return places, err
}

func (r *placeRepository) FindByListAndPlace(ctx context.Context, listID, placeID string) (*model.ListPlace, error) {
	var place model.ListPlace
	err := r.db.WithContext(ctx).
		Where("list_id = ? AND place_id = ?", listID, placeID).
		First(&place).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &place, nil
}

// CountByUser counts every place the user ever registered, across all lists.
// Quota enforcement uses this lifetime count; there is no date filter.
func (r *placeRepository) CountByUser(ctx context.Context, userID uint) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ListPlace{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return int(count), err
}

// RegisterWithinLimit re-counts the user's registrations and inserts inside a
// serializable transaction, so two concurrent registrations cannot both pass a
// stale count. A negative limit disables the quota check (premium).
func (r *placeRepository) RegisterWithinLimit(ctx context.Context, place *model.ListPlace, limit int) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if limit >= 0 {
			var count int64
			err := tx.Model(&model.ListPlace{}).
				Where("user_id = ?", place.UserID).
				Count(&count).Error
			if err != nil {
				return err
			}
			if count >= int64(limit) {
				return ErrPlaceLimitReached
			}
		}

		return tx.Create(place).Error
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})

	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicatePlace
		}
		return err
	}
	return nil
}

func (r *placeRepository) UpdateDisplayOrder(ctx context.Context, id string, displayOrder int) error {
	return r.db.WithContext(ctx).
		Model(&model.ListPlace{}).
		Where("id = ?", id).
		Update("display_order", displayOrder).Error
}

func (r *placeRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.ListPlace{}).Error
}
