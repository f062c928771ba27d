package repository

import (
	"context"
	"errors"

	"github.com/koichi-mofmof/kokoiko-sub002/model"
	"gorm.io/gorm"
)

type ListRepository interface {
	FindByID(ctx context.Context, id string) (*model.List, error)
	FindByOwner(ctx context.Context, userID uint) ([]model.List, error)
	FindPublic(ctx context.Context, limit int) ([]model.List, error)
	Create(ctx context.Context, list *model.List) error
	Update(ctx context.Context, list *model.List) error
	Delete(ctx context.Context, id string) error
}

type listRepository struct {
	db *gorm.DB
}

func NewListRepository(db *gorm.DB) ListRepository {
	return &listRepository{db: db}
}

func (r *listRepository) FindByID(ctx context.Context, id string) (*model.List, error) {
	var list model.List
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&list).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &list, nil
}

func (r *listRepository) FindByOwner(ctx context.Context, userID uint) ([]model.List, error) {
	var lists []model.List
	err := r.db.WithContext(ctx).
		Where("created_by = ?", userID).
		Order("updated_at DESC").
		Find(&lists).Error
	return lists, err
}

// FindPublic returns the newest public lists for the discovery feed.
func (r *listRepository) FindPublic(ctx context.Context, limit int) ([]model.List, error) {
	var lists []model.List
	err := r.db.WithContext(ctx).
		Where("is_public = ?", true).
		Order("updated_at DESC").
		Limit(limit).
		Find(&lists).Error
	return lists, err
}

func (r *listRepository) Create(ctx context.Context, list *model.List) error {
	return r.db.WithContext(ctx).Create(list).Error
}

func (r *listRepository) Update(ctx context.Context, list *model.List) error {
	return r.db.WithContext(ctx).Save(list).Error
}

func (r *listRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.List{}).Error
}
