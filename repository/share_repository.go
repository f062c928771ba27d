package repository

import (
	"context"
	"errors"

	"github.com/koichi-mofmof/kokoiko-sub002/model"
	"gorm.io/gorm"
)

type ShareRepository interface {
	FindGrant(ctx context.Context, listID string, userID uint) (*model.SharedListGrant, error)
	CountGrantsByUser(ctx context.Context, userID uint) (int64, error)
	FindToken(ctx context.Context, token string) (*model.ShareToken, error)
	CreateToken(ctx context.Context, token *model.ShareToken) error
	DeactivateToken(ctx context.Context, token string) error

	// RedeemToken creates the grant and increments the token's use counter in
	// one transaction. The conditional UPDATE re-checks the usage budget so two
	// concurrent redemptions cannot overshoot max_uses.
	RedeemToken(ctx context.Context, token *model.ShareToken, grant *model.SharedListGrant) error
}

type shareRepository struct {
	db *gorm.DB
}

func NewShareRepository(db *gorm.DB) ShareRepository {
	return &shareRepository{db: db}
}

func (r *shareRepository) FindGrant(ctx context.Context, listID string, userID uint) (*model.SharedListGrant, error) {
	var grant model.SharedListGrant
	err := r.db.WithContext(ctx).
		Where("list_id = ? AND shared_with_user_id = ?", listID, userID).
		First(&grant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &grant, nil
}

func (r *shareRepository) CountGrantsByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.SharedListGrant{}).
		Where("shared_with_user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *shareRepository) FindToken(ctx context.Context, token string) (*model.ShareToken, error) {
	var shareToken model.ShareToken
	err := r.db.WithContext(ctx).
		Where("token = ?", token).
		First(&shareToken).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &shareToken, nil
}

func (r *shareRepository) CreateToken(ctx context.Context, token *model.ShareToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *shareRepository) DeactivateToken(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).
		Model(&model.ShareToken{}).
		Where("token = ?", token).
		Update("is_active", false).Error
}

func (r *shareRepository) RedeemToken(ctx context.Context, token *model.ShareToken, grant *model.SharedListGrant) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(grant).Error; err != nil {
			return err
		}

		query := tx.Model(&model.ShareToken{}).
			Where("token = ?", token.Token)
		if token.MaxUses > 0 {
			query = query.Where("current_uses < ?", token.MaxUses)
		}

		result := query.Update("current_uses", gorm.Expr("current_uses + 1"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound // Usage budget raced out; roll back the grant
		}
		return nil
	})
}
