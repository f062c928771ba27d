package repository

import (
	"context"
	"errors"

	"github.com/koichi-mofmof/kokoiko-sub002/model"
	"gorm.io/gorm"
)

type SubscriptionRepository interface {
	FindByUserID(ctx context.Context, userID uint) (*model.Subscription, error)
	FindByStripeCustomerID(ctx context.Context, customerID string) (*model.Subscription, error)
	Upsert(ctx context.Context, subscription *model.Subscription) error
}

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) FindByUserID(ctx context.Context, userID uint) (*model.Subscription, error) {
	var subscription model.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&subscription).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // No subscription means free plan, not an error
		}
		return nil, err
	}
	return &subscription, nil
}

func (r *subscriptionRepository) FindByStripeCustomerID(ctx context.Context, customerID string) (*model.Subscription, error) {
	var subscription model.Subscription
	err := r.db.WithContext(ctx).
		Where("stripe_customer_id = ?", customerID).
		First(&subscription).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subscription, nil
}

// Upsert saves the subscription, replacing an existing row for the same user.
func (r *subscriptionRepository) Upsert(ctx context.Context, subscription *model.Subscription) error {
	existing, err := r.FindByUserID(ctx, subscription.UserID)
	if err != nil {
		return err
	}

	if existing != nil {
		subscription.ID = existing.ID
		subscription.CreatedAt = existing.CreatedAt
		return r.db.WithContext(ctx).Save(subscription).Error
	}

	return r.db.WithContext(ctx).Create(subscription).Error
}
