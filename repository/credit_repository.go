package repository

import (
	"context"
	"errors"

	"github.com/koichi-mofmof/kokoiko-sub002/model"
	"gorm.io/gorm"
)

// ErrDuplicatePurchase means a credit record with the same Stripe payment
// intent already exists. Callers treat it as an idempotent success.
var ErrDuplicatePurchase = errors.New("purchase already recorded")

type CreditRepository interface {
	SumPurchasedPlaces(ctx context.Context, userID uint) (int, error)
	FindByUserID(ctx context.Context, userID uint) ([]model.CreditRecord, error)
	Create(ctx context.Context, record *model.CreditRecord) error
}

type creditRepository struct {
	db *gorm.DB
}

func NewCreditRepository(db *gorm.DB) CreditRepository {
	return &creditRepository{db: db}
}

// SumPurchasedPlaces totals all credits the user ever bought. The read trusts
// the write path: dedup is enforced by the unique index at insert time.
func (r *creditRepository) SumPurchasedPlaces(ctx context.Context, userID uint) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&model.CreditRecord{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(places_purchased), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return int(total), nil
}

func (r *creditRepository) FindByUserID(ctx context.Context, userID uint) ([]model.CreditRecord, error) {
	var records []model.CreditRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

// Create inserts a credit record. The unique index on stripe_payment_intent_id
// is the sole concurrency-correctness mechanism for webhook retries.
func (r *creditRepository) Create(ctx context.Context, record *model.CreditRecord) error {
	err := r.db.WithContext(ctx).Create(record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicatePurchase
		}
		return err
	}
	return nil
}
