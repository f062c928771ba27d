package service

import (
	"context"
	"errors"

	"github.com/koichi-mofmof/kokoiko-sub002/model"
	"github.com/koichi-mofmof/kokoiko-sub002/repository"
)

// CreditService records one-time credit pack purchases reported by the
// payment webhook.
type CreditService interface {
	// RecordPurchase inserts a credit record for a successful payment.
	// Duplicate deliveries of the same payment intent return
	// ErrDuplicatePurchase, which callers acknowledge as success.
	RecordPurchase(ctx context.Context, userID uint, packID, paymentIntentID string) (*model.CreditRecord, error)
}

type creditService struct {
	creditRepo repository.CreditRepository
}

func NewCreditService(creditRepo repository.CreditRepository) CreditService {
	return &creditService{creditRepo: creditRepo}
}

func (s *creditService) RecordPurchase(ctx context.Context, userID uint, packID, paymentIntentID string) (*model.CreditRecord, error) {
	pack, err := model.PackDefinitionFor(packID)
	if err != nil {
		return nil, err
	}

	record := &model.CreditRecord{
		UserID:                userID,
		CreditType:            packID,
		PlacesPurchased:       pack.PlacesGranted,
		StripePaymentIntentID: paymentIntentID,
	}

	err = s.creditRepo.Create(ctx, record)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicatePurchase) {
			return nil, ErrDuplicatePurchase
		}
		return nil, err
	}

	return record, nil
}
