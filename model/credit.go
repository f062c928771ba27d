package model

import (
	"strconv"
	"time"
)

// CreditRecord is one row per successful one-time credit pack purchase.
// Rows are insert-only; the unique index on StripePaymentIntentID makes
// duplicate webhook deliveries a no-op.
type CreditRecord struct {
	ID                    uint      `json:"id" gorm:"primaryKey"`
	UserID                uint      `json:"user_id" gorm:"not null;index"`
	CreditType            string    `json:"credit_type" gorm:"type:varchar(30);not null"`
	PlacesPurchased       int       `json:"places_purchased" gorm:"not null"`
	StripePaymentIntentID string    `json:"stripe_payment_intent_id" gorm:"not null;uniqueIndex"`
	CreatedAt             time.Time `json:"created_at"`
}

type CreditRecordResponse struct {
	ID              string `json:"id"`
	CreditType      string `json:"credit_type"`
	PlacesPurchased int    `json:"places_purchased"`
	PurchasedAt     string `json:"purchased_at"`
}

func (r *CreditRecord) ToCreditRecordResponse() CreditRecordResponse {
	return CreditRecordResponse{
		ID:              strconv.FormatUint(uint64(r.ID), 10),
		CreditType:      r.CreditType,
		PlacesPurchased: r.PlacesPurchased,
		PurchasedAt:     r.CreatedAt.Format(time.RFC3339),
	}
}
