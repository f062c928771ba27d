package service

import (
	"context"

	"github.com/koichi-mofmof/kokoiko-sub002/model"
	"github.com/koichi-mofmof/kokoiko-sub002/repository"
)

// AvailabilityService computes how many more places a user may register.
type AvailabilityService interface {
	PlanFor(ctx context.Context, userID uint) (model.PlanType, error)
	ComputeAvailability(ctx context.Context, userID uint, plan model.PlanType, usedPlaces int) (model.AvailabilitySnapshot, error)
	CountUsedPlaces(ctx context.Context, userID uint) (int, error)
	Snapshot(ctx context.Context, userID uint) (model.AvailabilitySnapshot, error)
}

type availabilityService struct {
	subscriptionRepo repository.SubscriptionRepository
	creditRepo       repository.CreditRepository
	placeRepo        repository.PlaceRepository
}

func NewAvailabilityService(
	subscriptionRepo repository.SubscriptionRepository,
	creditRepo repository.CreditRepository,
	placeRepo repository.PlaceRepository,
) AvailabilityService {
	return &availabilityService{
		subscriptionRepo: subscriptionRepo,
		creditRepo:       creditRepo,
		placeRepo:        placeRepo,
	}
}

// PlanFor derives the plan from the user's subscription status. Users without
// a subscription row are on the free plan.
func (s *availabilityService) PlanFor(ctx context.Context, userID uint) (model.PlanType, error) {
	subscription, err := s.subscriptionRepo.FindByUserID(ctx, userID)
	if err != nil {
		return model.PlanFree, err
	}
	return subscription.Plan(), nil
}

// ComputeAvailability combines the plan, the free base quota, purchased
// credits and current usage into one snapshot. Premium is unlimited no matter
// what the ledger says; the free total is base plus every purchased credit,
// and remaining never goes below zero.
func (s *availabilityService) ComputeAvailability(ctx context.Context, userID uint, plan model.PlanType, usedPlaces int) (model.AvailabilitySnapshot, error) {
	if plan == model.PlanPremium {
		return model.AvailabilitySnapshot{
			Plan:            plan,
			TotalLimit:      model.Unlimited,
			UsedPlaces:      usedPlaces,
			RemainingPlaces: model.Unlimited,
			IsUnlimited:     true,
		}, nil
	}

	purchased, err := s.creditRepo.SumPurchasedPlaces(ctx, userID)
	if err != nil {
		return model.AvailabilitySnapshot{}, err
	}

	totalLimit := model.FreeBaseQuota + purchased
	remaining := totalLimit - usedPlaces
	if remaining < 0 {
		remaining = 0
	}

	return model.AvailabilitySnapshot{
		Plan:            plan,
		TotalLimit:      totalLimit,
		UsedPlaces:      usedPlaces,
		RemainingPlaces: remaining,
		IsUnlimited:     false,
	}, nil
}

// CountUsedPlaces counts the user's lifetime registrations across all lists.
func (s *availabilityService) CountUsedPlaces(ctx context.Context, userID uint) (int, error) {
	return s.placeRepo.CountByUser(ctx, userID)
}

// Snapshot is the one-call path used by the billing display surface and the
// registration guard.
func (s *availabilityService) Snapshot(ctx context.Context, userID uint) (model.AvailabilitySnapshot, error) {
	plan, err := s.PlanFor(ctx, userID)
	if err != nil {
		return model.AvailabilitySnapshot{}, err
	}

	used, err := s.CountUsedPlaces(ctx, userID)
	if err != nil {
		return model.AvailabilitySnapshot{}, err
	}

	return s.ComputeAvailability(ctx, userID, plan, used)
}
