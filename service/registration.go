package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/koichi-mofmof/kokoiko-sub002/model"
	"github.com/koichi-mofmof/kokoiko-sub002/repository"
)

// RegistrationService is the single entry point for adding a place to a list:
// permission check, duplicate check, quota check, persist.
type RegistrationService interface {
	RegisterPlace(ctx context.Context, userID uint, listID string, req model.RegisterPlaceRequest) (*model.ListPlace, error)
}

type registrationService struct {
	permissionSvc   PermissionService
	availabilitySvc AvailabilityService
	placeRepo       repository.PlaceRepository
	listRepo        repository.ListRepository
}

func NewRegistrationService(
	permissionSvc PermissionService,
	availabilitySvc AvailabilityService,
	placeRepo repository.PlaceRepository,
	listRepo repository.ListRepository,
) RegistrationService {
	return &registrationService{
		permissionSvc:   permissionSvc,
		availabilitySvc: availabilitySvc,
		placeRepo:       placeRepo,
		listRepo:        listRepo,
	}
}

func (s *registrationService) RegisterPlace(ctx context.Context, userID uint, listID string, req model.RegisterPlaceRequest) (*model.ListPlace, error) {
	if userID == 0 {
		return nil, ErrUnauthorized
	}

	if err := validateRegistration(listID, req); err != nil {
		return nil, err
	}

	decision, err := s.permissionSvc.Resolve(ctx, listID, userID)
	if err != nil {
		return nil, err
	}
	if !decision.CanAccess {
		list, err := s.listRepo.FindByID(ctx, listID)
		if err != nil {
			return nil, err
		}
		if list == nil {
			return nil, ErrListNotFound
		}
		return nil, ErrForbidden
	}
	if !decision.Permission.Satisfies(model.PermissionEdit) {
		return nil, ErrForbidden
	}

	existing, err := s.placeRepo.FindByListAndPlace(ctx, listID, req.PlaceID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicatePlace
	}

	snapshot, err := s.availabilitySvc.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !snapshot.HasRemaining() {
		return nil, &QuotaExceededError{Snapshot: snapshot}
	}

	place := &model.ListPlace{
		ID:           uuid.NewString(),
		ListID:       listID,
		PlaceID:      req.PlaceID,
		UserID:       userID,
		Name:         req.Name,
		Address:      req.Address,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		DisplayOrder: 0, // FindByList falls back to created_at; reorder is a separate call
	}

	limit := model.Unlimited
	if !snapshot.IsUnlimited {
		limit = snapshot.TotalLimit
	}

	err = s.placeRepo.RegisterWithinLimit(ctx, place, limit)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicatePlace) {
			return nil, ErrDuplicatePlace
		}
		if errors.Is(err, repository.ErrPlaceLimitReached) {
			// A concurrent registration won the race; report fresh totals.
			fresh, snapErr := s.availabilitySvc.Snapshot(ctx, userID)
			if snapErr != nil {
				fresh = snapshot
			}
			return nil, &QuotaExceededError{Snapshot: fresh}
		}
		return nil, err
	}

	return place, nil
}

func validateRegistration(listID string, req model.RegisterPlaceRequest) error {
	fields := make(map[string]string)

	if _, err := uuid.Parse(listID); err != nil {
		fields["list_id"] = "must be a valid list identifier"
	}
	if strings.TrimSpace(req.PlaceID) == "" {
		fields["place_id"] = "is required"
	}
	if strings.TrimSpace(req.Name) == "" {
		fields["name"] = "is required"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
