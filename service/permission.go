package service

import (
	"context"
	"errors"
	"time"

	"github.com/koichi-mofmof/kokoiko-sub002/model"
	"github.com/koichi-mofmof/kokoiko-sub002/repository"
	"gorm.io/gorm"
)

// AccessDecision is the outcome of resolving a (list, user) pair. Permission
// is empty when access is denied.
type AccessDecision struct {
	CanAccess  bool
	Permission model.Permission
}

// JoinResult is the outcome of a share-token redemption attempt.
type JoinResult struct {
	CanJoin       bool
	AlreadyJoined bool
	ListID        string
	Permission    model.Permission
}

// PermissionService is the single decision table gating every list operation.
type PermissionService interface {
	// Resolve determines the access level for a list. A userID of zero means
	// an anonymous caller.
	Resolve(ctx context.Context, listID string, userID uint) (AccessDecision, error)

	// CanJoinViaToken validates a share token for a user without side effects.
	CanJoinViaToken(ctx context.Context, token string, userID uint) (JoinResult, error)

	// JoinViaToken validates and atomically redeems a share token, creating
	// the grant and consuming one use.
	JoinViaToken(ctx context.Context, token string, userID uint) (JoinResult, error)
}

type permissionService struct {
	listRepo         repository.ListRepository
	shareRepo        repository.ShareRepository
	subscriptionRepo repository.SubscriptionRepository
	now              func() time.Time
}

func NewPermissionService(
	listRepo repository.ListRepository,
	shareRepo repository.ShareRepository,
	subscriptionRepo repository.SubscriptionRepository,
) PermissionService {
	return &permissionService{
		listRepo:         listRepo,
		shareRepo:        shareRepo,
		subscriptionRepo: subscriptionRepo,
		now:              time.Now,
	}
}

// Resolve evaluates the access decision table in strict order. Grants are
// checked before the list itself so grant-based access never depends on the
// list's visibility.
func (s *permissionService) Resolve(ctx context.Context, listID string, userID uint) (AccessDecision, error) {
	if userID != 0 {
		grant, err := s.shareRepo.FindGrant(ctx, listID, userID)
		if err != nil {
			return AccessDecision{}, err
		}
		if grant != nil {
			return AccessDecision{CanAccess: true, Permission: grant.Permission}, nil
		}
	}

	list, err := s.listRepo.FindByID(ctx, listID)
	if err != nil {
		return AccessDecision{}, err
	}
	if list == nil {
		return AccessDecision{}, nil
	}

	if list.IsPublic {
		if userID == list.CreatedBy {
			return AccessDecision{CanAccess: true, Permission: model.PermissionManage}, nil
		}
		return AccessDecision{CanAccess: true, Permission: model.PermissionView}, nil
	}

	if userID == 0 {
		return AccessDecision{}, nil
	}

	if userID == list.CreatedBy {
		return AccessDecision{CanAccess: true, Permission: model.PermissionManage}, nil
	}

	return AccessDecision{}, nil
}

// CanJoinViaToken checks the token in a fixed order: existence, active flag,
// expiry, then usage budget. An already-joined user gets a non-joinable result
// carrying the existing permission instead of an error.
func (s *permissionService) CanJoinViaToken(ctx context.Context, token string, userID uint) (JoinResult, error) {
	shareToken, err := s.shareRepo.FindToken(ctx, token)
	if err != nil {
		return JoinResult{}, err
	}
	if shareToken == nil {
		return JoinResult{}, ErrInvalidToken
	}

	if !shareToken.IsActive {
		return JoinResult{}, ErrTokenInactive
	}

	if shareToken.ExpiresAt != nil && !shareToken.ExpiresAt.After(s.now()) {
		return JoinResult{}, ErrTokenExpired
	}

	if shareToken.MaxUses > 0 && shareToken.CurrentUses >= shareToken.MaxUses {
		return JoinResult{}, ErrTokenUsageLimit
	}

	existing, err := s.shareRepo.FindGrant(ctx, shareToken.ListID, userID)
	if err != nil {
		return JoinResult{}, err
	}
	if existing != nil {
		return JoinResult{
			AlreadyJoined: true,
			ListID:        shareToken.ListID,
			Permission:    existing.Permission,
		}, nil
	}

	return JoinResult{
		CanJoin:    true,
		ListID:     shareToken.ListID,
		Permission: shareToken.DefaultPermission,
	}, nil
}

// JoinViaToken redeems the token. Free-plan users may hold at most
// MaxSharedListsFree grants; premium users have no limit.
func (s *permissionService) JoinViaToken(ctx context.Context, token string, userID uint) (JoinResult, error) {
	result, err := s.CanJoinViaToken(ctx, token, userID)
	if err != nil {
		return JoinResult{}, err
	}
	if result.AlreadyJoined {
		return result, nil
	}

	subscription, err := s.subscriptionRepo.FindByUserID(ctx, userID)
	if err != nil {
		return JoinResult{}, err
	}
	if subscription.Plan() == model.PlanFree {
		grants, err := s.shareRepo.CountGrantsByUser(ctx, userID)
		if err != nil {
			return JoinResult{}, err
		}
		if grants >= model.MaxSharedListsFree {
			return JoinResult{}, ErrSharedListLimit
		}
	}

	shareToken, err := s.shareRepo.FindToken(ctx, token)
	if err != nil {
		return JoinResult{}, err
	}

	grant := &model.SharedListGrant{
		ListID:           result.ListID,
		SharedWithUserID: userID,
		Permission:       result.Permission,
	}

	err = s.shareRepo.RedeemToken(ctx, shareToken, grant)
	if err != nil {
		// A concurrent redemption consumed the last use between the check and
		// the conditional update.
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return JoinResult{}, ErrTokenUsageLimit
		}
		// A concurrent join by the same user created the grant first; report
		// the already-joined state rather than failing.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return JoinResult{
				AlreadyJoined: true,
				ListID:        result.ListID,
				Permission:    result.Permission,
			}, nil
		}
		return JoinResult{}, err
	}

	result.CanJoin = true
	return result, nil
}
