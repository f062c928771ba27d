package service_test

import (
	"context"

	"github.com/koichi-mofmof/kokoiko-sub002/model"
	"github.com/koichi-mofmof/kokoiko-sub002/repository"
	"gorm.io/gorm"
)

// In-memory repository fakes backing the service tests.

type fakeSubscriptionRepo struct {
	subscriptions map[uint]*model.Subscription
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{subscriptions: make(map[uint]*model.Subscription)}
}

func (f *fakeSubscriptionRepo) FindByUserID(_ context.Context, userID uint) (*model.Subscription, error) {
	return f.subscriptions[userID], nil
}

func (f *fakeSubscriptionRepo) FindByStripeCustomerID(_ context.Context, customerID string) (*model.Subscription, error) {
	for _, s := range f.subscriptions {
		if s.StripeCustomerID == customerID {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeSubscriptionRepo) Upsert(_ context.Context, subscription *model.Subscription) error {
	f.subscriptions[subscription.UserID] = subscription
	return nil
}

type fakeCreditRepo struct {
	records []model.CreditRecord
	nextID  uint
}

func newFakeCreditRepo() *fakeCreditRepo {
	return &fakeCreditRepo{}
}

func (f *fakeCreditRepo) SumPurchasedPlaces(_ context.Context, userID uint) (int, error) {
	total := 0
	for _, r := range f.records {
		if r.UserID == userID {
			total += r.PlacesPurchased
		}
	}
	return total, nil
}

func (f *fakeCreditRepo) FindByUserID(_ context.Context, userID uint) ([]model.CreditRecord, error) {
	var out []model.CreditRecord
	for _, r := range f.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeCreditRepo) Create(_ context.Context, record *model.CreditRecord) error {
	for _, r := range f.records {
		if r.StripePaymentIntentID == record.StripePaymentIntentID {
			return repository.ErrDuplicatePurchase
		}
	}
	f.nextID++
	record.ID = f.nextID
	f.records = append(f.records, *record)
	return nil
}

type fakeListRepo struct {
	lists map[string]*model.List
}

func newFakeListRepo() *fakeListRepo {
	return &fakeListRepo{lists: make(map[string]*model.List)}
}

func (f *fakeListRepo) FindByID(_ context.Context, id string) (*model.List, error) {
	return f.lists[id], nil
}

func (f *fakeListRepo) FindByOwner(_ context.Context, userID uint) ([]model.List, error) {
	var out []model.List
	for _, l := range f.lists {
		if l.CreatedBy == userID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakeListRepo) FindPublic(_ context.Context, limit int) ([]model.List, error) {
	var out []model.List
	for _, l := range f.lists {
		if l.IsPublic && len(out) < limit {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakeListRepo) Create(_ context.Context, list *model.List) error {
	f.lists[list.ID] = list
	return nil
}

func (f *fakeListRepo) Update(_ context.Context, list *model.List) error {
	f.lists[list.ID] = list
	return nil
}

func (f *fakeListRepo) Delete(_ context.Context, id string) error {
	delete(f.lists, id)
	return nil
}

type fakeShareRepo struct {
	grants []model.SharedListGrant
	tokens map[string]*model.ShareToken
}

func newFakeShareRepo() *fakeShareRepo {
	return &fakeShareRepo{tokens: make(map[string]*model.ShareToken)}
}

func (f *fakeShareRepo) FindGrant(_ context.Context, listID string, userID uint) (*model.SharedListGrant, error) {
	for i := range f.grants {
		if f.grants[i].ListID == listID && f.grants[i].SharedWithUserID == userID {
			return &f.grants[i], nil
		}
	}
	return nil, nil
}

func (f *fakeShareRepo) CountGrantsByUser(_ context.Context, userID uint) (int64, error) {
	var count int64
	for _, g := range f.grants {
		if g.SharedWithUserID == userID {
			count++
		}
	}
	return count, nil
}

func (f *fakeShareRepo) FindToken(_ context.Context, token string) (*model.ShareToken, error) {
	return f.tokens[token], nil
}

func (f *fakeShareRepo) CreateToken(_ context.Context, token *model.ShareToken) error {
	f.tokens[token.Token] = token
	return nil
}

func (f *fakeShareRepo) DeactivateToken(_ context.Context, token string) error {
	if t, ok := f.tokens[token]; ok {
		t.IsActive = false
	}
	return nil
}

func (f *fakeShareRepo) RedeemToken(_ context.Context, token *model.ShareToken, grant *model.SharedListGrant) error {
	for _, g := range f.grants {
		if g.ListID == grant.ListID && g.SharedWithUserID == grant.SharedWithUserID {
			return gorm.ErrDuplicatedKey
		}
	}

	stored := f.tokens[token.Token]
	if stored.MaxUses > 0 && stored.CurrentUses >= stored.MaxUses {
		return gorm.ErrRecordNotFound
	}

	f.grants = append(f.grants, *grant)
	stored.CurrentUses++
	return nil
}

type fakePlaceRepo struct {
	places []model.ListPlace
}

func newFakePlaceRepo() *fakePlaceRepo {
	return &fakePlaceRepo{}
}

func (f *fakePlaceRepo) FindByID(_ context.Context, id string) (*model.ListPlace, error) {
	for i := range f.places {
		if f.places[i].ID == id {
			return &f.places[i], nil
		}
	}
	return nil, nil
}

func (f *fakePlaceRepo) FindByList(_ context.Context, listID string) ([]model.ListPlace, error) {
	var out []model.ListPlace
	for _, p := range f.places {
		if p.ListID == listID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePlaceRepo) FindByListAndPlace(_ context.Context, listID, placeID string) (*model.ListPlace, error) {
	for i := range f.places {
		if f.places[i].ListID == listID && f.places[i].PlaceID == placeID {
			return &f.places[i], nil
		}
	}
	return nil, nil
}

func (f *fakePlaceRepo) CountByUser(_ context.Context, userID uint) (int, error) {
	count := 0
	for _, p := range f.places {
		if p.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (f *fakePlaceRepo) RegisterWithinLimit(ctx context.Context, place *model.ListPlace, limit int) error {
	if existing, _ := f.FindByListAndPlace(ctx, place.ListID, place.PlaceID); existing != nil {
		return repository.ErrDuplicatePlace
	}

	if limit >= 0 {
		count, _ := f.CountByUser(ctx, place.UserID)
		if count >= limit {
			return repository.ErrPlaceLimitReached
		}
	}

	f.places = append(f.places, *place)
	return nil
}

func (f *fakePlaceRepo) UpdateDisplayOrder(_ context.Context, id string, displayOrder int) error {
	for i := range f.places {
		if f.places[i].ID == id {
			f.places[i].DisplayOrder = displayOrder
		}
	}
	return nil
}

func (f *fakePlaceRepo) Delete(_ context.Context, id string) error {
	for i := range f.places {
		if f.places[i].ID == id {
			f.places = append(f.places[:i], f.places[i+1:]...)
			return nil
		}
	}
	return nil
}
