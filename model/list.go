package model

import (
	"time"

	"gorm.io/gorm"
)

type Permission string

const (
	PermissionView   Permission = "view"
	PermissionEdit   Permission = "edit"
	PermissionManage Permission = "manage"
)

var permissionRank = map[Permission]int{
	PermissionView:   1,
	PermissionEdit:   2,
	PermissionManage: 3,
}

// Satisfies reports whether this permission level unlocks an operation that
// requires the given level. Manage satisfies edit but grants nothing beyond it.
func (p Permission) Satisfies(required Permission) bool {
	return permissionRank[p] >= permissionRank[required]
}

type List struct {
	ID            string         `json:"id" gorm:"type:uuid;primaryKey"`
	Name          string         `json:"name" gorm:"not null"`
	Description   string         `json:"description"`
	CreatedBy     uint           `json:"created_by" gorm:"not null;index"`
	IsPublic      bool           `json:"is_public" gorm:"not null;default:false"`
	CoverImageURL string         `json:"cover_image_url"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

// SharedListGrant gives one user one permission level on one list. A user
// holds at most one grant per list.
type SharedListGrant struct {
	ID               uint           `json:"id" gorm:"primaryKey"`
	ListID           string         `json:"list_id" gorm:"type:uuid;not null;uniqueIndex:idx_grant_list_user"`
	SharedWithUserID uint           `json:"shared_with_user_id" gorm:"not null;uniqueIndex:idx_grant_list_user"`
	Permission       Permission     `json:"permission" gorm:"type:varchar(10);not null"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

// ShareToken is a redeemable credential granting DefaultPermission on a list.
// MaxUses of zero means unlimited redemptions.
type ShareToken struct {
	Token             string     `json:"token" gorm:"type:uuid;primaryKey"`
	ListID            string     `json:"list_id" gorm:"type:uuid;not null;index"`
	DefaultPermission Permission `json:"default_permission" gorm:"type:varchar(10);not null"`
	IsActive          bool       `json:"is_active" gorm:"not null;default:true"`
	ExpiresAt         *time.Time `json:"expires_at"`
	MaxUses           int        `json:"max_uses" gorm:"not null;default:0"`
	CurrentUses       int        `json:"current_uses" gorm:"not null;default:0"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Request DTOs
type CreateListRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	IsPublic    bool   `json:"is_public"`
}

type UpdateListRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	IsPublic    *bool   `json:"is_public,omitempty"`
}

type CreateShareTokenRequest struct {
	DefaultPermission Permission `json:"default_permission" validate:"required,oneof=view edit"`
	ExpiresAt         *string    `json:"expires_at"` // RFC 3339, optional
	MaxUses           int        `json:"max_uses" validate:"min=0"`
}

// Response DTOs
type ListResponse struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	IsPublic      bool                `json:"is_public"`
	CoverImageURL string              `json:"cover_image_url,omitempty"`
	Permission    Permission          `json:"permission,omitempty"`
	PlaceCount    int                 `json:"place_count"`
	Places        []ListPlaceResponse `json:"places,omitempty"`
	CreatedAt     string              `json:"created_at"`
	UpdatedAt     string              `json:"updated_at"`
}

type ShareTokenResponse struct {
	Token             string     `json:"token"`
	ListID            string     `json:"list_id"`
	DefaultPermission Permission `json:"default_permission"`
	ExpiresAt         *string    `json:"expires_at,omitempty"`
	MaxUses           int        `json:"max_uses"`
	CurrentUses       int        `json:"current_uses"`
}

func (l *List) ToListResponse(permission Permission, places []ListPlace) ListResponse {
	resp := ListResponse{
		ID:            l.ID,
		Name:          l.Name,
		Description:   l.Description,
		IsPublic:      l.IsPublic,
		CoverImageURL: l.CoverImageURL,
		Permission:    permission,
		PlaceCount:    len(places),
		CreatedAt:     l.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     l.UpdatedAt.Format(time.RFC3339),
	}

	if places != nil {
		resp.Places = make([]ListPlaceResponse, len(places))
		for i, p := range places {
			resp.Places[i] = p.ToListPlaceResponse()
		}
	}

	return resp
}

func (t *ShareToken) ToShareTokenResponse() ShareTokenResponse {
	var expiresAt *string
	if t.ExpiresAt != nil {
		formatted := t.ExpiresAt.Format(time.RFC3339)
		expiresAt = &formatted
	}

	return ShareTokenResponse{
		Token:             t.Token,
		ListID:            t.ListID,
		DefaultPermission: t.DefaultPermission,
		ExpiresAt:         expiresAt,
		MaxUses:           t.MaxUses,
		CurrentUses:       t.CurrentUses,
	}
}
